package model

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

const TableEscrowEvent = "escrow_events"

// CREATE TYPE escrow_event_type AS ENUM ('CREATED', 'RELEASED', 'REFUNDED');
type EscrowEventType string

const (
	EscrowEventCreated  EscrowEventType = "CREATED"
	EscrowEventReleased EscrowEventType = "RELEASED"
	EscrowEventRefunded EscrowEventType = "REFUNDED"
)

func (self *EscrowEventType) Scan(value interface{}) error {
	*self = EscrowEventType(scanString(value))
	return nil
}

func (self EscrowEventType) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE archive_state AS ENUM ('PENDING', 'ARCHIVING', 'ARCHIVED');
type ArchiveState string

const (
	ArchiveStatePending   ArchiveState = "PENDING"
	ArchiveStateArchiving ArchiveState = "ARCHIVING"
	ArchiveStateArchived  ArchiveState = "ARCHIVED"
)

func (self *ArchiveState) Scan(value interface{}) error {
	*self = ArchiveState(scanString(value))
	return nil
}

func (self ArchiveState) Value() (driver.Value, error) {
	return string(self), nil
}

// Append-only ledger of money movements. Source of truth for whether a deal
// was funded, with what method and for how much. Ledger columns are immutable,
// only the archive bookkeeping changes after insert.
type EscrowEvent struct {
	ID     int64  `gorm:"primaryKey"`
	DealID string `gorm:"not null; type:uuid; index"`

	EventType     EscrowEventType `gorm:"not null; type:escrow_event_type"`
	Amount        int64           `gorm:"not null"`
	Currency      string          `gorm:"not null"`
	PaymentMethod PaymentMethod   `gorm:"not null; type:payment_method"`
	TxReference   sql.NullString  `gorm:"comment:Reference assigned by the payment backend"`

	OccurredAt time.Time `gorm:"not null; index"`

	ArchiveState ArchiveState `gorm:"not null; type:archive_state; default:'PENDING'; index"`
	ArchivedAt   sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EscrowEvent) TableName() string {
	return TableEscrowEvent
}
