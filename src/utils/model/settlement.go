package model

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

const TableSettlement = "settlements"

// CREATE TYPE settlement_type AS ENUM ('PAYOUT', 'REFUND');
type SettlementType string

const (
	SettlementTypePayout SettlementType = "PAYOUT"
	SettlementTypeRefund SettlementType = "REFUND"
)

func (self *SettlementType) Scan(value interface{}) error {
	*self = SettlementType(scanString(value))
	return nil
}

func (self SettlementType) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE settlement_status AS ENUM ('PENDING_SETTLEMENT', 'AWAITING_CONNECTION', 'COMPLETED', 'FAILED');
type SettlementStatus string

const (
	SettlementStatusPending            SettlementStatus = "PENDING_SETTLEMENT"
	SettlementStatusAwaitingConnection SettlementStatus = "AWAITING_CONNECTION"
	SettlementStatusCompleted          SettlementStatus = "COMPLETED"
	SettlementStatusFailed             SettlementStatus = "FAILED"
)

func (self *SettlementStatus) Scan(value interface{}) error {
	*self = SettlementStatus(scanString(value))
	return nil
}

func (self SettlementStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// Payout or refund attempt. A partial unique index permits at most one
// non-FAILED row per (deal_id, type), so a second attempt cannot slip past
// the existing-record check.
type Settlement struct {
	ID     int64  `gorm:"primaryKey"`
	DealID string `gorm:"not null; type:uuid; index:idx_settlements_deal"`

	Type   SettlementType   `gorm:"not null; type:settlement_type"`
	Status SettlementStatus `gorm:"not null; type:settlement_status; index"`

	Amount      int64          `gorm:"not null"`
	Currency    string         `gorm:"not null"`
	Method      PaymentMethod  `gorm:"not null; type:payment_method"`
	RecipientID string         `gorm:"not null; comment:Creator for payouts, advertiser for refunds"`
	TxReference sql.NullString `gorm:"comment:Reference assigned by the payment backend"`

	// Caller-provided reason for refunds
	Reason        sql.NullString
	FailureReason sql.NullString

	SettledAt sql.NullTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Settlement) TableName() string {
	return TableSettlement
}
