package model

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"
)

const TableDeal = "deals"

// The central entity. Never deleted, only moved forward through statuses,
// money movements are appended to escrow_events.
type Deal struct {
	ID           string         `gorm:"primaryKey; type:uuid; comment:Deal id"`
	AdvertiserID string         `gorm:"not null; index; comment:User that created and funds the deal"`
	CreatorID    sql.NullString `gorm:"index; comment:User that accepted the deal, empty until accepted"`
	Platform     string         `gorm:"not null; comment:Platform the proof post is published on"`

	// Amount is in minor units of Currency
	Amount   int64  `gorm:"not null"`
	Currency string `gorm:"not null"`

	Status        DealStatus     `gorm:"not null; type:deal_status; index; comment:Lifecycle state"`
	FailureReason sql.NullString `gorm:"comment:Why the deal failed, empty otherwise"`

	Deadline time.Time    `gorm:"not null; comment:Latest instant the proof may be verified"`
	PostedAt sql.NullTime `gorm:"comment:When the creator submitted the proof post"`

	PostURL     sql.NullString `gorm:"comment:Proof post url, set when submitted"`
	PublicOptIn bool           `gorm:"not null; default:false"`

	VerificationScore  sql.NullInt64 `gorm:"comment:Last recorded overall score, 0-100"`
	LastVerificationAt sql.NullTime  `gorm:"comment:When the last verification result was applied"`
	OrchestratorResult pgtype.JSONB  `gorm:"type:jsonb; comment:Raw verdict of the last verification, for audit"`

	CancelledAt sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Deal) TableName() string {
	return TableDeal
}

// Observation window of the proof, counted from PostedAt.
func (self *Deal) CompletionTime(durationHours int) time.Time {
	return self.PostedAt.Time.Add(time.Duration(durationHours) * time.Hour)
}
