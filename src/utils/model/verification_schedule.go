package model

import (
	"database/sql"
	"time"

	"github.com/jackc/pgtype"
)

const TableVerificationSchedule = "verification_schedules"

// A planned future check of a posted proof. Many per deal, created in one
// batch when the deal enters VERIFYING.
type VerificationSchedule struct {
	ID     int64  `gorm:"primaryKey"`
	DealID string `gorm:"not null; type:uuid; index; comment:Owning deal"`

	ScheduledAt time.Time      `gorm:"not null; index; comment:When the check becomes due"`
	CheckType   CheckType      `gorm:"not null; type:check_type"`
	Status      ScheduleStatus `gorm:"not null; type:schedule_status; index"`

	ExecutedAt  sql.NullTime `gorm:"comment:When the check was dispatched"`
	CompletedAt sql.NullTime `gorm:"comment:When the result arrived"`

	OrchestratorRequestID sql.NullString `gorm:"index; comment:Request id sent to the analysis service"`
	ConfidenceScore       sql.NullInt64  `gorm:"comment:Confidence reported with the result, 0-100"`
	Result                pgtype.JSONB   `gorm:"type:jsonb; comment:Raw verdict, for audit"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (VerificationSchedule) TableName() string {
	return TableVerificationSchedule
}
