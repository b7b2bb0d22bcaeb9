package model

import (
	"database/sql"
	"database/sql/driver"
	"time"

	"github.com/jackc/pgtype"
)

const TableReview = "reviews"

// CREATE TYPE review_reason AS ENUM ('ORCHESTRATOR_ERROR', 'MANUAL_REVIEW_NEEDED', 'INFERENCE_AMBIGUOUS');
type ReviewReason string

const (
	ReviewReasonOrchestratorError  ReviewReason = "ORCHESTRATOR_ERROR"
	ReviewReasonManualReviewNeeded ReviewReason = "MANUAL_REVIEW_NEEDED"
	ReviewReasonAmbiguousInference ReviewReason = "INFERENCE_AMBIGUOUS"
)

func (self *ReviewReason) Scan(value interface{}) error {
	*self = ReviewReason(scanString(value))
	return nil
}

func (self ReviewReason) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE review_severity AS ENUM ('HIGH', 'MEDIUM', 'LOW');
type ReviewSeverity string

const (
	ReviewSeverityHigh   ReviewSeverity = "HIGH"
	ReviewSeverityMedium ReviewSeverity = "MEDIUM"
	ReviewSeverityLow    ReviewSeverity = "LOW"
)

func (self *ReviewSeverity) Scan(value interface{}) error {
	*self = ReviewSeverity(scanString(value))
	return nil
}

func (self ReviewSeverity) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE review_status AS ENUM ('OPEN', 'ASSIGNED', 'IN_PROGRESS', 'CLOSED');
type ReviewStatus string

const (
	ReviewStatusOpen       ReviewStatus = "OPEN"
	ReviewStatusAssigned   ReviewStatus = "ASSIGNED"
	ReviewStatusInProgress ReviewStatus = "IN_PROGRESS"
	ReviewStatusClosed     ReviewStatus = "CLOSED"
)

func (self *ReviewStatus) Scan(value interface{}) error {
	*self = ReviewStatus(scanString(value))
	return nil
}

func (self ReviewStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE review_decision AS ENUM ('RELEASE', 'REFUND', 'MANUAL_FAIL', 'ESCALATE');
type ReviewDecision string

const (
	ReviewDecisionRelease    ReviewDecision = "RELEASE"
	ReviewDecisionRefund     ReviewDecision = "REFUND"
	ReviewDecisionManualFail ReviewDecision = "MANUAL_FAIL"
	ReviewDecisionEscalate   ReviewDecision = "ESCALATE"
)

func (self *ReviewDecision) Scan(value interface{}) error {
	*self = ReviewDecision(scanString(value))
	return nil
}

func (self ReviewDecision) Value() (driver.Value, error) {
	return string(self), nil
}

// Manual review task for an ambiguous or erroring verification. Closing it
// feeds the reviewer's decision back into the deal lifecycle.
type Review struct {
	ID     int64  `gorm:"primaryKey"`
	DealID string `gorm:"not null; type:uuid; index"`

	// Orchestrator request id the review originates from, if any
	RunID sql.NullString

	ReasonCode ReviewReason   `gorm:"not null; type:review_reason"`
	Severity   ReviewSeverity `gorm:"not null; type:review_severity"`
	Status     ReviewStatus   `gorm:"not null; type:review_status; index"`

	AssigneeID sql.NullString `gorm:"index"`
	Decision   *ReviewDecision `gorm:"type:review_decision"`
	Notes      sql.NullString
	Evidence   pgtype.JSONB `gorm:"type:jsonb"`

	ClosedAt  sql.NullTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Review) TableName() string {
	return TableReview
}
