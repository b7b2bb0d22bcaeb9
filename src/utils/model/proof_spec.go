package model

import (
	"time"

	"github.com/lib/pq"
)

const (
	TableProofSpec         = "proof_specs"
	TableProofSpecRevision = "proof_spec_revisions"
)

// Permitted observation windows, in hours.
var AllowedDurations = []int{24, 48, 72, 168}

// Advertiser-defined criteria the creator's post has to satisfy. One per deal.
type ProofSpec struct {
	ID     int64  `gorm:"primaryKey"`
	DealID string `gorm:"not null; type:uuid; uniqueIndex; comment:Owning deal"`

	TextProof     string `gorm:"not null; comment:Required claim, checked by the analysis service"`
	DurationHours int    `gorm:"not null; comment:Observation window, limited to an allow-list"`

	VisualMarkers pq.StringArray `gorm:"type:text[]; comment:Required visual artifacts"`
	VideoMarkers  pq.StringArray `gorm:"type:text[]; comment:Required video artifacts"`
	LinkMarkers   pq.StringArray `gorm:"type:text[]; comment:Required link artifacts"`

	Revision  int `gorm:"not null; default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ProofSpec) TableName() string {
	return TableProofSpec
}

func IsAllowedDuration(hours int) bool {
	for _, d := range AllowedDurations {
		if d == hours {
			return true
		}
	}
	return false
}

// Append-only audit of creator edits to the proof spec.
type ProofSpecRevision struct {
	ID       int64  `gorm:"primaryKey"`
	DealID   string `gorm:"not null; type:uuid; index"`
	Revision int    `gorm:"not null"`

	TextProof     string
	DurationHours int
	VisualMarkers pq.StringArray `gorm:"type:text[]"`
	VideoMarkers  pq.StringArray `gorm:"type:text[]"`
	LinkMarkers   pq.StringArray `gorm:"type:text[]"`

	EditedBy  string `gorm:"not null"`
	CreatedAt time.Time
}

func (ProofSpecRevision) TableName() string {
	return TableProofSpecRevision
}
