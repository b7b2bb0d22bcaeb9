package model

import (
	"encoding/json"
)

// Payload of the deal-change NOTIFY emitted by a database trigger and fanned
// out to Redis subscribers.
type DealChange struct {
	DealID    string     `json:"deal_id"`
	Status    DealStatus `json:"status"`
	Timestamp int64      `json:"timestamp"`
}

func (self *DealChange) MarshalBinary() (data []byte, err error) {
	return json.Marshal(self)
}

type AppSyncDealChange struct {
	DealID        string `json:"dealId"`
	Status        string `json:"status"`
	SyncTimestamp int64  `json:"syncTimestamp"`
}

func (self *AppSyncDealChange) MarshalJSON() (data []byte, err error) {
	type alias AppSyncDealChange
	return json.Marshal((*alias)(self))
}

// Published to reviewers when a review is created or escalated.
type ReviewNotice struct {
	ReviewID   int64          `json:"review_id"`
	DealID     string         `json:"deal_id"`
	ReasonCode ReviewReason   `json:"reason_code"`
	Severity   ReviewSeverity `json:"severity"`
	Escalated  bool           `json:"escalated,omitempty"`
}

func (self *ReviewNotice) MarshalBinary() (data []byte, err error) {
	return json.Marshal(self)
}
