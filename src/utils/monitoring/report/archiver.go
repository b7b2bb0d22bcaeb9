package report

import (
	"go.uber.org/atomic"
)

type ArchiverErrors struct {
	ProduceError       atomic.Uint64 `json:"produce_error"`
	EncodeError        atomic.Uint64 `json:"encode_error"`
	DbClaimError       atomic.Uint64 `json:"db_claim_error"`
	DbStateUpdateError atomic.Uint64 `json:"db_state_update_error"`
}

type ArchiverState struct {
	EventsClaimed   atomic.Uint64 `json:"events_claimed"`
	EventsArchived  atomic.Uint64 `json:"events_archived"`
	EventsReset     atomic.Uint64 `json:"events_reset"`
	BatchesProduced atomic.Uint64 `json:"batches_produced"`
}

type ArchiverReport struct {
	State  ArchiverState  `json:"state"`
	Errors ArchiverErrors `json:"errors"`
}
