package report

import (
	"go.uber.org/atomic"
)

type SettlerErrors struct {
	BackendError       atomic.Uint64 `json:"backend_error"`
	DbClaimError       atomic.Uint64 `json:"db_claim_error"`
	DbStateUpdateError atomic.Uint64 `json:"db_state_update_error"`
}

type SettlerState struct {
	PayoutsCompleted  atomic.Uint64 `json:"payouts_completed"`
	RefundsCompleted  atomic.Uint64 `json:"refunds_completed"`
	SettlementsParked atomic.Uint64 `json:"settlements_parked"`
	RetriesSwept      atomic.Uint64 `json:"retries_swept"`
	RetriesCompleted  atomic.Uint64 `json:"retries_completed"`
	SettlementsFailed atomic.Uint64 `json:"settlements_failed"`
}

type SettlerReport struct {
	State  SettlerState  `json:"state"`
	Errors SettlerErrors `json:"errors"`
}
