package report

import (
	"go.uber.org/atomic"
)

type VerifierErrors struct {
	DispatchError      atomic.Uint64 `json:"dispatch_error"`
	PollError          atomic.Uint64 `json:"poll_error"`
	DbClaimError       atomic.Uint64 `json:"db_claim_error"`
	DbStateUpdateError atomic.Uint64 `json:"db_state_update_error"`
}

type VerifierState struct {
	SchedulesClaimed  atomic.Uint64 `json:"schedules_claimed"`
	ChecksDispatched  atomic.Uint64 `json:"checks_dispatched"`
	SchedulesExpired  atomic.Uint64 `json:"schedules_expired"`
	ResultsPolled     atomic.Uint64 `json:"results_polled"`
	ResultsApplied    atomic.Uint64 `json:"results_applied"`
	WindowsCompleted  atomic.Uint64 `json:"windows_completed"`
	ReviewsRequested  atomic.Uint64 `json:"reviews_requested"`
	LastPollTimestamp atomic.Int64  `json:"last_poll_timestamp"`
}

type VerifierReport struct {
	State  VerifierState  `json:"state"`
	Errors VerifierErrors `json:"errors"`
}
