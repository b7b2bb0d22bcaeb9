package report

import (
	"go.uber.org/atomic"
)

type GatewayErrors struct {
	CallbackParse       atomic.Uint64 `json:"callback_parse"`
	CallbackUnknownDeal atomic.Uint64 `json:"callback_unknown_deal"`
	AuthFailures        atomic.Uint64 `json:"auth_failures"`
	DbError             atomic.Uint64 `json:"db_error"`
}

type GatewayState struct {
	DealsCreated      atomic.Uint64 `json:"deals_created"`
	DealsAccepted     atomic.Uint64 `json:"deals_accepted"`
	FundingsConfirmed atomic.Uint64 `json:"fundings_confirmed"`
	PostsSubmitted    atomic.Uint64 `json:"posts_submitted"`
	DealsCancelled    atomic.Uint64 `json:"deals_cancelled"`

	CallbacksReceived atomic.Uint64 `json:"callbacks_received"`
	CallbacksDropped  atomic.Uint64 `json:"callbacks_dropped"`
	ResultsApplied    atomic.Uint64 `json:"results_applied"`

	ReviewsAssigned    atomic.Uint64 `json:"reviews_assigned"`
	DecisionsProcessed atomic.Uint64 `json:"decisions_processed"`

	SettlementsTriggered atomic.Uint64 `json:"settlements_triggered"`

	EventsStreamed atomic.Uint64 `json:"events_streamed"`
}

type GatewayReport struct {
	State  GatewayState  `json:"state"`
	Errors GatewayErrors `json:"errors"`
}
