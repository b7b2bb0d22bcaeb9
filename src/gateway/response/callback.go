package response

import (
	"github.com/pactline/escrowd/src/utils/orchestrator"
)

// Ack returned to the analysis service. Success is true for no-ops too,
// a retried callback must not look like a failure to the sender.
type CallbackAck struct {
	Success           bool   `json:"success"`
	DealStatus        string `json:"deal_status"`
	VerificationScore int    `json:"verification_score"`
}

type VerificationRequests struct {
	Requests []*orchestrator.DispatchRequest `json:"requests"`
}

func VerificationRequestsToResponse(requests []*orchestrator.DispatchRequest) *VerificationRequests {
	if requests == nil {
		requests = []*orchestrator.DispatchRequest{}
	}
	return &VerificationRequests{Requests: requests}
}
