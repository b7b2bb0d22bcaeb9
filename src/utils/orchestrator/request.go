package orchestrator

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
)

// Sent when the proof spec has no text proof. The analysis service still
// needs a claim to check the post against.
const FallbackProofPrompt = "Verify that the linked post is live, publicly visible and contains the agreed promotional content."

// NewDispatchRequest builds the analysis request for a deal from its stored
// proof spec.
func NewDispatchRequest(config *config.Config, deal *model.Deal, spec *model.ProofSpec, requestId string) *DispatchRequest {
	textProof := FallbackProofPrompt
	if spec != nil && spec.TextProof != "" {
		textProof = spec.TextProof
	}

	return &DispatchRequest{
		Url:         deal.PostURL.String,
		CallbackUrl: config.Orchestrator.CallbackUrl,
		RequestId:   requestId,
		Metadata: RequestMetadata{
			DealID: deal.ID,
			ProofSpec: RequestProofSpec{
				TextProof:     textProof,
				Platform:      deal.Platform,
				AccountHandle: deal.CreatorID.String,
			},
		},
		Options: RequestOptions{
			AnalysisType: config.Orchestrator.AnalysisType,
		},
	}
}
