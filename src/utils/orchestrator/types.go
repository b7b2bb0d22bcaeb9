package orchestrator

// Outcome of a verification run, after normalization.
type ResultOutcome string

const (
	OutcomeCompleted ResultOutcome = "completed"
	OutcomeError     ResultOutcome = "error"
	OutcomeFailed    ResultOutcome = "failed"
)

// Canonical verification verdict. The only result shape the rest of the
// system ever sees, whatever the analysis service sent.
type VerificationResult struct {
	DealID             string
	Outcome            ResultOutcome
	OverallScore       int
	Confidence         int
	RequirementsMet    []string
	RequirementsFailed []string

	// Echo of the dispatch request id, empty when the sender dropped it
	RequestID string

	// Original payload, kept for audit
	Raw []byte
}

// Request submitted to the analysis service.
type DispatchRequest struct {
	Url         string          `json:"url"`
	CallbackUrl string          `json:"callbackUrl"`
	RequestId   string          `json:"requestId"`
	Metadata    RequestMetadata `json:"metadata"`
	Options     RequestOptions  `json:"options"`
}

type RequestMetadata struct {
	DealID    string           `json:"deal_id"`
	ProofSpec RequestProofSpec `json:"proof_spec"`
}

type RequestProofSpec struct {
	TextProof     string `json:"text_proof"`
	Platform      string `json:"platform"`
	AccountHandle string `json:"account_handle"`
}

type RequestOptions struct {
	AnalysisType string `json:"analysisType"`
}
