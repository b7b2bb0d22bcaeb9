package orchestrator

import (
	"encoding/json"
	"math"
	"strings"
)

// Confidence assumed when the payload carries none. Only an explicitly low
// confidence should route a result to manual review.
const defaultConfidence = 100

type callbackEnvelope struct {
	Status string        `json:"status"`
	Data   *callbackData `json:"data"`

	// Request id echo, both spellings seen in the wild
	RequestID      string `json:"request_id"`
	RequestIDCamel string `json:"requestId"`

	// Legacy flat shape
	DealID             string   `json:"deal_id"`
	VerificationStatus string   `json:"verification_status"`
	OverallScore       *float64 `json:"overall_score"`
}

type callbackData struct {
	DealID   string            `json:"deal_id"`
	Analysis *callbackAnalysis `json:"analysis"`
}

type callbackAnalysis struct {
	OverallScore      *float64                   `json:"overall_score"`
	ProofVerification *callbackProofVerification `json:"proof_verification"`
}

type callbackProofVerification struct {
	RequirementsMet    []string `json:"requirements_met"`
	RequirementsFailed []string `json:"requirements_failed"`
	OverallConfidence  *float64 `json:"overall_confidence"`
}

// Normalize turns a callback payload into the canonical result. Two shapes
// are accepted: the current nested one and the legacy flat one. Anything
// unparseable becomes an error outcome, never a failure of the caller -
// the webhook endpoint has to keep answering 200 or the sender retries
// forever.
func Normalize(raw []byte) (out *VerificationResult) {
	out = &VerificationResult{
		Outcome:      OutcomeError,
		OverallScore: 0,
		Confidence:   0,
		Raw:          raw,
	}

	var env callbackEnvelope
	err := json.Unmarshal(raw, &env)
	if err != nil {
		return
	}

	out.RequestID = env.RequestID
	if out.RequestID == "" {
		out.RequestID = env.RequestIDCamel
	}

	switch {
	case env.Data != nil:
		normalizeNested(&env, out)
	case env.VerificationStatus != "" || env.OverallScore != nil:
		normalizeLegacy(&env, out)
	default:
		// Nothing recognizable, keep the error outcome.
		// Top-level deal_id is still worth salvaging for audit.
		out.DealID = env.DealID
	}

	return
}

func normalizeNested(env *callbackEnvelope, out *VerificationResult) {
	out.DealID = env.Data.DealID
	if out.DealID == "" {
		out.DealID = env.DealID
	}

	if env.Data.Analysis == nil || env.Data.Analysis.OverallScore == nil {
		// Error reports carry the deal id but no analysis
		out.Outcome = OutcomeError
		return
	}

	analysis := env.Data.Analysis
	out.OverallScore = clampScore(*analysis.OverallScore)
	out.Confidence = defaultConfidence
	out.Outcome = outcomeFromStatus(env.Status, OutcomeCompleted)

	if analysis.ProofVerification != nil {
		out.RequirementsMet = analysis.ProofVerification.RequirementsMet
		out.RequirementsFailed = analysis.ProofVerification.RequirementsFailed
		if analysis.ProofVerification.OverallConfidence != nil {
			out.Confidence = clampScore(*analysis.ProofVerification.OverallConfidence)
		}
	}
}

func normalizeLegacy(env *callbackEnvelope, out *VerificationResult) {
	out.DealID = env.DealID

	if env.OverallScore == nil {
		out.Outcome = outcomeFromStatus(env.VerificationStatus, OutcomeError)
		return
	}

	out.OverallScore = clampScore(*env.OverallScore)
	out.Confidence = defaultConfidence
	out.Outcome = outcomeFromStatus(env.VerificationStatus, OutcomeCompleted)
}

func outcomeFromStatus(status string, fallback ResultOutcome) ResultOutcome {
	switch strings.ToLower(status) {
	case "completed", "complete", "success":
		return OutcomeCompleted
	case "failed", "failure":
		return OutcomeFailed
	case "error":
		return OutcomeError
	case "":
		return fallback
	default:
		return fallback
	}
}

func clampScore(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
