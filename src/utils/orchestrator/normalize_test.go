package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeNestedShape(t *testing.T) {
	raw := []byte(`{
		"status": "completed",
		"request_id": "req-1",
		"data": {
			"deal_id": "deal-1",
			"analysis": {
				"overall_score": 87.4,
				"proof_verification": {
					"requirements_met": ["logo", "link"],
					"requirements_failed": [],
					"overall_confidence": 91
				}
			}
		}
	}`)

	res := Normalize(raw)
	require.NotNil(t, res)

	assert.Equal(t, "deal-1", res.DealID)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 87, res.OverallScore)
	assert.Equal(t, 91, res.Confidence)
	assert.Equal(t, []string{"logo", "link"}, res.RequirementsMet)
	assert.Empty(t, res.RequirementsFailed)
	assert.Equal(t, raw, res.Raw)
}

func TestNormalizeLegacyFlatShape(t *testing.T) {
	res := Normalize([]byte(`{
		"deal_id": "deal-2",
		"verification_status": "failed",
		"overall_score": 35
	}`))

	assert.Equal(t, "deal-2", res.DealID)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 35, res.OverallScore)
	assert.Equal(t, defaultConfidence, res.Confidence)
}

func TestNormalizeCamelCaseRequestId(t *testing.T) {
	res := Normalize([]byte(`{
		"requestId": "req-camel",
		"deal_id": "deal-3",
		"verification_status": "completed",
		"overall_score": 80
	}`))

	assert.Equal(t, "req-camel", res.RequestID)
}

func TestNormalizeUnparseablePayload(t *testing.T) {
	for _, raw := range [][]byte{
		nil,
		{},
		[]byte(`not json at all`),
		[]byte(`"just a string"`),
		[]byte(`[1, 2, 3]`),
	} {
		res := Normalize(raw)
		require.NotNil(t, res)
		assert.Equal(t, OutcomeError, res.Outcome)
		assert.Equal(t, 0, res.OverallScore)
		assert.Empty(t, res.DealID)
	}
}

func TestNormalizeErrorReportWithoutAnalysis(t *testing.T) {
	res := Normalize([]byte(`{
		"status": "error",
		"data": {"deal_id": "deal-4"}
	}`))

	// The deal id is salvaged so the error can be attributed
	assert.Equal(t, "deal-4", res.DealID)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Equal(t, 0, res.OverallScore)
}

func TestNormalizeUnknownFieldsIgnored(t *testing.T) {
	res := Normalize([]byte(`{
		"deal_id": "deal-5",
		"verification_status": "completed",
		"overall_score": 90,
		"some_future_field": {"nested": true}
	}`))

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 90, res.OverallScore)
}

func TestNormalizeScoreClamping(t *testing.T) {
	res := Normalize([]byte(`{"deal_id": "d", "verification_status": "completed", "overall_score": 250}`))
	assert.Equal(t, 100, res.OverallScore)

	res = Normalize([]byte(`{"deal_id": "d", "verification_status": "completed", "overall_score": -10}`))
	assert.Equal(t, 0, res.OverallScore)

	res = Normalize([]byte(`{"deal_id": "d", "verification_status": "completed", "overall_score": 79.5}`))
	assert.Equal(t, 80, res.OverallScore)
}

func TestNormalizeStatusMapping(t *testing.T) {
	for status, outcome := range map[string]ResultOutcome{
		"completed": OutcomeCompleted,
		"COMPLETE":  OutcomeCompleted,
		"success":   OutcomeCompleted,
		"failed":    OutcomeFailed,
		"Failure":   OutcomeFailed,
		"error":     OutcomeError,
	} {
		res := Normalize([]byte(`{"deal_id": "d", "verification_status": "` + status + `", "overall_score": 85}`))
		assert.Equal(t, outcome, res.Outcome, "status %q", status)
	}
}

func TestNormalizeExplicitLowConfidence(t *testing.T) {
	res := Normalize([]byte(`{
		"status": "completed",
		"data": {
			"deal_id": "deal-6",
			"analysis": {
				"overall_score": 85,
				"proof_verification": {"overall_confidence": 30}
			}
		}
	}`))

	assert.Equal(t, 30, res.Confidence)
}
