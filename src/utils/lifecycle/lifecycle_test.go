package lifecycle

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/orchestrator"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateResultAutoPassKeepsVerifying(t *testing.T) {
	v := EvaluateResult(&orchestrator.VerificationResult{
		Outcome:      orchestrator.OutcomeCompleted,
		OverallScore: 92,
		Confidence:   100,
	})

	assert.Equal(t, model.DealStatusVerifying, v.Status)
	assert.Equal(t, SettleNone, v.Settle)
	assert.Nil(t, v.Review)
	assert.Equal(t, 92, v.RecordScore)
}

func TestEvaluateResultFailedRequirementDominatesScore(t *testing.T) {
	v := EvaluateResult(&orchestrator.VerificationResult{
		Outcome:            orchestrator.OutcomeCompleted,
		OverallScore:       95,
		Confidence:         100,
		RequirementsFailed: []string{"logo visible"},
	})

	assert.Equal(t, model.DealStatusFailed, v.Status)
	assert.Equal(t, SettleRefund, v.Settle)
	assert.Contains(t, v.FailureReason, "logo visible")
}

func TestEvaluateResultAmbiguousOpensReview(t *testing.T) {
	v := EvaluateResult(&orchestrator.VerificationResult{
		Outcome:      orchestrator.OutcomeCompleted,
		OverallScore: 70,
		Confidence:   100,
	})

	assert.Equal(t, model.DealStatusVerifying, v.Status)
	assert.NotNil(t, v.Review)
	assert.Equal(t, model.ReviewReasonManualReviewNeeded, v.Review.Reason)
}

func TestEvaluateResultLowConfidenceOpensReview(t *testing.T) {
	v := EvaluateResult(&orchestrator.VerificationResult{
		Outcome:      orchestrator.OutcomeCompleted,
		OverallScore: 55,
		Confidence:   40,
	})

	assert.Equal(t, model.DealStatusVerifying, v.Status)
	assert.NotNil(t, v.Review)
	assert.Equal(t, model.ReviewReasonAmbiguousInference, v.Review.Reason)
}

func TestEvaluateResultLowScoreFails(t *testing.T) {
	v := EvaluateResult(&orchestrator.VerificationResult{
		Outcome:      orchestrator.OutcomeCompleted,
		OverallScore: 20,
		Confidence:   100,
	})

	assert.Equal(t, model.DealStatusFailed, v.Status)
	assert.Equal(t, SettleRefund, v.Settle)
}

func TestEvaluateResultErrorOpensHighSeverityReview(t *testing.T) {
	v := EvaluateResult(&orchestrator.VerificationResult{
		Outcome: orchestrator.OutcomeError,
	})

	assert.Equal(t, model.DealStatusVerifying, v.Status)
	assert.Equal(t, 0, v.RecordScore)
	assert.NotNil(t, v.Review)
	assert.Equal(t, model.ReviewReasonOrchestratorError, v.Review.Reason)
	assert.Equal(t, model.ReviewSeverityHigh, v.Review.Severity)
}

func TestEvaluateDuration(t *testing.T) {
	now := time.Now()

	_, due := EvaluateDuration(90, now, now.Add(time.Hour))
	assert.False(t, due)

	v, due := EvaluateDuration(90, now, now.Add(-time.Minute))
	assert.True(t, due)
	assert.Equal(t, model.DealStatusCompleted, v.Status)
	assert.Equal(t, SettlePayout, v.Settle)

	v, due = EvaluateDuration(79, now, now)
	assert.True(t, due)
	assert.Equal(t, model.DealStatusFailed, v.Status)
	assert.Equal(t, SettleRefund, v.Settle)
	assert.Equal(t, "duration completed without successful verification", v.FailureReason)
}

func TestEvaluateDecision(t *testing.T) {
	v := EvaluateDecision(model.ReviewDecisionRelease, "")
	assert.Equal(t, model.DealStatusCompleted, v.Status)
	assert.Equal(t, SettlePayout, v.Settle)

	v = EvaluateDecision(model.ReviewDecisionRefund, "fake post")
	assert.Equal(t, model.DealStatusFailed, v.Status)
	assert.Equal(t, SettleRefund, v.Settle)
	assert.Contains(t, v.FailureReason, "fake post")

	v = EvaluateDecision(model.ReviewDecisionEscalate, "")
	assert.True(t, v.Escalate)
	assert.Equal(t, model.DealStatusVerifying, v.Status)
}

func TestCanAccept(t *testing.T) {
	deal := &model.Deal{AdvertiserID: "adv-1", Status: model.DealStatusPendingAcceptance}

	assert.NoError(t, CanAccept(deal, "creator-1"))
	assert.ErrorIs(t, CanAccept(deal, "adv-1"), ErrOwnDeal)

	deal.Status = model.DealStatusVerifying
	assert.ErrorIs(t, CanAccept(deal, "creator-1"), ErrWrongStatus)
}

func TestCanConfirmFundingAllowsFailedRetry(t *testing.T) {
	deal := &model.Deal{Status: model.DealStatusPendingFunding}
	assert.NoError(t, CanConfirmFunding(deal))

	deal.Status = model.DealStatusFailed
	assert.NoError(t, CanConfirmFunding(deal))

	deal.Status = model.DealStatusCompleted
	assert.ErrorIs(t, CanConfirmFunding(deal), ErrWrongStatus)
}

func TestCanSubmitPost(t *testing.T) {
	deal := &model.Deal{
		Status:    model.DealStatusPendingVerification,
		CreatorID: sql.NullString{String: "creator-1", Valid: true},
	}

	assert.NoError(t, CanSubmitPost(deal, "creator-1"))
	assert.ErrorIs(t, CanSubmitPost(deal, "someone-else"), ErrNotCreator)

	deal.Status = model.DealStatusPendingFunding
	assert.ErrorIs(t, CanSubmitPost(deal, "creator-1"), ErrWrongStatus)
}

func TestCanCancel(t *testing.T) {
	for _, status := range model.NonTerminalDealStatuses {
		assert.NoError(t, CanCancel(&model.Deal{Status: status}))
	}
	for _, status := range []model.DealStatus{
		model.DealStatusCompleted, model.DealStatusFailed, model.DealStatusCancelled,
	} {
		assert.ErrorIs(t, CanCancel(&model.Deal{Status: status}), ErrWrongStatus)
	}
}

func TestValidatePostURL(t *testing.T) {
	assert.NoError(t, ValidatePostURL("https://instagram.com/p/abc"))
	assert.NoError(t, ValidatePostURL("http://example.com/post/1"))

	assert.ErrorIs(t, ValidatePostURL(""), ErrInvalidPostURL)
	assert.ErrorIs(t, ValidatePostURL("ftp://example.com/x"), ErrInvalidPostURL)
	assert.ErrorIs(t, ValidatePostURL("not a url"), ErrInvalidPostURL)
	assert.ErrorIs(t, ValidatePostURL("https://"), ErrInvalidPostURL)
}
