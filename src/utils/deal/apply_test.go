package deal

import (
	"fmt"
	"time"

	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/orchestrator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verificationResult(dealId string, score int) *orchestrator.VerificationResult {
	return &orchestrator.VerificationResult{
		DealID:       dealId,
		Outcome:      orchestrator.OutcomeCompleted,
		OverallScore: score,
		Confidence:   95,
		Raw:          []byte(fmt.Sprintf(`{"deal_id":%q,"overall_score":%d}`, dealId, score)),
	}
}

// backdatePost ages the proof post so the observation window is over.
func (s *ServiceTestSuite) backdatePost(dealId string, age time.Duration) {
	err := s.db.Model(&model.Deal{}).
		Where("id = ?", dealId).
		Update("posted_at", time.Now().Add(-age)).Error
	require.NoError(s.T(), err)
}

func (s *ServiceTestSuite) loadDeal(dealId string) *model.Deal {
	var deal model.Deal
	err := s.db.First(&deal, "id = ?", dealId).Error
	require.NoError(s.T(), err)
	return &deal
}

func (s *ServiceTestSuite) settlements(dealId string) []model.Settlement {
	var out []model.Settlement
	err := s.db.Where("deal_id = ?", dealId).Find(&out).Error
	require.NoError(s.T(), err)
	return out
}

func (s *ServiceTestSuite) TestApplyResultRecordsPassingScore() {
	deal := s.verifyingDeal()

	updated, applied, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 87), "")
	require.NoError(s.T(), err)
	assert.True(s.T(), applied)

	// A passing check records the score, completion waits for the window end
	assert.Equal(s.T(), model.DealStatusVerifying, updated.Status)
	require.True(s.T(), updated.VerificationScore.Valid)
	assert.EqualValues(s.T(), 87, updated.VerificationScore.Int64)
	assert.True(s.T(), updated.LastVerificationAt.Valid)
	assert.Empty(s.T(), s.settlements(deal.ID))
}

func (s *ServiceTestSuite) TestApplyResultFailureRefunds() {
	s.connect("adv-1")
	deal := s.verifyingDeal()

	res := verificationResult(deal.ID, 20)
	updated, applied, err := s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	assert.True(s.T(), applied)
	assert.Equal(s.T(), model.DealStatusFailed, updated.Status)
	assert.Equal(s.T(), "verification score 20 below threshold with confidence 95", updated.FailureReason.String)

	settlements := s.settlements(deal.ID)
	require.Len(s.T(), settlements, 1)
	assert.Equal(s.T(), model.SettlementTypeRefund, settlements[0].Type)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlements[0].Status)
	assert.Equal(s.T(), "adv-1", settlements[0].RecipientID)

	// The refund reverses the funding transfer
	require.Len(s.T(), s.backend.refunds, 1)
	assert.Equal(s.T(), "tx-fund-1", s.backend.refunds[0].OriginalTxReference)
	assert.Equal(s.T(), "acct_adv-1", s.backend.refunds[0].Destination)

	var pending int64
	err = s.db.Model(&model.VerificationSchedule{}).
		Where("deal_id = ?", deal.ID).
		Where("status = ?", model.ScheduleStatusPending).
		Count(&pending).Error
	require.NoError(s.T(), err)
	assert.Zero(s.T(), pending)
}

func (s *ServiceTestSuite) TestApplyResultRequirementFailureDominates() {
	s.connect("adv-1")
	deal := s.verifyingDeal()

	res := verificationResult(deal.ID, 95)
	res.RequirementsFailed = []string{"logo visible"}

	updated, applied, err := s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	assert.True(s.T(), applied)
	assert.Equal(s.T(), model.DealStatusFailed, updated.Status)
	assert.Contains(s.T(), updated.FailureReason.String, "logo visible")
	require.Len(s.T(), s.settlements(deal.ID), 1)
	assert.Equal(s.T(), model.SettlementTypeRefund, s.settlements(deal.ID)[0].Type)
}

func (s *ServiceTestSuite) TestApplyResultAmbiguousOpensReview() {
	deal := s.verifyingDeal()

	res := verificationResult(deal.ID, 70)
	updated, applied, err := s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	assert.True(s.T(), applied)
	assert.Equal(s.T(), model.DealStatusVerifying, updated.Status)

	var reviews []model.Review
	err = s.db.Where("deal_id = ?", deal.ID).Find(&reviews).Error
	require.NoError(s.T(), err)
	require.Len(s.T(), reviews, 1)
	assert.Equal(s.T(), model.ReviewReasonManualReviewNeeded, reviews[0].ReasonCode)
	assert.Equal(s.T(), model.ReviewSeverityMedium, reviews[0].Severity)
	assert.Equal(s.T(), model.ReviewStatusOpen, reviews[0].Status)

	select {
	case notice := <-s.reviews.Notices():
		assert.Equal(s.T(), deal.ID, notice.DealID)
		assert.Equal(s.T(), reviews[0].ID, notice.ReviewID)
	default:
		s.T().Fatal("expected a review notice")
	}

	// The same ambiguity on a later check reuses the open review
	_, _, err = s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	err = s.db.Where("deal_id = ?", deal.ID).Find(&reviews).Error
	require.NoError(s.T(), err)
	assert.Len(s.T(), reviews, 1)
}

func (s *ServiceTestSuite) TestApplyResultErrorOpensHighSeverityReview() {
	deal := s.verifyingDeal()

	res := &orchestrator.VerificationResult{
		DealID:  deal.ID,
		Outcome: orchestrator.OutcomeError,
		Raw:     []byte(`{"status":"error"}`),
	}
	updated, applied, err := s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	assert.True(s.T(), applied)
	assert.Equal(s.T(), model.DealStatusVerifying, updated.Status)
	require.True(s.T(), updated.VerificationScore.Valid)
	assert.Zero(s.T(), updated.VerificationScore.Int64)

	var review model.Review
	err = s.db.First(&review, "deal_id = ?", deal.ID).Error
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewReasonOrchestratorError, review.ReasonCode)
	assert.Equal(s.T(), model.ReviewSeverityHigh, review.Severity)
}

func (s *ServiceTestSuite) TestApplyResultClosesScheduleRow() {
	deal := s.verifyingDeal()

	var schedule model.VerificationSchedule
	err := s.db.First(&schedule, "deal_id = ?", deal.ID).Error
	require.NoError(s.T(), err)

	err = s.db.Model(&model.VerificationSchedule{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]interface{}{
			"status":                  model.ScheduleStatusRunning,
			"executed_at":             time.Now(),
			"orchestrator_request_id": "req-1",
		}).Error
	require.NoError(s.T(), err)

	_, _, err = s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 87), "req-1")
	require.NoError(s.T(), err)

	err = s.db.First(&schedule, "id = ?", schedule.ID).Error
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ScheduleStatusCompleted, schedule.Status)
	assert.True(s.T(), schedule.CompletedAt.Valid)
	require.True(s.T(), schedule.ConfidenceScore.Valid)
	assert.EqualValues(s.T(), 95, schedule.ConfidenceScore.Int64)
}

func (s *ServiceTestSuite) TestApplyResultUnknownDeal() {
	res := verificationResult("00000000-0000-0000-0000-000000000000", 87)
	_, _, err := s.service.ApplyResult(s.ctx, res, "")
	assert.ErrorIs(s.T(), err, ErrDealNotFound)
}

func (s *ServiceTestSuite) TestApplyResultCancelledDealDropped() {
	deal := s.verifyingDeal()
	_, err := s.service.Cancel(s.ctx, deal.ID, "adv-1")
	require.NoError(s.T(), err)

	updated, applied, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 87), "")
	require.NoError(s.T(), err)
	assert.False(s.T(), applied)
	assert.Equal(s.T(), model.DealStatusCancelled, updated.Status)
	assert.False(s.T(), updated.VerificationScore.Valid)
	assert.Empty(s.T(), s.settlements(deal.ID))
}

func (s *ServiceTestSuite) TestDuplicateFailureRefundsOnce() {
	s.connect("adv-1")
	deal := s.verifyingDeal()

	res := verificationResult(deal.ID, 20)
	_, applied, err := s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	assert.True(s.T(), applied)

	// Redelivered callback, the deal already failed
	_, applied, err = s.service.ApplyResult(s.ctx, res, "")
	require.NoError(s.T(), err)
	assert.False(s.T(), applied)

	settlements := s.settlements(deal.ID)
	require.Len(s.T(), settlements, 1)
	assert.Len(s.T(), s.backend.refunds, 1)
}

func (s *ServiceTestSuite) TestWindowCompletionPaysOut() {
	s.connect("crt-1")
	deal := s.verifyingDeal()

	_, _, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 87), "")
	require.NoError(s.T(), err)

	// Window still open, nothing to do
	processed, err := s.service.CompleteDue(s.ctx)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), processed)

	s.backdatePost(deal.ID, 25*time.Hour)

	processed, err = s.service.CompleteDue(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, processed)

	completed := s.loadDeal(deal.ID)
	assert.Equal(s.T(), model.DealStatusCompleted, completed.Status)
	assert.False(s.T(), completed.FailureReason.Valid)

	settlements := s.settlements(deal.ID)
	require.Len(s.T(), settlements, 1)
	assert.Equal(s.T(), model.SettlementTypePayout, settlements[0].Type)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlements[0].Status)
	assert.Equal(s.T(), "crt-1", settlements[0].RecipientID)
	assert.EqualValues(s.T(), 250000, settlements[0].Amount)

	require.Len(s.T(), s.backend.transfers, 1)
	assert.Equal(s.T(), "acct_crt-1", s.backend.transfers[0].Destination)

	var released int64
	err = s.db.Model(&model.EscrowEvent{}).
		Where("deal_id = ?", deal.ID).
		Where("event_type = ?", model.EscrowEventReleased).
		Count(&released).Error
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, released)

	// A second sweep finds nothing
	processed, err = s.service.CompleteDue(s.ctx)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), processed)
}

func (s *ServiceTestSuite) TestWindowCompletionWithoutPassFails() {
	s.connect("adv-1")
	deal := s.verifyingDeal()

	// Best score stays below the pass mark, the check lands in review
	_, _, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 70), "")
	require.NoError(s.T(), err)

	s.backdatePost(deal.ID, 25*time.Hour)

	processed, err := s.service.CompleteDue(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, processed)

	failed := s.loadDeal(deal.ID)
	assert.Equal(s.T(), model.DealStatusFailed, failed.Status)
	assert.Equal(s.T(), "duration completed without successful verification", failed.FailureReason.String)

	settlements := s.settlements(deal.ID)
	require.Len(s.T(), settlements, 1)
	assert.Equal(s.T(), model.SettlementTypeRefund, settlements[0].Type)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlements[0].Status)
	require.Len(s.T(), s.backend.refunds, 1)
	assert.Equal(s.T(), "tx-fund-1", s.backend.refunds[0].OriginalTxReference)

	var pending int64
	err = s.db.Model(&model.VerificationSchedule{}).
		Where("deal_id = ?", deal.ID).
		Where("status = ?", model.ScheduleStatusPending).
		Count(&pending).Error
	require.NoError(s.T(), err)
	assert.Zero(s.T(), pending)
}

func (s *ServiceTestSuite) TestApplyDecisionRelease() {
	s.connect("crt-1")
	deal := s.verifyingDeal()

	_, _, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 70), "")
	require.NoError(s.T(), err)

	var review model.Review
	err = s.db.First(&review, "deal_id = ?", deal.ID).Error
	require.NoError(s.T(), err)

	_, err = s.reviews.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)

	closed, err := s.reviews.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionRelease, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusClosed, closed.Status)

	// A release pays out immediately, it does not wait for the window
	completed := s.loadDeal(deal.ID)
	assert.Equal(s.T(), model.DealStatusCompleted, completed.Status)
	settlements := s.settlements(deal.ID)
	require.Len(s.T(), settlements, 1)
	assert.Equal(s.T(), model.SettlementTypePayout, settlements[0].Type)
}

func (s *ServiceTestSuite) TestApplyDecisionManualFail() {
	s.connect("adv-1")
	deal := s.verifyingDeal()

	_, _, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 70), "")
	require.NoError(s.T(), err)

	var review model.Review
	err = s.db.First(&review, "deal_id = ?", deal.ID).Error
	require.NoError(s.T(), err)
	_, err = s.reviews.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)

	_, err = s.reviews.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionManualFail, "fake engagement")
	require.NoError(s.T(), err)

	failed := s.loadDeal(deal.ID)
	assert.Equal(s.T(), model.DealStatusFailed, failed.Status)
	assert.Equal(s.T(), "failed by reviewer: fake engagement", failed.FailureReason.String)
	settlements := s.settlements(deal.ID)
	require.Len(s.T(), settlements, 1)
	assert.Equal(s.T(), model.SettlementTypeRefund, settlements[0].Type)
}

func (s *ServiceTestSuite) TestApplyDecisionDroppedWhenDealMoved() {
	deal := s.verifyingDeal()

	_, _, err := s.service.ApplyResult(s.ctx, verificationResult(deal.ID, 70), "")
	require.NoError(s.T(), err)

	var review model.Review
	err = s.db.First(&review, "deal_id = ?", deal.ID).Error
	require.NoError(s.T(), err)
	_, err = s.reviews.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)

	_, err = s.service.Cancel(s.ctx, deal.ID, "adv-1")
	require.NoError(s.T(), err)

	closed, err := s.reviews.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionRelease, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusClosed, closed.Status)

	// The deal finished another way while the review sat open
	assert.Equal(s.T(), model.DealStatusCancelled, s.loadDeal(deal.ID).Status)
	assert.Empty(s.T(), s.settlements(deal.ID))
}

func (s *ServiceTestSuite) TestPendingVerificationRequests() {
	deal := s.verifyingDeal()

	// A second deal that has not posted yet must not show up
	other, err := s.service.Create(s.ctx, s.createParams())
	require.NoError(s.T(), err)
	_, err = s.service.Accept(s.ctx, other.ID, "crt-2")
	require.NoError(s.T(), err)

	var schedule model.VerificationSchedule
	err = s.db.First(&schedule, "deal_id = ?", deal.ID).Error
	require.NoError(s.T(), err)
	err = s.db.Model(&model.VerificationSchedule{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]interface{}{
			"status":                  model.ScheduleStatusRunning,
			"executed_at":             time.Now(),
			"orchestrator_request_id": "req-42",
		}).Error
	require.NoError(s.T(), err)

	requests, err := s.service.PendingVerificationRequests(s.ctx)
	require.NoError(s.T(), err)
	require.Len(s.T(), requests, 1)
	assert.Equal(s.T(), deal.ID, requests[0].Metadata.DealID)
	assert.Equal(s.T(), "https://instagram.com/p/abc", requests[0].Url)
	assert.Equal(s.T(), "req-42", requests[0].RequestId)
	assert.Equal(s.T(), "mention the spring collection", requests[0].Metadata.ProofSpec.TextProof)
}
