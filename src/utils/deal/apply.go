package deal

import (
	"context"
	"time"

	"github.com/pactline/escrowd/src/utils/hitl"
	"github.com/pactline/escrowd/src/utils/lifecycle"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/orchestrator"

	"github.com/jackc/pgtype"
)

// ApplyResult feeds a normalized verification result into the deal. Returns
// applied=false when the deal was not VERIFYING anymore or another actor wrote
// first, both mean the result was recorded at most as schedule audit and
// otherwise dropped.
func (self *Service) ApplyResult(ctx context.Context, res *orchestrator.VerificationResult, requestId string) (out *model.Deal, applied bool, err error) {
	out, err = self.getDeal(ctx, res.DealID)
	if err != nil {
		return
	}

	verdict := lifecycle.EvaluateResult(res)

	if out.Status != model.DealStatusVerifying {
		// Late result, the deal moved on. Keep the audit trail on the
		// schedule row.
		self.completeSchedule(ctx, requestId, res)
		self.log.WithField("deal_id", res.DealID).
			WithField("status", out.Status).
			Debug("Dropping verification result for non-verifying deal")
		return
	}

	patch := map[string]interface{}{
		"verification_score":   verdict.RecordScore,
		"last_verification_at": time.Now(),
		"orchestrator_result":  jsonbFrom(res.Raw),
	}
	if verdict.Status != model.DealStatusVerifying {
		patch["status"] = verdict.Status
		patch["failure_reason"] = verdict.FailureReason
	}

	applied, err = model.UpdateDealIfStatus(self.db.WithContext(ctx), res.DealID,
		model.DealStatusVerifying, patch)
	if err != nil {
		return
	}
	if !applied {
		self.completeSchedule(ctx, requestId, res)
		return
	}

	self.completeSchedule(ctx, requestId, res)

	if verdict.Review != nil {
		self.openReview(ctx, res.DealID, requestId, verdict.Review, res.Raw)
	}
	if verdict.Status == model.DealStatusFailed {
		err = self.markPendingSchedules(ctx, res.DealID, model.ScheduleStatusCancelled)
		if err != nil {
			return
		}
	}
	self.triggerSettlement(ctx, res.DealID, verdict.Settle, verdict.FailureReason)

	self.log.WithField("deal_id", res.DealID).
		WithField("outcome", res.Outcome).
		WithField("score", verdict.RecordScore).
		WithField("next_status", verdict.Status).
		Info("Verification result applied")

	return self.getDealApplied(ctx, res.DealID)
}

// CompleteDue finishes VERIFYING deals whose observation window elapsed.
// Completion is decided by the last recorded score, a deal that never scored
// at or above the pass mark fails here.
func (self *Service) CompleteDue(ctx context.Context) (processed int, err error) {
	var deals []model.Deal
	err = self.db.WithContext(ctx).
		Where("status = ?", model.DealStatusVerifying).
		Where("posted_at IS NOT NULL").
		Order("posted_at ASC").
		Limit(self.config.Verifier.CompleterBatchSize).
		Find(&deals).
		Error
	if err != nil {
		return
	}

	now := time.Now()
	for i := range deals {
		deal := &deals[i]

		spec, specErr := self.getSpec(ctx, deal.ID)
		if specErr != nil {
			self.log.WithError(specErr).
				WithField("deal_id", deal.ID).
				Error("Failed to load proof spec for due check")
			continue
		}

		score := 0
		if deal.VerificationScore.Valid {
			score = int(deal.VerificationScore.Int64)
		}

		verdict, due := lifecycle.EvaluateDuration(score, now, deal.CompletionTime(spec.DurationHours))
		if !due {
			continue
		}

		patch := map[string]interface{}{"status": verdict.Status}
		if verdict.FailureReason != "" {
			patch["failure_reason"] = verdict.FailureReason
		}
		updated, casErr := model.UpdateDealIfStatus(self.db.WithContext(ctx), deal.ID,
			model.DealStatusVerifying, patch)
		if casErr != nil {
			err = casErr
			return
		}
		if !updated {
			continue
		}

		scheduleState := model.ScheduleStatusCompleted
		if verdict.Status == model.DealStatusFailed {
			scheduleState = model.ScheduleStatusCancelled
		}
		err = self.markPendingSchedules(ctx, deal.ID, scheduleState)
		if err != nil {
			return
		}

		self.triggerSettlement(ctx, deal.ID, verdict.Settle, verdict.FailureReason)

		self.log.WithField("deal_id", deal.ID).
			WithField("score", score).
			WithField("status", verdict.Status).
			Info("Observation window completed")
		processed += 1
	}
	return
}

// ApplyDecision implements hitl.DecisionApplier. A miss on the status guard
// means the deal finished some other way while the review sat open, the
// decision is then dropped.
func (self *Service) ApplyDecision(ctx context.Context, review *model.Review, decision model.ReviewDecision, notes string) (err error) {
	verdict := lifecycle.EvaluateDecision(decision, notes)
	if verdict.Escalate {
		return
	}

	patch := map[string]interface{}{"status": verdict.Status}
	if verdict.FailureReason != "" {
		patch["failure_reason"] = verdict.FailureReason
	}

	updated, err := model.UpdateDealIfStatus(self.db.WithContext(ctx), review.DealID,
		model.DealStatusVerifying, patch)
	if err != nil {
		return
	}
	if !updated {
		self.log.WithField("deal_id", review.DealID).
			WithField("review_id", review.ID).
			WithField("decision", decision).
			Info("Reviewer decision dropped, deal no longer verifying")
		return
	}

	scheduleState := model.ScheduleStatusCompleted
	if verdict.Status == model.DealStatusFailed {
		scheduleState = model.ScheduleStatusCancelled
	}
	err = self.markPendingSchedules(ctx, review.DealID, scheduleState)
	if err != nil {
		return
	}

	self.triggerSettlement(ctx, review.DealID, verdict.Settle, verdict.FailureReason)

	self.log.WithField("deal_id", review.DealID).
		WithField("review_id", review.ID).
		WithField("decision", decision).
		WithField("status", verdict.Status).
		Info("Reviewer decision applied")
	return
}

// completeSchedule closes the schedule row the result belongs to. Audit only,
// failures are logged and swallowed.
func (self *Service) completeSchedule(ctx context.Context, requestId string, res *orchestrator.VerificationResult) {
	if requestId == "" {
		return
	}

	status := model.ScheduleStatusCompleted
	if res.Outcome == orchestrator.OutcomeError {
		status = model.ScheduleStatusFailed
	}

	err := self.db.WithContext(ctx).
		Model(&model.VerificationSchedule{}).
		Where("orchestrator_request_id = ?", requestId).
		Where("status IN ?", []model.ScheduleStatus{model.ScheduleStatusRunning, model.ScheduleStatusPending}).
		Updates(map[string]interface{}{
			"status":           status,
			"completed_at":     time.Now(),
			"confidence_score": res.Confidence,
			"result":           jsonbFrom(res.Raw),
		}).
		Error
	if err != nil {
		self.log.WithError(err).
			WithField("request_id", requestId).
			Error("Failed to close verification schedule")
	}
}

func (self *Service) openReview(ctx context.Context, dealId string, requestId string, req *lifecycle.ReviewRequest, evidence []byte) {
	if self.reviews == nil {
		self.log.WithField("deal_id", dealId).
			Warn("No review service wired, review request dropped")
		return
	}

	_, err := self.reviews.CreateReview(ctx, &hitl.CreateReviewParams{
		DealID:     dealId,
		RunID:      requestId,
		ReasonCode: req.Reason,
		Severity:   req.Severity,
		Evidence:   evidence,
	})
	if err != nil {
		self.log.WithError(err).
			WithField("deal_id", dealId).
			Error("Failed to create review")
	}
}

// triggerSettlement runs the executor synchronously. Failures are logged, not
// returned: the deal transition already happened and the FAILED settlement row
// is the retry handle.
func (self *Service) triggerSettlement(ctx context.Context, dealId string, action lifecycle.SettleAction, reason string) {
	if action == lifecycle.SettleNone {
		return
	}
	if self.executor == nil {
		self.log.WithField("deal_id", dealId).
			Warn("No settlement executor wired, settlement dropped")
		return
	}

	var err error
	switch action {
	case lifecycle.SettlePayout:
		_, err = self.executor.ReleaseEscrow(ctx, dealId)
	case lifecycle.SettleRefund:
		_, err = self.executor.RefundEscrow(ctx, dealId, reason)
	}
	if err != nil {
		self.log.WithError(err).
			WithField("deal_id", dealId).
			Error("Settlement attempt failed")
	}
}

// PendingVerificationRequests serves the pull variant of dispatch: the
// analysis service fetches work for verifying deals instead of being pushed
// to. Read only, the request id is filled in when a run is in flight so the
// result can be tied back to its schedule row.
func (self *Service) PendingVerificationRequests(ctx context.Context) (out []*orchestrator.DispatchRequest, err error) {
	var deals []model.Deal
	err = self.db.WithContext(ctx).
		Where("status = ?", model.DealStatusVerifying).
		Where("post_url IS NOT NULL").
		Where("post_url <> ''").
		Order("posted_at ASC").
		Limit(self.config.Orchestrator.PollBatchSize).
		Find(&deals).
		Error
	if err != nil {
		return
	}

	out = make([]*orchestrator.DispatchRequest, 0, len(deals))
	for i := range deals {
		deal := &deals[i]

		spec, err := self.getSpec(ctx, deal.ID)
		if err != nil {
			self.log.WithError(err).WithField("deal_id", deal.ID).Error("Failed to load proof spec for polling")
			continue
		}

		var requestId string
		var running model.VerificationSchedule
		err = self.db.WithContext(ctx).
			Where("deal_id = ?", deal.ID).
			Where("status = ?", model.ScheduleStatusRunning).
			Order("executed_at DESC").
			First(&running).
			Error
		if err == nil {
			requestId = running.OrchestratorRequestID.String
		}

		out = append(out, orchestrator.NewDispatchRequest(self.config, deal, spec, requestId))
	}
	return out, nil
}

func (self *Service) getDealApplied(ctx context.Context, dealId string) (out *model.Deal, applied bool, err error) {
	out, err = self.getDeal(ctx, dealId)
	applied = err == nil
	return
}

func jsonbFrom(raw []byte) pgtype.JSONB {
	if len(raw) == 0 {
		return pgtype.JSONB{Status: pgtype.Null}
	}
	return pgtype.JSONB{Bytes: raw, Status: pgtype.Present}
}
