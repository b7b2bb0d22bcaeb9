package lifecycle

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/orchestrator"
)

// Score thresholds of the automated verdict.
const (
	// At or above: success, completion still gated on the observation window
	ScoreAutoPass = 80

	// At or above (but below auto-pass): ambiguous, goes to a human
	ScoreAmbiguous = 60

	// Below: the verdict itself is not trusted, goes to a human
	ConfidenceFloor = 70
)

var (
	ErrWrongStatus    = errors.New("deal status does not permit this transition")
	ErrOwnDeal        = errors.New("cannot accept your own deal")
	ErrNotCreator     = errors.New("only the accepted creator may do this")
	ErrInvalidPostURL = errors.New("post url is not a valid http(s) url")
)

type SettleAction int

const (
	SettleNone SettleAction = iota
	SettlePayout
	SettleRefund
)

// Review the verdict asks to open, nil if none.
type ReviewRequest struct {
	Reason   model.ReviewReason
	Severity model.ReviewSeverity
}

// Verdict of a single trigger: the status the deal should hold afterwards and
// the side effects to run. Pure data, the caller persists and executes.
type Verdict struct {
	Status        model.DealStatus
	FailureReason string
	RecordScore   int
	Review        *ReviewRequest
	Settle        SettleAction

	// Reviewer asked for re-notification instead of a transition
	Escalate bool
}

// EvaluateResult decides what a verification result does to a deal that is
// still VERIFYING. Requirement failures dominate the score: a high score with
// a failed named requirement is still a failed deal.
func EvaluateResult(res *orchestrator.VerificationResult) (v Verdict) {
	v.RecordScore = res.OverallScore

	if res.Outcome == orchestrator.OutcomeError {
		v.Status = model.DealStatusVerifying
		v.RecordScore = 0
		v.Review = &ReviewRequest{
			Reason:   model.ReviewReasonOrchestratorError,
			Severity: model.ReviewSeverityHigh,
		}
		return
	}

	if len(res.RequirementsFailed) > 0 {
		v.Status = model.DealStatusFailed
		v.FailureReason = "requirements not met: " + strings.Join(res.RequirementsFailed, ", ")
		v.Settle = SettleRefund
		return
	}

	if res.OverallScore >= ScoreAutoPass {
		// Success recorded, completion waits for the observation window
		v.Status = model.DealStatusVerifying
		return
	}

	if res.OverallScore >= ScoreAmbiguous || res.Confidence < ConfidenceFloor {
		v.Status = model.DealStatusVerifying
		reason := model.ReviewReasonManualReviewNeeded
		if res.OverallScore < ScoreAmbiguous {
			reason = model.ReviewReasonAmbiguousInference
		}
		v.Review = &ReviewRequest{
			Reason:   reason,
			Severity: model.ReviewSeverityMedium,
		}
		return
	}

	v.Status = model.DealStatusFailed
	v.FailureReason = fmt.Sprintf("verification score %d below threshold with confidence %d", res.OverallScore, res.Confidence)
	v.Settle = SettleRefund
	return
}

// EvaluateDuration decides whether a VERIFYING deal whose observation window
// elapsed completes or fails. due=false means the window is still open and
// nothing happens.
func EvaluateDuration(score int, now, completionTime time.Time) (v Verdict, due bool) {
	if now.Before(completionTime) {
		return
	}
	due = true

	if score >= ScoreAutoPass {
		v.Status = model.DealStatusCompleted
		v.Settle = SettlePayout
		return
	}

	v.Status = model.DealStatusFailed
	v.FailureReason = "duration completed without successful verification"
	v.Settle = SettleRefund
	return
}

// EvaluateDecision maps a reviewer decision to a verdict. A release pays out
// immediately, it is not gated on the observation window - the reviewer's
// judgment replaces the automated one entirely.
func EvaluateDecision(decision model.ReviewDecision, notes string) (v Verdict) {
	switch decision {
	case model.ReviewDecisionRelease:
		v.Status = model.DealStatusCompleted
		v.Settle = SettlePayout
	case model.ReviewDecisionRefund, model.ReviewDecisionManualFail:
		v.Status = model.DealStatusFailed
		v.FailureReason = "failed by reviewer"
		if notes != "" {
			v.FailureReason = "failed by reviewer: " + notes
		}
		v.Settle = SettleRefund
	case model.ReviewDecisionEscalate:
		v.Status = model.DealStatusVerifying
		v.Escalate = true
	}
	return
}

// Transition guards. Validation only, no side effects.

func CanAccept(deal *model.Deal, actorID string) error {
	if deal.Status != model.DealStatusPendingAcceptance {
		return ErrWrongStatus
	}
	if actorID == deal.AdvertiserID {
		return ErrOwnDeal
	}
	return nil
}

// Funding is confirmed from PENDING_FUNDING, or from FAILED as the
// funding-retry path after a refunded failure.
func CanConfirmFunding(deal *model.Deal) error {
	if deal.Status != model.DealStatusPendingFunding && deal.Status != model.DealStatusFailed {
		return ErrWrongStatus
	}
	return nil
}

func CanSubmitPost(deal *model.Deal, actorID string) error {
	if deal.Status != model.DealStatusPendingVerification {
		return ErrWrongStatus
	}
	if !deal.CreatorID.Valid || actorID != deal.CreatorID.String {
		return ErrNotCreator
	}
	return nil
}

func CanCancel(deal *model.Deal) error {
	if deal.Status.IsTerminal() {
		return ErrWrongStatus
	}
	return nil
}

func ValidatePostURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidPostURL
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidPostURL
	}
	return nil
}
