package hitl

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/model"

	"github.com/jackc/pgtype"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrReviewClosed = errors.New("review is already closed")
	ErrNotAssigned  = errors.New("review is assigned to someone else")
)

// Applies a closing decision back to the deal the review belongs to.
// Implemented by the deal service, injected to break the package cycle.
type DecisionApplier interface {
	ApplyDecision(ctx context.Context, review *model.Review, decision model.ReviewDecision, notes string) error
}

// Service owns the manual review queue. Review creation is best-effort
// decoupled from notification delivery: notices go onto a bounded queue
// drained by a publisher task, a full queue drops the notice rather than
// blocking the verification path.
type Service struct {
	db      *gorm.DB
	log     *logrus.Entry
	config  *config.Config
	applier DecisionApplier
	notices chan *model.ReviewNotice
}

func NewService(config *config.Config, db *gorm.DB) (self *Service) {
	self = new(Service)
	self.db = db
	self.log = logger.NewSublogger("hitl")
	self.config = config
	self.notices = make(chan *model.ReviewNotice, config.Hitl.NoticeQueueSize)
	return
}

func (self *Service) WithApplier(applier DecisionApplier) *Service {
	self.applier = applier
	return self
}

// Notices is drained by the review notice publisher.
func (self *Service) Notices() <-chan *model.ReviewNotice {
	return self.notices
}

type CreateReviewParams struct {
	DealID     string
	RunID      string
	ReasonCode model.ReviewReason
	Severity   model.ReviewSeverity
	Evidence   []byte
}

// CreateReview opens a review unless one with the same reason is already open
// for the deal. Every schedule row hitting the same orchestrator outage would
// otherwise open its own copy.
func (self *Service) CreateReview(ctx context.Context, params *CreateReviewParams) (out *model.Review, err error) {
	var existing model.Review
	err = self.db.WithContext(ctx).
		Where("deal_id = ?", params.DealID).
		Where("reason_code = ?", params.ReasonCode).
		Where("status <> ?", model.ReviewStatusClosed).
		First(&existing).
		Error
	if err == nil {
		out = &existing
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}

	review := &model.Review{
		DealID:     params.DealID,
		ReasonCode: params.ReasonCode,
		Severity:   params.Severity,
		Status:     model.ReviewStatusOpen,
		Evidence:   pgtype.JSONB{Status: pgtype.Null},
	}
	if params.RunID != "" {
		review.RunID = sql.NullString{String: params.RunID, Valid: true}
	}
	if len(params.Evidence) > 0 {
		review.Evidence = pgtype.JSONB{Bytes: params.Evidence, Status: pgtype.Present}
	}

	err = self.db.WithContext(ctx).
		Create(review).
		Error
	if err != nil {
		return
	}

	self.log.WithField("deal_id", params.DealID).
		WithField("review_id", review.ID).
		WithField("reason", params.ReasonCode).
		Info("Review created")

	self.enqueueNotice(review, false)

	out = review
	return
}

// Assign hands the review to a reviewer. Reassignment of a non-closed review
// is allowed.
func (self *Service) Assign(ctx context.Context, reviewId int64, assigneeId string) (out *model.Review, err error) {
	res := self.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ?", reviewId).
		Where("status <> ?", model.ReviewStatusClosed).
		Updates(map[string]interface{}{
			"assignee_id": assigneeId,
			"status":      model.ReviewStatusAssigned,
		})
	if res.Error != nil {
		err = res.Error
		return
	}
	if res.RowsAffected == 0 {
		err = ErrReviewClosed
		return
	}

	var review model.Review
	err = self.db.WithContext(ctx).
		First(&review, "id = ?", reviewId).
		Error
	if err != nil {
		return
	}
	out = &review
	return
}

// ProcessDecision closes the review and feeds the decision back into the deal
// lifecycle. Escalation is the exception, it keeps the review open, raises the
// severity and re-sends the notice.
func (self *Service) ProcessDecision(ctx context.Context, reviewId int64, reviewerId string, elevated bool, decision model.ReviewDecision, notes string) (out *model.Review, err error) {
	var review model.Review
	err = self.db.WithContext(ctx).
		First(&review, "id = ?", reviewId).
		Error
	if err != nil {
		return
	}

	if review.Status == model.ReviewStatusClosed {
		err = ErrReviewClosed
		return
	}
	if !elevated && (!review.AssigneeID.Valid || review.AssigneeID.String != reviewerId) {
		err = ErrNotAssigned
		return
	}

	if decision == model.ReviewDecisionEscalate {
		res := self.db.WithContext(ctx).
			Model(&model.Review{}).
			Where("id = ?", reviewId).
			Where("status <> ?", model.ReviewStatusClosed).
			Update("severity", model.ReviewSeverityHigh)
		if res.Error != nil {
			err = res.Error
			return
		}
		if res.RowsAffected == 0 {
			err = ErrReviewClosed
			return
		}
		review.Severity = model.ReviewSeverityHigh
		self.enqueueNotice(&review, true)
		out = &review
		return
	}

	// The close is the idempotency gate, only the caller whose update lands
	// applies the decision to the deal
	now := time.Now()
	res := self.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("id = ?", reviewId).
		Where("status <> ?", model.ReviewStatusClosed).
		Updates(map[string]interface{}{
			"status":    model.ReviewStatusClosed,
			"decision":  decision,
			"notes":     notes,
			"closed_at": now,
		})
	if res.Error != nil {
		err = res.Error
		return
	}
	if res.RowsAffected == 0 {
		err = ErrReviewClosed
		return
	}

	review.Status = model.ReviewStatusClosed
	review.Decision = &decision
	review.Notes = sql.NullString{String: notes, Valid: true}
	review.ClosedAt = sql.NullTime{Time: now, Valid: true}

	self.log.WithField("review_id", reviewId).
		WithField("deal_id", review.DealID).
		WithField("decision", decision).
		Info("Review closed")

	if self.applier != nil {
		err = self.applier.ApplyDecision(ctx, &review, decision, notes)
		if err != nil {
			return
		}
	}

	out = &review
	return
}

// ListOpen returns non-closed reviews, oldest first.
func (self *Service) ListOpen(ctx context.Context, offset int) (out []model.Review, err error) {
	err = self.db.WithContext(ctx).
		Where("status <> ?", model.ReviewStatusClosed).
		Order("created_at ASC").
		Offset(offset).
		Limit(self.config.Hitl.ListPageSize).
		Find(&out).
		Error
	return
}

func (self *Service) enqueueNotice(review *model.Review, escalated bool) {
	notice := &model.ReviewNotice{
		ReviewID:   review.ID,
		DealID:     review.DealID,
		ReasonCode: review.ReasonCode,
		Severity:   review.Severity,
		Escalated:  escalated,
	}
	select {
	case self.notices <- notice:
	default:
		self.log.WithField("review_id", review.ID).
			Warn("Review notice queue full, notice dropped")
	}
}
