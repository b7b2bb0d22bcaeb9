package deal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/hitl"
	"github.com/pactline/escrowd/src/utils/lifecycle"
	"github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/settlement"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrDealNotFound    = errors.New("deal not found")
	ErrInvalidAmount   = errors.New("amount has to be positive")
	ErrInvalidCurrency = errors.New("currency is required")
	ErrEmptyTextProof  = errors.New("text proof is required")
	ErrInvalidDuration = errors.New("duration is not on the allow-list")
	ErrDeadlinePast    = errors.New("deadline is in the past")
	ErrNotAdvertiser   = errors.New("only the advertiser may do this")
	ErrNotParty        = errors.New("only a party to the deal may do this")
	ErrSpecLocked      = errors.New("proof spec can no longer be edited")
)

// Service applies lifecycle transitions to deals. All status writes go through
// the status-guarded conditional update, so concurrent callers (API, callback,
// sweeps) can race without locks: a missed guard means someone else already
// moved the deal and the loser's transition is dropped.
type Service struct {
	db       *gorm.DB
	log      *logrus.Entry
	config   *config.Config
	executor *settlement.Executor
	reviews  *hitl.Service
}

func NewService(config *config.Config, db *gorm.DB) (self *Service) {
	self = new(Service)
	self.db = db
	self.log = logger.NewSublogger("deal")
	self.config = config
	return
}

func (self *Service) WithExecutor(executor *settlement.Executor) *Service {
	self.executor = executor
	return self
}

func (self *Service) WithReviews(reviews *hitl.Service) *Service {
	self.reviews = reviews
	return self
}

type SpecParams struct {
	TextProof     string
	DurationHours int
	VisualMarkers []string
	VideoMarkers  []string
	LinkMarkers   []string
}

func (self *SpecParams) validate() error {
	if self.TextProof == "" {
		return ErrEmptyTextProof
	}
	if !model.IsAllowedDuration(self.DurationHours) {
		return ErrInvalidDuration
	}
	return nil
}

type CreateParams struct {
	AdvertiserID string
	Platform     string
	Amount       int64
	Currency     string
	Deadline     time.Time
	PublicOptIn  bool
	Spec         SpecParams
}

// Create opens a deal in PENDING_ACCEPTANCE together with its proof spec.
func (self *Service) Create(ctx context.Context, params *CreateParams) (out *model.Deal, err error) {
	if params.Amount <= 0 {
		err = ErrInvalidAmount
		return
	}
	if params.Currency == "" {
		err = ErrInvalidCurrency
		return
	}
	if !params.Deadline.After(time.Now()) {
		err = ErrDeadlinePast
		return
	}
	err = params.Spec.validate()
	if err != nil {
		return
	}

	deal := &model.Deal{
		ID:                 uuid.NewString(),
		AdvertiserID:       params.AdvertiserID,
		Platform:           params.Platform,
		Amount:             params.Amount,
		Currency:           params.Currency,
		Status:             model.DealStatusPendingAcceptance,
		Deadline:           params.Deadline,
		PublicOptIn:        params.PublicOptIn,
		OrchestratorResult: pgtype.JSONB{Status: pgtype.Null},
	}
	spec := &model.ProofSpec{
		DealID:        deal.ID,
		TextProof:     params.Spec.TextProof,
		DurationHours: params.Spec.DurationHours,
		VisualMarkers: pq.StringArray(params.Spec.VisualMarkers),
		VideoMarkers:  pq.StringArray(params.Spec.VideoMarkers),
		LinkMarkers:   pq.StringArray(params.Spec.LinkMarkers),
		Revision:      1,
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(deal).Error; err != nil {
			return err
		}
		return tx.Create(spec).Error
	})
	if err != nil {
		return
	}

	self.log.WithField("deal_id", deal.ID).
		WithField("advertiser", deal.AdvertiserID).
		WithField("amount", deal.Amount).
		Info("Deal created")

	out = deal
	return
}

// Accept pairs a creator with the deal and moves it to PENDING_FUNDING.
func (self *Service) Accept(ctx context.Context, dealId string, creatorId string) (out *model.Deal, err error) {
	deal, err := self.getDeal(ctx, dealId)
	if err != nil {
		return
	}

	err = lifecycle.CanAccept(deal, creatorId)
	if err != nil {
		return
	}

	updated, err := model.UpdateDealIfStatus(self.db.WithContext(ctx), dealId,
		model.DealStatusPendingAcceptance,
		map[string]interface{}{
			"status":     model.DealStatusPendingFunding,
			"creator_id": creatorId,
		})
	if err != nil {
		return
	}
	if !updated {
		err = lifecycle.ErrWrongStatus
		return
	}

	self.log.WithField("deal_id", dealId).
		WithField("creator", creatorId).
		Info("Deal accepted")

	return self.getDeal(ctx, dealId)
}

// ConfirmFunding records the escrow funding event and opens the verification
// phase. Also the re-entry point for funding retries of failed deals.
func (self *Service) ConfirmFunding(ctx context.Context, dealId string, method model.PaymentMethod, txReference string) (out *model.Deal, err error) {
	deal, err := self.getDeal(ctx, dealId)
	if err != nil {
		return
	}

	err = lifecycle.CanConfirmFunding(deal)
	if err != nil {
		return
	}

	now := time.Now()
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := model.UpdateDealIfStatusIn(tx, dealId,
			[]model.DealStatus{model.DealStatusPendingFunding, model.DealStatusFailed},
			map[string]interface{}{
				"status":         model.DealStatusPendingVerification,
				"failure_reason": nil,
			})
		if err != nil {
			return err
		}
		if !updated {
			return lifecycle.ErrWrongStatus
		}

		event := &model.EscrowEvent{
			DealID:        dealId,
			EventType:     model.EscrowEventCreated,
			Amount:        deal.Amount,
			Currency:      deal.Currency,
			PaymentMethod: method,
			OccurredAt:    now,
			ArchiveState:  model.ArchiveStatePending,
		}
		if txReference != "" {
			event.TxReference = sql.NullString{String: txReference, Valid: true}
		}
		return tx.Create(event).Error
	})
	if err != nil {
		return
	}

	self.log.WithField("deal_id", dealId).
		WithField("method", method).
		WithField("tx_reference", txReference).
		Info("Escrow funded")

	return self.getDeal(ctx, dealId)
}

// SubmitPost records the proof post and lays out the verification schedule
// ladder in the same transaction. The initial check is picked up by the
// dispatch poller on its next tick.
func (self *Service) SubmitPost(ctx context.Context, dealId string, creatorId string, postURL string, publicOptIn bool) (out *model.Deal, err error) {
	deal, err := self.getDeal(ctx, dealId)
	if err != nil {
		return
	}

	err = lifecycle.CanSubmitPost(deal, creatorId)
	if err != nil {
		return
	}
	err = lifecycle.ValidatePostURL(postURL)
	if err != nil {
		return
	}

	spec, err := self.getSpec(ctx, dealId)
	if err != nil {
		return
	}

	now := time.Now()
	if !now.Before(deal.Deadline) {
		err = ErrDeadlinePast
		return
	}

	slots := lifecycle.BuildSchedule(now, deal.Deadline, spec.DurationHours)
	schedules := make([]*model.VerificationSchedule, 0, len(slots))
	for _, slot := range slots {
		schedules = append(schedules, &model.VerificationSchedule{
			DealID:      dealId,
			ScheduledAt: slot.At,
			CheckType:   slot.CheckType,
			Status:      model.ScheduleStatusPending,
			Result:      pgtype.JSONB{Status: pgtype.Null},
		})
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, err := model.UpdateDealIfStatus(tx, dealId,
			model.DealStatusPendingVerification,
			map[string]interface{}{
				"status":        model.DealStatusVerifying,
				"posted_at":     now,
				"post_url":      postURL,
				"public_opt_in": publicOptIn,
			})
		if err != nil {
			return err
		}
		if !updated {
			return lifecycle.ErrWrongStatus
		}
		return tx.Create(schedules).Error
	})
	if err != nil {
		return
	}

	self.log.WithField("deal_id", dealId).
		WithField("post_url", postURL).
		WithField("num_checks", len(schedules)).
		Info("Proof post submitted, verification started")

	return self.getDeal(ctx, dealId)
}

// Cancel moves a non-terminal deal to CANCELLED. Deliberately does not refund
// by itself, refunding a funded cancelled deal is a separate, explicit call.
func (self *Service) Cancel(ctx context.Context, dealId string, actorId string) (out *model.Deal, err error) {
	deal, err := self.getDeal(ctx, dealId)
	if err != nil {
		return
	}

	if actorId != deal.AdvertiserID && (!deal.CreatorID.Valid || deal.CreatorID.String != actorId) {
		err = ErrNotParty
		return
	}
	err = lifecycle.CanCancel(deal)
	if err != nil {
		return
	}

	updated, err := model.UpdateDealIfStatusIn(self.db.WithContext(ctx), dealId,
		model.NonTerminalDealStatuses,
		map[string]interface{}{
			"status":       model.DealStatusCancelled,
			"cancelled_at": time.Now(),
		})
	if err != nil {
		return
	}
	if !updated {
		err = lifecycle.ErrWrongStatus
		return
	}

	err = self.markPendingSchedules(ctx, dealId, model.ScheduleStatusCancelled)
	if err != nil {
		return
	}

	self.log.WithField("deal_id", dealId).
		WithField("actor", actorId).
		Info("Deal cancelled")

	return self.getDeal(ctx, dealId)
}

// UpdateProofSpec lets the creator adjust the criteria while the deal is
// still live, keeping an append-only trail of every revision.
func (self *Service) UpdateProofSpec(ctx context.Context, dealId string, actorId string, params *SpecParams) (out *model.ProofSpec, err error) {
	deal, err := self.getDeal(ctx, dealId)
	if err != nil {
		return
	}

	if !deal.CreatorID.Valid || actorId != deal.CreatorID.String {
		err = lifecycle.ErrNotCreator
		return
	}
	if deal.Status.IsTerminal() {
		err = ErrSpecLocked
		return
	}
	err = params.validate()
	if err != nil {
		return
	}

	spec, err := self.getSpec(ctx, dealId)
	if err != nil {
		return
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		revision := spec.Revision + 1
		err := tx.Model(&model.ProofSpec{}).
			Where("id = ?", spec.ID).
			Where("revision = ?", spec.Revision).
			Updates(map[string]interface{}{
				"text_proof":     params.TextProof,
				"duration_hours": params.DurationHours,
				"visual_markers": pq.StringArray(params.VisualMarkers),
				"video_markers":  pq.StringArray(params.VideoMarkers),
				"link_markers":   pq.StringArray(params.LinkMarkers),
				"revision":       revision,
			}).
			Error
		if err != nil {
			return err
		}

		return tx.Create(&model.ProofSpecRevision{
			DealID:        dealId,
			Revision:      revision,
			TextProof:     params.TextProof,
			DurationHours: params.DurationHours,
			VisualMarkers: pq.StringArray(params.VisualMarkers),
			VideoMarkers:  pq.StringArray(params.VideoMarkers),
			LinkMarkers:   pq.StringArray(params.LinkMarkers),
			EditedBy:      actorId,
		}).Error
	})
	if err != nil {
		return
	}

	self.log.WithField("deal_id", dealId).
		WithField("editor", actorId).
		Info("Proof spec updated")

	return self.getSpec(ctx, dealId)
}

// Get returns the deal with its proof spec.
func (self *Service) Get(ctx context.Context, dealId string) (deal *model.Deal, spec *model.ProofSpec, err error) {
	deal, err = self.getDeal(ctx, dealId)
	if err != nil {
		return
	}
	spec, err = self.getSpec(ctx, dealId)
	return
}

// List returns deals the user is a party to, newest first.
func (self *Service) List(ctx context.Context, userId string, offset int) (out []model.Deal, err error) {
	err = self.db.WithContext(ctx).
		Where("advertiser_id = ? OR creator_id = ?", userId, userId).
		Order("created_at DESC").
		Offset(offset).
		Limit(self.config.Gateway.ListPageSize).
		Find(&out).
		Error
	return
}

func (self *Service) getDeal(ctx context.Context, dealId string) (out *model.Deal, err error) {
	var deal model.Deal
	err = self.db.WithContext(ctx).
		First(&deal, "id = ?", dealId).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrDealNotFound
		return
	}
	if err != nil {
		return
	}
	out = &deal
	return
}

func (self *Service) getSpec(ctx context.Context, dealId string) (out *model.ProofSpec, err error) {
	var spec model.ProofSpec
	err = self.db.WithContext(ctx).
		First(&spec, "deal_id = ?", dealId).
		Error
	if err != nil {
		return
	}
	out = &spec
	return
}

func (self *Service) markPendingSchedules(ctx context.Context, dealId string, to model.ScheduleStatus) error {
	return self.db.WithContext(ctx).
		Model(&model.VerificationSchedule{}).
		Where("deal_id = ?", dealId).
		Where("status = ?", model.ScheduleStatusPending).
		Update("status", to).
		Error
}
