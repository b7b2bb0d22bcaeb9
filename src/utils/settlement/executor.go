package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/monitoring/report"
	"github.com/pactline/escrowd/src/utils/payment"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNotSettleable = errors.New("deal status does not permit settlement")
	ErrNotFunded     = errors.New("deal has no funding event")
	ErrNoRecipient   = errors.New("deal has no settlement recipient")
)

// Executor moves escrowed funds out of the platform, exactly once per deal and
// direction. Callers race freely (callback, cron sweep, admin retry), the
// per-deal lock plus the live-settlement check plus the partial unique index
// on settlements make the double-spend window closed rather than merely small.
type Executor struct {
	db          *gorm.DB
	log         *logrus.Entry
	registry    *payment.Registry
	connections *payment.Connections
	locks       *keyedMutex
	monitor     monitoring.Monitor
}

func NewExecutor(db *gorm.DB, registry *payment.Registry, connections *payment.Connections) (self *Executor) {
	self = new(Executor)
	self.db = db
	self.log = logger.NewSublogger("settlement")
	self.registry = registry
	self.connections = connections
	self.locks = newKeyedMutex()
	return
}

func (self *Executor) WithMonitor(monitor monitoring.Monitor) *Executor {
	self.monitor = monitor
	return self
}

// The executor runs inside apps whose monitor may not carry the settler
// section, counters are best effort.
func (self *Executor) report() *report.SettlerReport {
	if self.monitor == nil {
		return nil
	}
	return self.monitor.GetReport().Settler
}

// ReleaseEscrow pays the escrowed amount out to the creator of a completed
// deal. Safe to call repeatedly, the first live payout row wins.
func (self *Executor) ReleaseEscrow(ctx context.Context, dealId string) (out *model.Settlement, err error) {
	return self.settle(ctx, dealId, model.SettlementTypePayout, "")
}

// RefundEscrow returns the escrowed amount to the advertiser of a failed or
// cancelled deal. Safe to call repeatedly.
func (self *Executor) RefundEscrow(ctx context.Context, dealId string, reason string) (out *model.Settlement, err error) {
	return self.settle(ctx, dealId, model.SettlementTypeRefund, reason)
}

func (self *Executor) settle(ctx context.Context, dealId string, settlementType model.SettlementType, reason string) (out *model.Settlement, err error) {
	unlock := self.locks.Lock(dealId)
	defer unlock()

	// Idempotency check. A COMPLETED, PENDING_SETTLEMENT or
	// AWAITING_CONNECTION row of this type means the money is already
	// spoken for.
	out, err = self.findLive(ctx, dealId, settlementType)
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}

	var deal model.Deal
	err = self.db.WithContext(ctx).
		First(&deal, "id = ?", dealId).
		Error
	if err != nil {
		return
	}

	err = checkDealStatus(&deal, settlementType)
	if err != nil {
		return
	}

	funding, err := self.findFunding(ctx, dealId)
	if err != nil {
		return
	}

	recipientId, err := recipient(&deal, settlementType)
	if err != nil {
		return
	}

	settlement := &model.Settlement{
		DealID:      dealId,
		Type:        settlementType,
		Amount:      funding.Amount,
		Currency:    funding.Currency,
		Method:      funding.PaymentMethod,
		RecipientID: recipientId,
	}
	if reason != "" {
		settlement.Reason = sql.NullString{String: reason, Valid: true}
	}

	connection, err := self.connections.Lookup(ctx, recipientId, funding.PaymentMethod)
	if errors.Is(err, payment.ErrNoConnection) {
		// Park the attempt, the retry sweep picks it up once the
		// recipient connects a destination
		settlement.Status = model.SettlementStatusAwaitingConnection
		out, err = self.insert(ctx, settlement)
		if err != nil {
			return
		}
		self.log.WithField("deal_id", dealId).
			WithField("type", settlementType).
			WithField("recipient", recipientId).
			Info("Recipient has no payment connection, settlement parked")

		// Update monitoring
		if r := self.report(); r != nil {
			r.State.SettlementsParked.Inc()
		}
		return
	}
	if err != nil {
		return
	}

	settlement.Status = model.SettlementStatusPending
	out, err = self.insert(ctx, settlement)
	if err != nil {
		return
	}
	if out.Status != model.SettlementStatusPending || out.ID != settlement.ID {
		// Lost the insert race, the winning attempt carries the transfer
		return
	}

	return self.execute(ctx, out, funding, connection.Destination)
}

// Retry re-runs a parked settlement. Called by the sweep once the recipient
// shows a connected destination, and harmless if the connection vanished again.
func (self *Executor) Retry(ctx context.Context, settlementId int64) (out *model.Settlement, err error) {
	var parked model.Settlement
	err = self.db.WithContext(ctx).
		First(&parked, "id = ?", settlementId).
		Error
	if err != nil {
		return
	}

	unlock := self.locks.Lock(parked.DealID)
	defer unlock()

	// Re-read under the lock, a concurrent retry may have run already
	err = self.db.WithContext(ctx).
		First(&parked, "id = ?", settlementId).
		Error
	if err != nil {
		return
	}
	out = &parked
	if parked.Status != model.SettlementStatusAwaitingConnection {
		return
	}

	connection, err := self.connections.Lookup(ctx, parked.RecipientID, parked.Method)
	if errors.Is(err, payment.ErrNoConnection) {
		err = nil
		return
	}
	if err != nil {
		return
	}

	res := self.db.WithContext(ctx).
		Model(&model.Settlement{}).
		Where("id = ?", parked.ID).
		Where("status = ?", model.SettlementStatusAwaitingConnection).
		Update("status", model.SettlementStatusPending)
	if res.Error != nil {
		err = res.Error
		return
	}
	if res.RowsAffected == 0 {
		return
	}
	parked.Status = model.SettlementStatusPending

	funding, err := self.findFunding(ctx, parked.DealID)
	if err != nil {
		return
	}

	return self.execute(ctx, &parked, funding, connection.Destination)
}

// execute performs the backend call for a PENDING_SETTLEMENT row owned by the
// caller and records the outcome.
func (self *Executor) execute(ctx context.Context, settlement *model.Settlement, funding *model.EscrowEvent, destination string) (out *model.Settlement, err error) {
	out = settlement

	backend, err := self.registry.For(settlement.Method)
	if err != nil {
		self.fail(ctx, settlement, err)
		return
	}

	var result *payment.TransferResult
	switch settlement.Type {
	case model.SettlementTypePayout:
		result, err = backend.Transfer(ctx, &payment.TransferRequest{
			Destination: destination,
			Amount:      settlement.Amount,
			Currency:    settlement.Currency,
			Reference:   fmt.Sprintf("escrowd-payout-%d", settlement.ID),
		})
	case model.SettlementTypeRefund:
		result, err = backend.Refund(ctx, &payment.RefundRequest{
			Destination:         destination,
			Amount:              settlement.Amount,
			Currency:            settlement.Currency,
			Reference:           fmt.Sprintf("escrowd-refund-%d", settlement.ID),
			OriginalTxReference: funding.TxReference.String,
		})
	default:
		err = fmt.Errorf("unknown settlement type: %s", settlement.Type)
	}
	if err != nil {
		self.fail(ctx, settlement, err)
		return
	}

	now := time.Now()
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settlement.Status = model.SettlementStatusCompleted
		settlement.TxReference = sql.NullString{String: result.TxReference, Valid: true}
		settlement.SettledAt = sql.NullTime{Time: now, Valid: true}
		err = tx.Model(&model.Settlement{}).
			Where("id = ?", settlement.ID).
			Updates(map[string]interface{}{
				"status":       settlement.Status,
				"tx_reference": settlement.TxReference,
				"settled_at":   settlement.SettledAt,
			}).
			Error
		if err != nil {
			return err
		}

		return tx.Create(&model.EscrowEvent{
			DealID:        settlement.DealID,
			EventType:     ledgerEventType(settlement.Type),
			Amount:        settlement.Amount,
			Currency:      settlement.Currency,
			PaymentMethod: settlement.Method,
			TxReference:   settlement.TxReference,
			OccurredAt:    now,
			ArchiveState:  model.ArchiveStatePending,
		}).Error
	})
	if err != nil {
		// The transfer went out, only the bookkeeping failed. Keep the
		// backend reference in the log so the row can be reconciled.
		self.log.WithError(err).
			WithField("deal_id", settlement.DealID).
			WithField("tx_reference", result.TxReference).
			Error("Failed to record settled transfer")
		return
	}

	self.log.WithField("deal_id", settlement.DealID).
		WithField("type", settlement.Type).
		WithField("amount", settlement.Amount).
		WithField("tx_reference", result.TxReference).
		Info("Settlement completed")

	// Update monitoring
	if r := self.report(); r != nil {
		switch settlement.Type {
		case model.SettlementTypePayout:
			r.State.PayoutsCompleted.Inc()
		case model.SettlementTypeRefund:
			r.State.RefundsCompleted.Inc()
		}
	}
	return
}

// fail marks the attempt FAILED. The partial unique index ignores FAILED rows,
// so a later call gets a fresh attempt.
func (self *Executor) fail(ctx context.Context, settlement *model.Settlement, cause error) {
	settlement.Status = model.SettlementStatusFailed
	settlement.FailureReason = sql.NullString{String: cause.Error(), Valid: true}
	err := self.db.WithContext(ctx).
		Model(&model.Settlement{}).
		Where("id = ?", settlement.ID).
		Updates(map[string]interface{}{
			"status":         settlement.Status,
			"failure_reason": settlement.FailureReason,
		}).
		Error
	if err != nil {
		self.log.WithError(err).
			WithField("settlement_id", settlement.ID).
			Error("Failed to mark settlement failed")
	}
	self.log.WithError(cause).
		WithField("deal_id", settlement.DealID).
		WithField("type", settlement.Type).
		Warn("Settlement attempt failed")

	// Update monitoring
	if r := self.report(); r != nil {
		r.State.SettlementsFailed.Inc()
		r.Errors.BackendError.Inc()
	}
}

func (self *Executor) insert(ctx context.Context, settlement *model.Settlement) (out *model.Settlement, err error) {
	err = self.db.WithContext(ctx).
		Create(settlement).
		Error
	if err == nil {
		out = settlement
		return
	}
	if !isUniqueViolation(err) {
		return
	}
	// Another caller inserted between our check and our insert, adopt
	// their row
	return self.findLive(ctx, settlement.DealID, settlement.Type)
}

func (self *Executor) findLive(ctx context.Context, dealId string, settlementType model.SettlementType) (out *model.Settlement, err error) {
	var settlement model.Settlement
	err = self.db.WithContext(ctx).
		Where("deal_id = ?", dealId).
		Where("type = ?", settlementType).
		Where("status <> ?", model.SettlementStatusFailed).
		First(&settlement).
		Error
	if err != nil {
		return
	}
	out = &settlement
	return
}

// findFunding returns the escrow funding event, the source of amount, currency
// and payment method for the settlement.
func (self *Executor) findFunding(ctx context.Context, dealId string) (out *model.EscrowEvent, err error) {
	var event model.EscrowEvent
	err = self.db.WithContext(ctx).
		Where("deal_id = ?", dealId).
		Where("event_type = ?", model.EscrowEventCreated).
		Order("occurred_at DESC").
		First(&event).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNotFunded
		return
	}
	if err != nil {
		return
	}
	out = &event
	return
}

func checkDealStatus(deal *model.Deal, settlementType model.SettlementType) (err error) {
	switch settlementType {
	case model.SettlementTypePayout:
		if deal.Status != model.DealStatusCompleted {
			err = fmt.Errorf("%w: payout requires COMPLETED, deal is %s", ErrNotSettleable, deal.Status)
		}
	case model.SettlementTypeRefund:
		if deal.Status != model.DealStatusFailed && deal.Status != model.DealStatusCancelled {
			err = fmt.Errorf("%w: refund requires FAILED or CANCELLED, deal is %s", ErrNotSettleable, deal.Status)
		}
	}
	return
}

func recipient(deal *model.Deal, settlementType model.SettlementType) (out string, err error) {
	switch settlementType {
	case model.SettlementTypePayout:
		if !deal.CreatorID.Valid {
			err = ErrNoRecipient
			return
		}
		out = deal.CreatorID.String
	default:
		out = deal.AdvertiserID
	}
	return
}

func ledgerEventType(settlementType model.SettlementType) model.EscrowEventType {
	if settlementType == model.SettlementTypePayout {
		return model.EscrowEventReleased
	}
	return model.EscrowEventRefunded
}

// Both postgres and sqlite surface constraint breaches only through the error
// text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
