package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/payment"
	"github.com/pactline/escrowd/src/utils/testutil"

	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestExecutorTestSuite(t *testing.T) {
	suite.Run(t, new(ExecutorTestSuite))
}

type fakeBackend struct {
	transfers []*payment.TransferRequest
	refunds   []*payment.RefundRequest
	err       error
}

func (self *fakeBackend) Transfer(ctx context.Context, req *payment.TransferRequest) (*payment.TransferResult, error) {
	if self.err != nil {
		return nil, self.err
	}
	self.transfers = append(self.transfers, req)
	return &payment.TransferResult{TxReference: fmt.Sprintf("out-%d", len(self.transfers))}, nil
}

func (self *fakeBackend) Refund(ctx context.Context, req *payment.RefundRequest) (*payment.TransferResult, error) {
	if self.err != nil {
		return nil, self.err
	}
	self.refunds = append(self.refunds, req)
	return &payment.TransferResult{TxReference: fmt.Sprintf("back-%d", len(self.refunds))}, nil
}

type ExecutorTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	db       *gorm.DB
	backend  *fakeBackend
	executor *Executor
}

func (s *ExecutorTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()
}

func (s *ExecutorTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *ExecutorTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T(),
		&model.Deal{},
		&model.EscrowEvent{},
		&model.Settlement{},
		&model.PaymentConnection{},
	)

	s.backend = new(fakeBackend)
	registry := payment.NewRegistry(s.config).
		WithBackend(model.PaymentMethodStripe, s.backend).
		WithBackend(model.PaymentMethodTreasury, s.backend)
	s.executor = NewExecutor(s.db, registry, payment.NewConnections(s.config, s.db))
}

// seedDeal inserts a deal with an accepted creator and a funding event.
func (s *ExecutorTestSuite) seedDeal(status model.DealStatus) *model.Deal {
	deal := &model.Deal{
		ID:                 uuid.NewString(),
		AdvertiserID:       "adv-1",
		CreatorID:          sql.NullString{String: "crt-1", Valid: true},
		Platform:           "instagram",
		Amount:             250000,
		Currency:           "usd",
		Status:             status,
		Deadline:           time.Now().Add(48 * time.Hour),
		OrchestratorResult: pgtype.JSONB{Status: pgtype.Null},
	}
	require.NoError(s.T(), s.db.Create(deal).Error)

	require.NoError(s.T(), s.db.Create(&model.EscrowEvent{
		DealID:        deal.ID,
		EventType:     model.EscrowEventCreated,
		Amount:        deal.Amount,
		Currency:      deal.Currency,
		PaymentMethod: model.PaymentMethodStripe,
		TxReference:   sql.NullString{String: "tx-fund-1", Valid: true},
		OccurredAt:    time.Now(),
		ArchiveState:  model.ArchiveStatePending,
	}).Error)

	return deal
}

func (s *ExecutorTestSuite) connect(userId string) {
	require.NoError(s.T(), s.db.Create(&model.PaymentConnection{
		UserID:      userId,
		Method:      model.PaymentMethodStripe,
		Destination: "acct_" + userId,
		Status:      model.ConnectionStatusConnected,
	}).Error)
}

func (s *ExecutorTestSuite) TestPayoutRequiresCompletedDeal() {
	deal := s.seedDeal(model.DealStatusVerifying)
	_, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	assert.ErrorIs(s.T(), err, ErrNotSettleable)

	completed := s.seedDeal(model.DealStatusCompleted)
	_, err = s.executor.RefundEscrow(s.ctx, completed.ID, "")
	assert.ErrorIs(s.T(), err, ErrNotSettleable)
}

func (s *ExecutorTestSuite) TestPayoutHappyPath() {
	s.connect("crt-1")
	deal := s.seedDeal(model.DealStatusCompleted)

	settlement, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlement.Status)
	assert.Equal(s.T(), model.SettlementTypePayout, settlement.Type)
	assert.Equal(s.T(), "crt-1", settlement.RecipientID)
	assert.Equal(s.T(), "out-1", settlement.TxReference.String)
	assert.True(s.T(), settlement.SettledAt.Valid)

	require.Len(s.T(), s.backend.transfers, 1)
	assert.Equal(s.T(), "acct_crt-1", s.backend.transfers[0].Destination)
	assert.EqualValues(s.T(), 250000, s.backend.transfers[0].Amount)
	assert.Contains(s.T(), s.backend.transfers[0].Reference, "escrowd-payout")

	var released model.EscrowEvent
	err = s.db.Where("deal_id = ?", deal.ID).
		Where("event_type = ?", model.EscrowEventReleased).
		First(&released).Error
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "out-1", released.TxReference.String)
}

func (s *ExecutorTestSuite) TestPayoutIdempotent() {
	s.connect("crt-1")
	deal := s.seedDeal(model.DealStatusCompleted)

	first, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)

	second, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), first.ID, second.ID)
	assert.Len(s.T(), s.backend.transfers, 1)

	var count int64
	require.NoError(s.T(), s.db.Model(&model.Settlement{}).
		Where("deal_id = ?", deal.ID).
		Count(&count).Error)
	assert.EqualValues(s.T(), 1, count)
}

func (s *ExecutorTestSuite) TestRefundReversesFunding() {
	s.connect("adv-1")
	deal := s.seedDeal(model.DealStatusFailed)

	settlement, err := s.executor.RefundEscrow(s.ctx, deal.ID, "requirements not met: logo visible")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlement.Status)
	assert.Equal(s.T(), "adv-1", settlement.RecipientID)
	assert.Equal(s.T(), "requirements not met: logo visible", settlement.Reason.String)

	require.Len(s.T(), s.backend.refunds, 1)
	assert.Equal(s.T(), "tx-fund-1", s.backend.refunds[0].OriginalTxReference)
	assert.Equal(s.T(), "acct_adv-1", s.backend.refunds[0].Destination)

	var refunded model.EscrowEvent
	err = s.db.Where("deal_id = ?", deal.ID).
		Where("event_type = ?", model.EscrowEventRefunded).
		First(&refunded).Error
	require.NoError(s.T(), err)
}

func (s *ExecutorTestSuite) TestRefundAllowedWhenCancelled() {
	s.connect("adv-1")
	deal := s.seedDeal(model.DealStatusCancelled)

	settlement, err := s.executor.RefundEscrow(s.ctx, deal.ID, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlement.Status)
	assert.False(s.T(), settlement.Reason.Valid)
}

func (s *ExecutorTestSuite) TestUnfundedDealRejected() {
	deal := &model.Deal{
		ID:                 uuid.NewString(),
		AdvertiserID:       "adv-1",
		CreatorID:          sql.NullString{String: "crt-1", Valid: true},
		Platform:           "instagram",
		Amount:             250000,
		Currency:           "usd",
		Status:             model.DealStatusCompleted,
		Deadline:           time.Now().Add(48 * time.Hour),
		OrchestratorResult: pgtype.JSONB{Status: pgtype.Null},
	}
	require.NoError(s.T(), s.db.Create(deal).Error)

	_, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	assert.ErrorIs(s.T(), err, ErrNotFunded)
}

func (s *ExecutorTestSuite) TestPayoutWithoutCreatorRejected() {
	deal := s.seedDeal(model.DealStatusCompleted)
	require.NoError(s.T(), s.db.Model(&model.Deal{}).
		Where("id = ?", deal.ID).
		Update("creator_id", nil).Error)

	_, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	assert.ErrorIs(s.T(), err, ErrNoRecipient)
}

func (s *ExecutorTestSuite) TestParkedUntilConnection() {
	deal := s.seedDeal(model.DealStatusCompleted)

	parked, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusAwaitingConnection, parked.Status)
	assert.Empty(s.T(), s.backend.transfers)

	// A repeated trigger adopts the parked row
	again, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), parked.ID, again.ID)
	assert.Equal(s.T(), model.SettlementStatusAwaitingConnection, again.Status)

	// Retrying without a connection is harmless
	retried, err := s.executor.Retry(s.ctx, parked.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusAwaitingConnection, retried.Status)

	s.connect("crt-1")

	retried, err = s.executor.Retry(s.ctx, parked.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusCompleted, retried.Status)
	assert.Len(s.T(), s.backend.transfers, 1)

	var released int64
	require.NoError(s.T(), s.db.Model(&model.EscrowEvent{}).
		Where("deal_id = ?", deal.ID).
		Where("event_type = ?", model.EscrowEventReleased).
		Count(&released).Error)
	assert.EqualValues(s.T(), 1, released)
}

func (s *ExecutorTestSuite) TestRetryIgnoresSettledRows() {
	s.connect("crt-1")
	deal := s.seedDeal(model.DealStatusCompleted)

	settlement, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.SettlementStatusCompleted, settlement.Status)

	retried, err := s.executor.Retry(s.ctx, settlement.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), settlement.ID, retried.ID)
	assert.Len(s.T(), s.backend.transfers, 1)
}

func (s *ExecutorTestSuite) TestFailedAttemptGetsFreshRetry() {
	s.connect("crt-1")
	deal := s.seedDeal(model.DealStatusCompleted)

	s.backend.err = errors.New("stripe is down")
	_, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	assert.EqualError(s.T(), err, "stripe is down")

	var failed model.Settlement
	require.NoError(s.T(), s.db.Where("deal_id = ?", deal.ID).First(&failed).Error)
	assert.Equal(s.T(), model.SettlementStatusFailed, failed.Status)
	assert.Equal(s.T(), "stripe is down", failed.FailureReason.String)

	// FAILED rows do not block the next attempt
	s.backend.err = nil
	settlement, err := s.executor.ReleaseEscrow(s.ctx, deal.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.SettlementStatusCompleted, settlement.Status)
	assert.NotEqual(s.T(), failed.ID, settlement.ID)

	var count int64
	require.NoError(s.T(), s.db.Model(&model.Settlement{}).
		Where("deal_id = ?", deal.ID).
		Count(&count).Error)
	assert.EqualValues(s.T(), 2, count)
}
