package hitl

import (
	"context"
	"testing"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/testutil"

	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

type recordingApplier struct {
	reviews   []*model.Review
	decisions []model.ReviewDecision
	notes     []string
	err       error
}

func (self *recordingApplier) ApplyDecision(ctx context.Context, review *model.Review, decision model.ReviewDecision, notes string) error {
	if self.err != nil {
		return self.err
	}
	self.reviews = append(self.reviews, review)
	self.decisions = append(self.decisions, decision)
	self.notes = append(self.notes, notes)
	return nil
}

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	config  *config.Config
	db      *gorm.DB
	applier *recordingApplier
	service *Service
}

func (s *ServiceTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.config = config.Default()
}

func (s *ServiceTestSuite) TearDownSuite() {
	s.cancel()
}

func (s *ServiceTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T(), &model.Review{})
	s.applier = new(recordingApplier)
	s.service = NewService(s.config, s.db).WithApplier(s.applier)
}

func (s *ServiceTestSuite) createReview(dealId string) *model.Review {
	review, err := s.service.CreateReview(s.ctx, &CreateReviewParams{
		DealID:     dealId,
		RunID:      "req-1",
		ReasonCode: model.ReviewReasonManualReviewNeeded,
		Severity:   model.ReviewSeverityMedium,
		Evidence:   []byte(`{"overall_score":70}`),
	})
	require.NoError(s.T(), err)
	return review
}

// drainNotice pops one notice without blocking, nil when the queue is empty.
func (s *ServiceTestSuite) drainNotice() *model.ReviewNotice {
	select {
	case notice := <-s.service.Notices():
		return notice
	default:
		return nil
	}
}

func (s *ServiceTestSuite) TestCreateReview() {
	review := s.createReview("deal-1")
	assert.Equal(s.T(), model.ReviewStatusOpen, review.Status)
	assert.Equal(s.T(), "req-1", review.RunID.String)
	assert.Equal(s.T(), pgtype.Present, review.Evidence.Status)

	notice := s.drainNotice()
	require.NotNil(s.T(), notice)
	assert.Equal(s.T(), review.ID, notice.ReviewID)
	assert.Equal(s.T(), "deal-1", notice.DealID)
	assert.Equal(s.T(), model.ReviewSeverityMedium, notice.Severity)
	assert.False(s.T(), notice.Escalated)
}

func (s *ServiceTestSuite) TestCreateReviewDedupes() {
	first := s.createReview("deal-1")
	second := s.createReview("deal-1")
	assert.Equal(s.T(), first.ID, second.ID)

	// A different reason is a different problem
	other, err := s.service.CreateReview(s.ctx, &CreateReviewParams{
		DealID:     "deal-1",
		ReasonCode: model.ReviewReasonOrchestratorError,
		Severity:   model.ReviewSeverityHigh,
	})
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), first.ID, other.ID)

	var count int64
	require.NoError(s.T(), s.db.Model(&model.Review{}).Count(&count).Error)
	assert.EqualValues(s.T(), 2, count)
}

func (s *ServiceTestSuite) TestFullNoticeQueueDoesNotBlock() {
	config := config.Default()
	config.Hitl.NoticeQueueSize = 1
	service := NewService(config, s.db)

	_, err := service.CreateReview(s.ctx, &CreateReviewParams{
		DealID:     "deal-1",
		ReasonCode: model.ReviewReasonManualReviewNeeded,
		Severity:   model.ReviewSeverityMedium,
	})
	require.NoError(s.T(), err)

	// The second notice is dropped, review creation must still succeed
	_, err = service.CreateReview(s.ctx, &CreateReviewParams{
		DealID:     "deal-2",
		ReasonCode: model.ReviewReasonManualReviewNeeded,
		Severity:   model.ReviewSeverityMedium,
	})
	require.NoError(s.T(), err)

	var count int64
	require.NoError(s.T(), s.db.Model(&model.Review{}).Count(&count).Error)
	assert.EqualValues(s.T(), 2, count)
}

func (s *ServiceTestSuite) TestAssign() {
	review := s.createReview("deal-1")

	assigned, err := s.service.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusAssigned, assigned.Status)
	assert.Equal(s.T(), "rev-1", assigned.AssigneeID.String)

	// Handover before a decision is fine
	reassigned, err := s.service.Assign(s.ctx, review.ID, "rev-2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "rev-2", reassigned.AssigneeID.String)

	_, err = s.service.Assign(s.ctx, 99999, "rev-1")
	assert.ErrorIs(s.T(), err, ErrReviewClosed)
}

func (s *ServiceTestSuite) TestProcessDecisionRequiresAssignee() {
	review := s.createReview("deal-1")

	_, err := s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionRefund, "")
	assert.ErrorIs(s.T(), err, ErrNotAssigned)

	_, err = s.service.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)

	_, err = s.service.ProcessDecision(s.ctx, review.ID, "rev-2", false, model.ReviewDecisionRefund, "")
	assert.ErrorIs(s.T(), err, ErrNotAssigned)

	closed, err := s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionRefund, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusClosed, closed.Status)
}

func (s *ServiceTestSuite) TestElevatedReviewerBypassesAssignment() {
	review := s.createReview("deal-1")

	closed, err := s.service.ProcessDecision(s.ctx, review.ID, "admin-1", true, model.ReviewDecisionRelease, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusClosed, closed.Status)
	require.Len(s.T(), s.applier.decisions, 1)
	assert.Equal(s.T(), model.ReviewDecisionRelease, s.applier.decisions[0])
}

func (s *ServiceTestSuite) TestProcessDecisionClosesAndApplies() {
	review := s.createReview("deal-1")
	_, err := s.service.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)

	closed, err := s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionManualFail, "stock footage")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusClosed, closed.Status)
	require.NotNil(s.T(), closed.Decision)
	assert.Equal(s.T(), model.ReviewDecisionManualFail, *closed.Decision)
	assert.Equal(s.T(), "stock footage", closed.Notes.String)
	assert.True(s.T(), closed.ClosedAt.Valid)

	require.Len(s.T(), s.applier.decisions, 1)
	assert.Equal(s.T(), model.ReviewDecisionManualFail, s.applier.decisions[0])
	assert.Equal(s.T(), "stock footage", s.applier.notes[0])

	// The close is the idempotency gate
	_, err = s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionRefund, "")
	assert.ErrorIs(s.T(), err, ErrReviewClosed)
	assert.Len(s.T(), s.applier.decisions, 1)
}

func (s *ServiceTestSuite) TestEscalateKeepsReviewOpen() {
	review := s.createReview("deal-1")
	_, err := s.service.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)
	s.drainNotice()

	escalated, err := s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionEscalate, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewSeverityHigh, escalated.Severity)
	assert.Empty(s.T(), s.applier.decisions)

	var stored model.Review
	require.NoError(s.T(), s.db.First(&stored, "id = ?", review.ID).Error)
	assert.NotEqual(s.T(), model.ReviewStatusClosed, stored.Status)
	assert.Equal(s.T(), model.ReviewSeverityHigh, stored.Severity)

	notice := s.drainNotice()
	require.NotNil(s.T(), notice)
	assert.True(s.T(), notice.Escalated)
	assert.Equal(s.T(), model.ReviewSeverityHigh, notice.Severity)

	// An escalated review can still be decided
	closed, err := s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionManualFail, "")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.ReviewStatusClosed, closed.Status)
}

func (s *ServiceTestSuite) TestApplierErrorSurfaces() {
	review := s.createReview("deal-1")
	_, err := s.service.Assign(s.ctx, review.ID, "rev-1")
	require.NoError(s.T(), err)

	s.applier.err = assert.AnError
	_, err = s.service.ProcessDecision(s.ctx, review.ID, "rev-1", false, model.ReviewDecisionRefund, "")
	assert.ErrorIs(s.T(), err, assert.AnError)
}

func (s *ServiceTestSuite) TestListOpenOldestFirst() {
	first := s.createReview("deal-1")
	s.createReview("deal-2")
	third := s.createReview("deal-3")

	_, err := s.service.ProcessDecision(s.ctx, third.ID, "admin-1", true, model.ReviewDecisionRelease, "")
	require.NoError(s.T(), err)

	open, err := s.service.ListOpen(s.ctx, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), open, 2)
	assert.Equal(s.T(), first.ID, open[0].ID)
	assert.Equal(s.T(), "deal-2", open[1].DealID)
}
