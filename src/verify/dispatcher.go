package verify

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/hitl"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/orchestrator"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submits claimed verification schedules to the analysis service. Dispatch is
// fire-and-forget, results come back through the gateway callback or the
// polling endpoint.
type Dispatcher struct {
	*task.Task
	db      *gorm.DB
	monitor monitoring.Monitor
	client  *orchestrator.Client
	reviews *hitl.Service

	input <-chan *model.VerificationSchedule
	stale <-chan *model.VerificationSchedule
}

func NewDispatcher(config *config.Config) (self *Dispatcher) {
	self = new(Dispatcher)

	self.Task = task.NewTask(config, "dispatcher").
		WithSubtaskFunc(self.run).
		WithSubtaskFunc(self.runStale).
		WithWorkerPool(config.Verifier.NumWorkers, config.Verifier.WorkerQueueSize)

	return
}

func (self *Dispatcher) WithDB(db *gorm.DB) *Dispatcher {
	self.db = db
	return self
}

func (self *Dispatcher) WithClient(client *orchestrator.Client) *Dispatcher {
	self.client = client
	return self
}

func (self *Dispatcher) WithReviews(reviews *hitl.Service) *Dispatcher {
	self.reviews = reviews
	return self
}

func (self *Dispatcher) WithInputChannel(input <-chan *model.VerificationSchedule) *Dispatcher {
	self.input = input
	return self
}

func (self *Dispatcher) WithStaleChannel(stale <-chan *model.VerificationSchedule) *Dispatcher {
	self.stale = stale
	return self
}

func (self *Dispatcher) WithMonitor(monitor monitoring.Monitor) *Dispatcher {
	self.monitor = monitor
	return self
}

func (self *Dispatcher) run() error {
	// Quits when the poller closes the channel
	for schedule := range self.input {
		self.Log.WithField("schedule_id", schedule.ID).WithField("deal_id", schedule.DealID).Debug("Got schedule to dispatch")

		schedule := schedule

		self.SubmitToWorker(func() {
			self.dispatch(schedule)
		})

		// Blocking here stalls the poller, the next batch stays unclaimed
		// until the workers catch up
		for self.GetWorkerQueueFillFactor() > 0.9 {
			select {
			case <-self.Ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}

	return nil
}

func (self *Dispatcher) runStale() error {
	for schedule := range self.stale {
		schedule := schedule

		self.SubmitToWorker(func() {
			self.writeOff(schedule)
		})
	}

	return nil
}

func (self *Dispatcher) dispatch(schedule *model.VerificationSchedule) {
	var (
		deal model.Deal
		spec model.ProofSpec
	)

	err := self.db.WithContext(self.Ctx).
		Where("id = ?", schedule.DealID).
		First(&deal).
		Error
	if err != nil {
		self.Log.WithError(err).WithField("deal_id", schedule.DealID).Error("Failed to load deal for dispatch")
		self.fail(schedule)
		return
	}

	// The claim query checked this, but the deal may have moved since
	if deal.Status != model.DealStatusVerifying {
		self.Log.WithField("deal_id", deal.ID).WithField("status", deal.Status).Debug("Deal no longer verifying, cancelling schedule")
		self.finish(schedule, model.ScheduleStatusCancelled)
		return
	}

	err = self.db.WithContext(self.Ctx).
		Where("deal_id = ?", schedule.DealID).
		First(&spec).
		Error
	if err != nil {
		self.Log.WithError(err).WithField("deal_id", schedule.DealID).Error("Failed to load proof spec for dispatch")
		self.fail(schedule)
		return
	}

	// The request id ties the asynchronous result back to this row, so it has
	// to be persisted before the request leaves the process
	requestId := uuid.NewString()
	err = self.db.WithContext(self.Ctx).
		Model(&model.VerificationSchedule{}).
		Where("id = ?", schedule.ID).
		Update("orchestrator_request_id", requestId).
		Error
	if err != nil {
		self.Log.WithError(err).WithField("schedule_id", schedule.ID).Error("Failed to save orchestrator request id")
		self.fail(schedule)
		return
	}

	err = self.client.Dispatch(self.Ctx, orchestrator.NewDispatchRequest(self.Config, &deal, &spec, requestId))
	if err != nil {
		self.Log.WithError(err).
			WithField("deal_id", deal.ID).
			WithField("request_id", requestId).
			Error("Failed to dispatch verification request")

		// Update monitoring
		self.monitor.GetReport().Verifier.Errors.DispatchError.Inc()

		// A failed dispatch is not a failed verification, the next schedule
		// row is the retry. Timeouts go to a human, the service may still be
		// processing the request.
		self.fail(schedule)
		if isTimeout(err) {
			self.review(schedule)
		}
		return
	}

	self.Log.WithField("deal_id", deal.ID).WithField("request_id", requestId).Debug("Dispatched verification request")

	// Update monitoring
	self.monitor.GetReport().Verifier.State.ChecksDispatched.Inc()
}

func (self *Dispatcher) writeOff(schedule *model.VerificationSchedule) {
	self.review(schedule)
}

func (self *Dispatcher) fail(schedule *model.VerificationSchedule) {
	self.finish(schedule, model.ScheduleStatusFailed)
}

func (self *Dispatcher) finish(schedule *model.VerificationSchedule, status model.ScheduleStatus) {
	err := self.db.WithContext(self.Ctx).
		Model(&model.VerificationSchedule{}).
		Where("id = ?", schedule.ID).
		Where("status = ?", model.ScheduleStatusRunning).
		Updates(map[string]interface{}{
			"status":       status,
			"completed_at": time.Now(),
		}).
		Error
	if err != nil {
		self.Log.WithError(err).WithField("schedule_id", schedule.ID).Error("Failed to update schedule status")

		// Update monitoring
		self.monitor.GetReport().Verifier.Errors.DbStateUpdateError.Inc()
	}
}

func (self *Dispatcher) review(schedule *model.VerificationSchedule) {
	_, err := self.reviews.CreateReview(self.Ctx, &hitl.CreateReviewParams{
		DealID:     schedule.DealID,
		RunID:      schedule.OrchestratorRequestID.String,
		ReasonCode: model.ReviewReasonOrchestratorError,
		Severity:   model.ReviewSeverityHigh,
	})
	if err != nil {
		self.Log.WithError(err).WithField("deal_id", schedule.DealID).Error("Failed to open review for failed verification run")
		return
	}

	// Update monitoring
	self.monitor.GetReport().Verifier.State.ReviewsRequested.Inc()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
