package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/task"

	"gorm.io/gorm"
)

// Periodically claims due verification schedules and hands them to the
// dispatcher. Claiming is a status flip inside the query, so concurrent
// verifier instances never grab the same row.
type Poller struct {
	*task.Task
	db      *gorm.DB
	monitor monitoring.Monitor

	// Claimed schedules, ready for dispatch
	Output chan *model.VerificationSchedule

	// Schedules that ran but never got a result
	Stale chan *model.VerificationSchedule
}

func NewPoller(config *config.Config) (self *Poller) {
	self = new(Poller)

	self.Output = make(chan *model.VerificationSchedule)
	self.Stale = make(chan *model.VerificationSchedule)

	self.Task = task.NewTask(config, "poller").
		WithRepeatedSubtaskFunc(config.Verifier.PollerInterval, self.handleDue).
		WithRepeatedSubtaskFunc(config.Verifier.PollerInterval, self.handleStale).
		WithOnAfterStop(func() {
			close(self.Output)
			close(self.Stale)
		})

	return
}

func (self *Poller) WithDB(db *gorm.DB) *Poller {
	self.db = db
	return self
}

func (self *Poller) WithMonitor(monitor monitoring.Monitor) *Poller {
	self.monitor = monitor
	return self
}

// Claims a batch of due schedules. Rows whose deal deadline already passed
// are expired first so they never reach the dispatcher.
func (self *Poller) handleDue() (repeat bool, err error) {
	// Interrupts longer queries
	ctx, cancel := context.WithTimeout(self.Ctx, 5*time.Minute)
	defer cancel()

	err = self.expire(ctx)
	if err != nil {
		return
	}

	schedules := make([]*model.VerificationSchedule, 0, self.Config.Verifier.PollerBatchSize)

	err = self.db.WithContext(ctx).
		Raw(`UPDATE verification_schedules
			SET status = 'RUNNING', executed_at = NOW(), updated_at = NOW()
			WHERE id IN (
				SELECT s.id
				FROM verification_schedules s
				JOIN deals d ON d.id = s.deal_id
				WHERE s.status = 'PENDING'
					AND s.scheduled_at <= NOW() + ?::interval
					AND d.status = 'VERIFYING'
					AND d.post_url IS NOT NULL
					AND d.post_url <> ''
					AND NOT EXISTS (
						SELECT 1 FROM verification_schedules r
						WHERE r.deal_id = s.deal_id AND r.status = 'RUNNING')
				ORDER BY s.scheduled_at ASC, s.id ASC
				LIMIT ?
				FOR UPDATE OF s SKIP LOCKED)
			RETURNING *`,
			fmt.Sprintf("%d seconds", int(self.Config.Verifier.PollerLookahead.Seconds())),
			self.Config.Verifier.PollerBatchSize).
		Scan(&schedules).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to claim due verification schedules")

		// Update monitoring
		self.monitor.GetReport().Verifier.Errors.DbClaimError.Inc()
		return
	}

	if len(schedules) > 0 {
		self.Log.WithField("len", len(schedules)).Debug("Claimed due verification schedules")
	}

	for _, schedule := range schedules {
		select {
		case <-self.Ctx.Done():
			return
		case self.Output <- schedule:
		}
	}

	// Update monitoring
	self.monitor.GetReport().Verifier.State.SchedulesClaimed.Add(uint64(len(schedules)))
	self.monitor.GetReport().Verifier.State.LastPollTimestamp.Store(time.Now().Unix())

	// A full batch means there may be more rows waiting
	repeat = len(schedules) == self.Config.Verifier.PollerBatchSize
	return
}

// Pending schedules whose deal deadline passed are dead, the duration sweep
// decides the deal from scores already recorded.
func (self *Poller) expire(ctx context.Context) (err error) {
	ids := make([]int64, 0, self.Config.Verifier.PollerBatchSize)

	err = self.db.WithContext(ctx).
		Raw(`UPDATE verification_schedules
			SET status = 'EXPIRED', updated_at = NOW()
			WHERE id IN (
				SELECT s.id
				FROM verification_schedules s
				JOIN deals d ON d.id = s.deal_id
				WHERE s.status = 'PENDING' AND d.deadline < NOW()
				LIMIT ?
				FOR UPDATE OF s SKIP LOCKED)
			RETURNING id`,
			self.Config.Verifier.PollerBatchSize).
		Scan(&ids).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to expire overdue verification schedules")

		// Update monitoring
		self.monitor.GetReport().Verifier.Errors.DbClaimError.Inc()
		return
	}

	if len(ids) > 0 {
		self.Log.WithField("len", len(ids)).Debug("Expired overdue verification schedules")

		// Update monitoring
		self.monitor.GetReport().Verifier.State.SchedulesExpired.Add(uint64(len(ids)))
	}
	return
}

// Schedules stuck in RUNNING past the stale window never got their result.
// They're written off as failed and re-emitted so the dispatcher can route
// them to review.
func (self *Poller) handleStale() (repeat bool, err error) {
	// Interrupts longer queries
	ctx, cancel := context.WithTimeout(self.Ctx, 5*time.Minute)
	defer cancel()

	schedules := make([]*model.VerificationSchedule, 0, self.Config.Verifier.PollerBatchSize)

	err = self.db.WithContext(ctx).
		Raw(`UPDATE verification_schedules
			SET status = 'FAILED', completed_at = NOW(), updated_at = NOW()
			WHERE id IN (
				SELECT id
				FROM verification_schedules
				WHERE status = 'RUNNING' AND executed_at < NOW() - ?::interval
				ORDER BY executed_at ASC, id ASC
				LIMIT ?
				FOR UPDATE SKIP LOCKED)
			RETURNING *`,
			fmt.Sprintf("%d seconds", int(self.Config.Verifier.StaleAfter.Seconds())),
			self.Config.Verifier.PollerBatchSize).
		Scan(&schedules).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to claim stale verification schedules")

		// Update monitoring
		self.monitor.GetReport().Verifier.Errors.DbClaimError.Inc()
		return
	}

	if len(schedules) == 0 {
		return
	}

	self.Log.WithField("len", len(schedules)).Warn("Wrote off stale running verification schedules")

	for _, schedule := range schedules {
		select {
		case <-self.Ctx.Done():
			return
		case self.Stale <- schedule:
		}
	}

	repeat = len(schedules) == self.Config.Verifier.PollerBatchSize
	return
}
