package settle

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/settlement"
	"github.com/pactline/escrowd/src/utils/task"

	"go.uber.org/ratelimit"
	"gorm.io/gorm"
)

// Re-runs settlements parked because the recipient had no payment
// destination. The executor re-checks the connection under its own guard, so
// rows whose recipient is still disconnected are cheap no-ops.
type Sweeper struct {
	*task.Task
	db       *gorm.DB
	monitor  monitoring.Monitor
	executor *settlement.Executor

	// After a long outage the backlog is big, payment backends must not get
	// hit with all of it at once
	limiter ratelimit.Limiter
}

func NewSweeper(config *config.Config) (self *Sweeper) {
	self = new(Sweeper)

	self.limiter = ratelimit.New(config.Settler.RetriesPerSecond)

	self.Task = task.NewTask(config, "sweeper").
		WithCronSubtaskFunc(config.Settler.SweepCron, self.handle).
		WithWorkerPool(config.Settler.NumWorkers, config.Settler.WorkerQueueSize)

	return
}

func (self *Sweeper) WithDB(db *gorm.DB) *Sweeper {
	self.db = db
	return self
}

func (self *Sweeper) WithExecutor(executor *settlement.Executor) *Sweeper {
	self.executor = executor
	return self
}

func (self *Sweeper) WithMonitor(monitor monitoring.Monitor) *Sweeper {
	self.monitor = monitor
	return self
}

func (self *Sweeper) handle() (err error) {
	settlements := make([]model.Settlement, 0, self.Config.Settler.BatchSize)

	err = self.db.WithContext(self.Ctx).
		Where("status = ?", model.SettlementStatusAwaitingConnection).
		Order("created_at ASC").
		Limit(self.Config.Settler.BatchSize).
		Find(&settlements).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to load parked settlements")

		// Update monitoring
		self.monitor.GetReport().Settler.Errors.DbClaimError.Inc()

		// Swept again on the next cron tick
		return nil
	}

	if len(settlements) == 0 {
		return nil
	}

	self.Log.WithField("len", len(settlements)).Info("Sweeping parked settlements")

	for _, parked := range settlements {
		parked := parked

		self.SubmitToWorker(func() {
			self.retry(parked.ID)
		})
	}

	return nil
}

func (self *Sweeper) retry(settlementId int64) {
	self.limiter.Take()

	// Update monitoring
	self.monitor.GetReport().Settler.State.RetriesSwept.Inc()

	out, err := self.executor.Retry(self.Ctx, settlementId)
	if err != nil {
		self.Log.WithError(err).WithField("settlement_id", settlementId).Error("Failed to retry parked settlement")

		// Update monitoring
		self.monitor.GetReport().Settler.Errors.BackendError.Inc()
		return
	}

	if out == nil || out.Status != model.SettlementStatusCompleted {
		// Recipient still has no connection, or someone else won the row
		return
	}

	self.Log.WithField("settlement_id", settlementId).
		WithField("deal_id", out.DealID).
		WithField("tx_reference", out.TxReference.String).
		Info("Parked settlement completed")

	// Update monitoring
	self.monitor.GetReport().Settler.State.RetriesCompleted.Inc()
}
