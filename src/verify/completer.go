package verify

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/deal"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/task"
)

// Finalizes verifying deals whose observation window elapsed. Works in
// bounded batches so one run can't monopolize a tick.
type Completer struct {
	*task.Task
	monitor monitoring.Monitor
	deals   *deal.Service
}

func NewCompleter(config *config.Config) (self *Completer) {
	self = new(Completer)

	self.Task = task.NewTask(config, "completer").
		WithRepeatedSubtaskFunc(config.Verifier.CompleterInterval, self.handle)

	return
}

func (self *Completer) WithDealService(deals *deal.Service) *Completer {
	self.deals = deals
	return self
}

func (self *Completer) WithMonitor(monitor monitoring.Monitor) *Completer {
	self.monitor = monitor
	return self
}

func (self *Completer) handle() (repeat bool, err error) {
	processed, err := self.deals.CompleteDue(self.Ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to run duration completion sweep")

		// Update monitoring
		self.monitor.GetReport().Verifier.Errors.DbStateUpdateError.Inc()

		// The sweep runs again next tick, an error here must not kill the task
		err = nil
		return
	}

	if processed > 0 {
		self.Log.WithField("len", processed).Info("Finalized deals with elapsed observation window")

		// Update monitoring
		self.monitor.GetReport().Verifier.State.WindowsCompleted.Add(uint64(processed))
	}

	// A full batch means more candidates are waiting
	repeat = processed == self.Config.Verifier.CompleterBatchSize
	return
}
