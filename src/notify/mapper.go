package notify

import (
	"encoding/json"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/task"
)

// Parses raw NOTIFY payloads into deal changes and fans them out, one channel
// per Redis instance plus one for AppSync. A payload that doesn't parse is
// dropped, the stream must keep moving.
type Mapper struct {
	*task.Task
	monitor monitoring.Monitor

	input <-chan string

	appSyncEnabled bool

	// One output per configured Redis instance
	Outputs []chan *model.DealChange

	OutputAppSync chan *model.AppSyncDealChange
}

func NewMapper(config *config.Config) (self *Mapper) {
	self = new(Mapper)

	self.appSyncEnabled = config.AppSync.Enabled

	self.Outputs = make([]chan *model.DealChange, len(config.Redis))
	for i := range self.Outputs {
		self.Outputs[i] = make(chan *model.DealChange)
	}
	self.OutputAppSync = make(chan *model.AppSyncDealChange)

	self.Task = task.NewTask(config, "mapper").
		WithSubtaskFunc(self.run).
		WithOnAfterStop(func() {
			for _, output := range self.Outputs {
				close(output)
			}
			close(self.OutputAppSync)
		})

	return
}

func (self *Mapper) WithInputChannel(input <-chan string) *Mapper {
	self.input = input
	return self
}

func (self *Mapper) WithMonitor(monitor monitoring.Monitor) *Mapper {
	self.monitor = monitor
	return self
}

func (self *Mapper) run() error {
	// Quits when the streamer closes the channel
	for payload := range self.input {
		// Update monitoring
		self.monitor.GetReport().Notifier.State.ChangesStreamed.Inc()

		var change model.DealChange
		err := json.Unmarshal([]byte(payload), &change)
		if err != nil {
			self.Log.WithError(err).WithField("payload", payload).Warn("Failed to parse deal change notification")

			// Update monitoring
			self.monitor.GetReport().Notifier.Errors.ParseError.Inc()
			continue
		}

		self.Log.WithField("deal_id", change.DealID).WithField("status", change.Status).Debug("Got deal change")

		for _, output := range self.Outputs {
			select {
			case <-self.Ctx.Done():
				return nil
			case output <- &change:
			}
		}

		// Without a consumer on the other end this send would block forever
		if self.appSyncEnabled {
			appSyncChange := &model.AppSyncDealChange{
				DealID:        change.DealID,
				Status:        string(change.Status),
				SyncTimestamp: change.Timestamp,
			}
			select {
			case <-self.Ctx.Done():
				return nil
			case self.OutputAppSync <- appSyncChange:
			}
		}

		// Update monitoring
		self.monitor.GetReport().Notifier.State.ChangesMapped.Inc()
	}

	return nil
}
