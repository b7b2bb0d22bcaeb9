package notify

import (
	"fmt"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	monitor_notifier "github.com/pactline/escrowd/src/utils/monitoring/notifier"
	stream "github.com/pactline/escrowd/src/utils/notify"
	"github.com/pactline/escrowd/src/utils/publisher"
	"github.com/pactline/escrowd/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates everything
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "notifier-controller")

	// Monitoring
	monitor := monitor_notifier.NewMonitor()

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Deal changes from the database NOTIFY trigger
	streamer := stream.NewStreamer(config).
		WithNotificationChannelName(config.Streamer.NotificationChannelName).
		WithCapacity(10)

	// Raw payloads to typed changes, fanned out per destination
	mapper := NewMapper(config).
		WithInputChannel(streamer.Output).
		WithMonitor(monitor)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(server.Task).
		WithSubtask(monitor.Task).
		WithSubtask(streamer.Task).
		WithSubtask(mapper.Task)

	// One publisher per configured Redis instance
	for i := range config.Redis {
		redisPublisher := publisher.NewRedisPublisher[*model.DealChange](config, config.Redis[i], fmt.Sprintf("deal-change-publisher-%d", i)).
			WithChannelName(config.Streamer.PublishChannelName).
			WithInputChannel(mapper.Outputs[i]).
			WithMonitor(monitor)

		self.Task.WithSubtask(redisPublisher.Task)
	}

	// AppSync mutation feeding GraphQL subscriptions. The mapper skips the
	// AppSync fan-out under the same flag, so a disabled publisher never
	// leaves it blocked.
	appSyncPublisher := publisher.NewAppSyncPublisher[*model.AppSyncDealChange](config, "deal-change-app-sync-publisher").
		WithChannelName(config.AppSync.ChannelName).
		WithInputChannel(mapper.OutputAppSync).
		WithMonitor(monitor)

	self.Task.WithConditionalSubtask(config.AppSync.Enabled, appSyncPublisher.Task)

	return
}
