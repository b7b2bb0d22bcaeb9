package verify

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/deal"
	"github.com/pactline/escrowd/src/utils/hitl"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	monitor_verifier "github.com/pactline/escrowd/src/utils/monitoring/verifier"
	"github.com/pactline/escrowd/src/utils/orchestrator"
	"github.com/pactline/escrowd/src/utils/payment"
	"github.com/pactline/escrowd/src/utils/publisher"
	"github.com/pactline/escrowd/src/utils/settlement"
	"github.com/pactline/escrowd/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates everything
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "verifier-controller")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "verifier")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitor_verifier.NewMonitor()

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Analysis service client
	client := orchestrator.NewClient(config)

	// Payment backends, needed because finalized deals settle immediately
	registry := payment.NewRegistry(config)
	connections := payment.NewConnections(config, db)
	executor := settlement.NewExecutor(db, registry, connections)

	// Review queue
	reviews := hitl.NewService(config, db)

	// Deal lifecycle
	deals := deal.NewService(config, db).
		WithExecutor(executor).
		WithReviews(reviews)

	// Claims due schedules from the db
	poller := NewPoller(config).
		WithDB(db).
		WithMonitor(monitor)

	// Sends claimed schedules to the analysis service
	dispatcher := NewDispatcher(config).
		WithDB(db).
		WithClient(client).
		WithReviews(reviews).
		WithInputChannel(poller.Output).
		WithStaleChannel(poller.Stale).
		WithMonitor(monitor)

	// Finalizes deals whose observation window elapsed
	completer := NewCompleter(config).
		WithDealService(deals).
		WithMonitor(monitor)

	// Delivers review notices to reviewers
	notices := publisher.NewRedisPublisher[*model.ReviewNotice](config, config.Redis[0], "review-notice-publisher").
		WithChannelName(config.Hitl.NoticeChannelName).
		WithInputChannel(reviews.Notices()).
		WithMonitor(monitor)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(server.Task).
		WithSubtask(monitor.Task).
		WithSubtask(dispatcher.Task).
		WithSubtask(poller.Task).
		WithSubtask(completer.Task).
		WithSubtask(notices.Task)
	return
}
