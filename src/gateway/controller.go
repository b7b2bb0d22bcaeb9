package gateway

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/deal"
	"github.com/pactline/escrowd/src/utils/hitl"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	monitor_gateway "github.com/pactline/escrowd/src/utils/monitoring/gateway"
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
	self.Task = task.NewTask(config, "gateway-controller")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "gateway")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitor_gateway.NewMonitor()

	monitoringServer := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Payment backends, settlement triggers execute inline
	registry := payment.NewRegistry(config)
	connections := payment.NewConnections(config, db)
	executor := settlement.NewExecutor(db, registry, connections)

	// Review queue, decisions flow back into the deal lifecycle
	reviews := hitl.NewService(config, db)

	deals := deal.NewService(config, db).
		WithExecutor(executor).
		WithReviews(reviews)

	reviews.WithApplier(deals)

	// Deal change feed for websocket clients
	events := NewEvents(config)

	// REST API
	server := NewServer(config, db).
		WithMonitor(monitor).
		WithDeals(deals).
		WithReviews(reviews).
		WithExecutor(executor).
		WithEvents(events)

	// Delivers review notices to reviewers
	notices := publisher.NewRedisPublisher[*model.ReviewNotice](config, config.Redis[0], "review-notice-publisher").
		WithChannelName(config.Hitl.NoticeChannelName).
		WithInputChannel(reviews.Notices()).
		WithMonitor(monitor)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(server.Task).
		WithSubtask(monitor.Task).
		WithSubtask(monitoringServer.Task).
		WithSubtask(events.Task).
		WithSubtask(notices.Task)
	return
}
