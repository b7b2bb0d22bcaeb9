package settle

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	monitor_settler "github.com/pactline/escrowd/src/utils/monitoring/settler"
	"github.com/pactline/escrowd/src/utils/payment"
	"github.com/pactline/escrowd/src/utils/settlement"
	"github.com/pactline/escrowd/src/utils/task"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates everything
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "settler-controller")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "settler")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitor_settler.NewMonitor()

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Payment backends
	registry := payment.NewRegistry(config)
	connections := payment.NewConnections(config, db)
	executor := settlement.NewExecutor(db, registry, connections).
		WithMonitor(monitor)

	self.Log.WithField("methods", registry.Methods()).Info("Payment backends registered")

	// Re-runs settlements waiting for a payment connection
	sweeper := NewSweeper(config).
		WithDB(db).
		WithExecutor(executor).
		WithMonitor(monitor)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(server.Task).
		WithSubtask(monitor.Task).
		WithSubtask(sweeper.Task)
	return
}
