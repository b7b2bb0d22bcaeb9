package archive

import (
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	monitor_archiver "github.com/pactline/escrowd/src/utils/monitoring/archiver"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/segmentio/kafka-go"
)

type Controller struct {
	*task.Task
}

// Main class that orchestrates everything
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "archiver-controller")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "archiver")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitor_archiver.NewMonitor()

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Archive topic writer
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Kafka.Brokers...),
		Topic:        config.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    config.Kafka.BatchSize,
		BatchTimeout: config.Kafka.BatchTimeout,
		WriteTimeout: config.Kafka.WriteTimeout,
	}

	// Claims unarchived ledger events from the db
	poller := NewPoller(config).
		WithDB(db).
		WithMonitor(monitor)

	// Produces claimed events to the archive topic
	producer := NewProducer(config).
		WithDB(db).
		WithWriter(writer).
		WithInputChannel(poller.Output).
		WithMonitor(monitor)

	// Setup everything, will start upon calling Controller.Start()
	self.Task.
		WithSubtask(server.Task).
		WithSubtask(monitor.Task).
		WithSubtask(producer.Task).
		WithSubtask(poller.Task)
	return
}
