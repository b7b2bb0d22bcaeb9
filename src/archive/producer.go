package archive

import (
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

// Batches claimed ledger events and produces them to the archive topic.
// Messages are keyed by deal id so one deal's ledger stays in order within
// a partition. Produce and mark are not atomic, the topic is at-least-once.
type Producer struct {
	*task.Hole[*model.EscrowEvent]
	db      *gorm.DB
	monitor monitoring.Monitor
	writer  *kafka.Writer
}

func NewProducer(config *config.Config) (self *Producer) {
	self = new(Producer)

	self.Hole = task.NewHole[*model.EscrowEvent](config, "producer").
		WithBatchSize(config.Archiver.BatchSize).
		WithOnFlush(config.Archiver.FlushInterval, self.flush).
		WithBackoff(10*time.Minute, 10*time.Second)

	self.Task = self.Task.
		WithOnAfterStop(func() {
			if self.writer != nil {
				self.writer.Close()
			}
		})

	return
}

func (self *Producer) WithDB(db *gorm.DB) *Producer {
	self.db = db
	return self
}

func (self *Producer) WithWriter(writer *kafka.Writer) *Producer {
	self.writer = writer
	return self
}

func (self *Producer) WithInputChannel(input chan *model.EscrowEvent) *Producer {
	self.Hole = self.Hole.WithInputChannel(input)
	return self
}

func (self *Producer) WithMonitor(monitor monitoring.Monitor) *Producer {
	self.monitor = monitor
	return self
}

func (self *Producer) flush(events []*model.EscrowEvent) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(events))
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := NewRecord(event).Marshal()
		if err != nil {
			// Leave the row in ARCHIVING, the stuck sweep will re-queue it
			self.Log.WithError(err).WithField("event_id", event.ID).Error("Failed to encode ledger event")

			// Update monitoring
			self.monitor.GetReport().Archiver.Errors.EncodeError.Inc()
			continue
		}

		ids = append(ids, event.ID)
		messages = append(messages, kafka.Message{
			Key:   []byte(event.DealID),
			Value: value,
		})
	}

	if len(messages) == 0 {
		return nil
	}

	self.Log.WithField("len", len(messages)).Debug("Producing ledger events to archive topic")

	err := self.writer.WriteMessages(self.Ctx, messages...)
	if err != nil {
		self.Log.WithError(err).Error("Failed to produce ledger events")

		// Update monitoring
		self.monitor.GetReport().Archiver.Errors.ProduceError.Inc()
		return err
	}

	err = self.db.WithContext(self.Ctx).
		Model(&model.EscrowEvent{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"archive_state": model.ArchiveStateArchived,
			"archived_at":   time.Now(),
		}).
		Error
	if err != nil {
		// Produced but not marked. The retried flush produces duplicates,
		// which the topic contract allows.
		self.Log.WithError(err).Error("Failed to mark ledger events archived")

		// Update monitoring
		self.monitor.GetReport().Archiver.Errors.DbStateUpdateError.Inc()
		return err
	}

	// Update monitoring
	self.monitor.GetReport().Archiver.State.EventsArchived.Add(uint64(len(ids)))
	self.monitor.GetReport().Archiver.State.BatchesProduced.Inc()

	return nil
}
