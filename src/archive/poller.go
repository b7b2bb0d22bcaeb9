package archive

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

// Claims unarchived ledger events for the producer. The ARCHIVING flip keeps
// concurrent archiver instances off each other's rows, and rows stuck in
// ARCHIVING after a crash are sent back to PENDING.
type Poller struct {
	*task.Task
	db      *gorm.DB
	monitor monitoring.Monitor

	// Claimed ledger events, ready to produce
	Output chan *model.EscrowEvent
}

func NewPoller(config *config.Config) (self *Poller) {
	self = new(Poller)

	self.Output = make(chan *model.EscrowEvent)

	self.Task = task.NewTask(config, "poller").
		WithRepeatedSubtaskFunc(config.Archiver.PollerInterval, self.handleClaim).
		WithRepeatedSubtaskFunc(config.Archiver.PollerInterval, self.handleStuck).
		WithOnAfterStop(func() {
			close(self.Output)
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

func (self *Poller) handleClaim() (repeat bool, err error) {
	// Interrupts longer queries
	ctx, cancel := context.WithTimeout(self.Ctx, 5*time.Minute)
	defer cancel()

	events := make([]*model.EscrowEvent, 0, self.Config.Archiver.PollerBatchSize)

	err = self.db.WithContext(ctx).
		Raw(`UPDATE escrow_events
			SET archive_state = 'ARCHIVING', updated_at = NOW()
			WHERE id IN (
				SELECT id
				FROM escrow_events
				WHERE archive_state = 'PENDING'
				ORDER BY occurred_at ASC, id ASC
				LIMIT ?
				FOR UPDATE SKIP LOCKED)
			RETURNING *`,
			self.Config.Archiver.PollerBatchSize).
		Scan(&events).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to claim ledger events for archiving")

		// Update monitoring
		self.monitor.GetReport().Archiver.Errors.DbClaimError.Inc()
		return
	}

	if len(events) > 0 {
		self.Log.WithField("len", len(events)).Debug("Claimed ledger events for archiving")
	}

	for _, event := range events {
		select {
		case <-self.Ctx.Done():
			return
		case self.Output <- event:
		}
	}

	// Update monitoring
	self.monitor.GetReport().Archiver.State.EventsClaimed.Add(uint64(len(events)))

	// A full batch means there may be more rows waiting
	repeat = len(events) == self.Config.Archiver.PollerBatchSize
	return
}

// Rows claimed by an archiver that died before producing.
func (self *Poller) handleStuck() (repeat bool, err error) {
	// Interrupts longer queries
	ctx, cancel := context.WithTimeout(self.Ctx, 5*time.Minute)
	defer cancel()

	ids := make([]int64, 0, self.Config.Archiver.PollerBatchSize)

	err = self.db.WithContext(ctx).
		Raw(`UPDATE escrow_events
			SET archive_state = 'PENDING', updated_at = NOW()
			WHERE id IN (
				SELECT id
				FROM escrow_events
				WHERE archive_state = 'ARCHIVING' AND updated_at < NOW() - ?::interval
				ORDER BY occurred_at ASC, id ASC
				LIMIT ?
				FOR UPDATE SKIP LOCKED)
			RETURNING id`,
			fmt.Sprintf("%d seconds", int(self.Config.Archiver.RetryAfter.Seconds())),
			self.Config.Archiver.PollerBatchSize).
		Scan(&ids).
		Error
	if err != nil {
		self.Log.WithError(err).Error("Failed to reset stuck ledger events")

		// Update monitoring
		self.monitor.GetReport().Archiver.Errors.DbClaimError.Inc()
		return
	}

	if len(ids) > 0 {
		self.Log.WithField("len", len(ids)).Warn("Reset stuck ledger events to pending")

		// Update monitoring
		self.monitor.GetReport().Archiver.State.EventsReset.Add(uint64(len(ids)))
	}

	repeat = len(ids) == self.Config.Archiver.PollerBatchSize
	return
}
