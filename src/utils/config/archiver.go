package config

import (
	"time"

	"github.com/spf13/viper"
)

type Archiver struct {
	// How often to look for unarchived ledger events
	PollerInterval time.Duration

	// Max events claimed in one query
	PollerBatchSize int

	// Events buffered before a produce, flushed at least this often
	BatchSize     int
	FlushInterval time.Duration

	// Events stuck in ARCHIVING longer than this go back to PENDING
	RetryAfter time.Duration
}

func setArchiverDefaults() {
	viper.SetDefault("Archiver.PollerInterval", "30s")
	viper.SetDefault("Archiver.PollerBatchSize", "100")
	viper.SetDefault("Archiver.BatchSize", "50")
	viper.SetDefault("Archiver.FlushInterval", "5s")
	viper.SetDefault("Archiver.RetryAfter", "10m")
}
