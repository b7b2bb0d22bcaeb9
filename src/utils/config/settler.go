package config

import (
	"github.com/spf13/viper"
)

type Settler struct {
	// Cron spec of the awaiting-connection retry sweep
	SweepCron string

	// Max settlements claimed per sweep query
	BatchSize int

	// Workers re-running claimed settlements
	NumWorkers int

	// Max settlements waiting in the worker queue
	WorkerQueueSize int

	// Retried settlements per second across all workers
	RetriesPerSecond int
}

func setSettlerDefaults() {
	viper.SetDefault("Settler.SweepCron", "@every 5m")
	viper.SetDefault("Settler.BatchSize", "20")
	viper.SetDefault("Settler.NumWorkers", "5")
	viper.SetDefault("Settler.WorkerQueueSize", "50")
	viper.SetDefault("Settler.RetriesPerSecond", "5")
}
