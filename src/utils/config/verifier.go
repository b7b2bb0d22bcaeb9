package config

import (
	"time"

	"github.com/spf13/viper"
)

type Verifier struct {
	// How often to look for due verification schedules
	PollerInterval time.Duration

	// Schedules due within this window are already considered due
	PollerLookahead time.Duration

	// Max schedules claimed in one query
	PollerBatchSize int

	// Workers dispatching verification requests
	NumWorkers int

	// Max dispatches waiting in the worker queue
	WorkerQueueSize int

	// How often to check for deals whose observation window elapsed
	CompleterInterval time.Duration

	// Max deals finalized per completer run
	CompleterBatchSize int

	// Running schedules older than this with no result are written off
	StaleAfter time.Duration
}

func setVerifierDefaults() {
	viper.SetDefault("Verifier.PollerInterval", "1m")
	viper.SetDefault("Verifier.PollerLookahead", "2m")
	viper.SetDefault("Verifier.PollerBatchSize", "50")
	viper.SetDefault("Verifier.NumWorkers", "10")
	viper.SetDefault("Verifier.WorkerQueueSize", "100")
	viper.SetDefault("Verifier.CompleterInterval", "2m")
	viper.SetDefault("Verifier.CompleterBatchSize", "20")
	viper.SetDefault("Verifier.StaleAfter", "30m")
}
