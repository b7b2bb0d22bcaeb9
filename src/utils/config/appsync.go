package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppSync struct {
	// Whether deal changes get mirrored to AppSync at all
	Enabled bool

	// GraphQL endpoint url
	Url string

	// API key
	Token string

	// Channel name deal changes are published under
	ChannelName string

	// Num of workers that publish messages
	MaxWorkers int

	// Max num of requests in worker's queue
	MaxQueueSize int

	// Publish backoff configuration, 0 is no limit
	BackoffMaxElapsedTime time.Duration
	BackoffMaxInterval    time.Duration
}

func setAppSyncDefaults() {
	viper.SetDefault("AppSync.Enabled", "false")
	viper.SetDefault("AppSync.Url", "")
	viper.SetDefault("AppSync.Token", "")
	viper.SetDefault("AppSync.ChannelName", "deals")
	viper.SetDefault("AppSync.MaxWorkers", "5")
	viper.SetDefault("AppSync.MaxQueueSize", "100")
	viper.SetDefault("AppSync.BackoffMaxElapsedTime", "10m")
	viper.SetDefault("AppSync.BackoffMaxInterval", "60s")
}
