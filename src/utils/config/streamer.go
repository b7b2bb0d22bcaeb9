package config

import (
	"time"

	"github.com/spf13/viper"
)

type Streamer struct {
	// Postgres NOTIFY channel deal changes are emitted on
	NotificationChannelName string

	// Redis channel deal changes are fanned out to
	PublishChannelName string

	// Reconnect backoff, 0 is no limit
	BackoffMaxElapsedTime time.Duration
	BackoffMaxInterval    time.Duration
}

func setStreamerDefaults() {
	viper.SetDefault("Streamer.NotificationChannelName", "escrowd_deal_changes")
	viper.SetDefault("Streamer.PublishChannelName", "escrowd:deals")
	viper.SetDefault("Streamer.BackoffMaxElapsedTime", "0")
	viper.SetDefault("Streamer.BackoffMaxInterval", "30s")
}
