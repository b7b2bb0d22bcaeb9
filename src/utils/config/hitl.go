package config

import (
	"github.com/spf13/viper"
)

type Hitl struct {
	// Redis channel reviewer notifications are published to
	NoticeChannelName string

	// Buffer between review creation and the notice publisher
	NoticeQueueSize int

	// Max reviews returned from the list endpoint
	ListPageSize int
}

func setHitlDefaults() {
	viper.SetDefault("Hitl.NoticeChannelName", "escrowd:reviews")
	viper.SetDefault("Hitl.NoticeQueueSize", "100")
	viper.SetDefault("Hitl.ListPageSize", "50")
}
