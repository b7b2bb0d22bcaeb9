package config

import (
	"time"

	"github.com/spf13/viper"
)

type Gateway struct {
	// Public REST API address
	ListenAddress string

	// Secret used to verify user bearer tokens (HS256)
	JwtSecret string

	// Secret header value for internal endpoints (settlement triggers, funding confirmation)
	InternalSecret string

	// Max duration of a single request
	RequestTimeout time.Duration

	// Buffer size of the websocket event feed, per connection
	EventQueueSize int

	// Max deals returned from the list endpoint
	ListPageSize int
}

func setGatewayDefaults() {
	viper.SetDefault("Gateway.ListenAddress", "0.0.0.0:4000")
	viper.SetDefault("Gateway.JwtSecret", "")
	viper.SetDefault("Gateway.InternalSecret", "")
	viper.SetDefault("Gateway.RequestTimeout", "30s")
	viper.SetDefault("Gateway.EventQueueSize", "64")
	viper.SetDefault("Gateway.ListPageSize", "100")
}
