package config

import (
	"time"

	"github.com/spf13/viper"
)

type Kafka struct {
	// Broker addresses
	Brokers []string

	// Topic escrow ledger events are archived to
	Topic string

	// Producer batch limits
	BatchSize    int
	BatchTimeout time.Duration

	// Per-write deadline
	WriteTimeout time.Duration
}

func setKafkaDefaults() {
	viper.SetDefault("Kafka.Brokers", []string{"localhost:9092"})
	viper.SetDefault("Kafka.Topic", "escrowd.escrow-events")
	viper.SetDefault("Kafka.BatchSize", "100")
	viper.SetDefault("Kafka.BatchTimeout", "1s")
	viper.SetDefault("Kafka.WriteTimeout", "10s")
}
