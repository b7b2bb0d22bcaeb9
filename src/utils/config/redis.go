package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Redis struct {
	Port     uint16
	Host     string
	User     string
	Password string
	DB       int

	// TLS configuration
	ClientKey  string
	ClientCert string
	CaCert     string

	// Connection configuration
	MinIdleConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	MaxOpenConns    int
	ConnMaxLifetime time.Duration

	// Publish backoff configuration, 0 is no limit
	MaxElapsedTime time.Duration
	MaxInterval    time.Duration

	// Num of workers that publish messages
	MaxWorkers int

	// Max num of requests in worker's queue
	MaxQueueSize int
}

func setRedisDefaults() {
	viper.SetDefault("Redis", []Redis{{
		Port:            6379,
		Host:            "localhost",
		DB:              0,
		Password:        "",
		MinIdleConns:    1,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 10 * time.Minute,
		MaxOpenConns:    15,
		ConnMaxLifetime: time.Hour,
		MaxElapsedTime:  10 * time.Minute,
		MaxInterval:     60 * time.Second,
		MaxWorkers:      15,
		MaxQueueSize:    100,
	}})
}

// Env overrides are bound to flat redis[i].field keys, viper.Unmarshal doesn't
// pick those up for slices so they're decoded by hand.
func unmarshalRedis(config *Config) (err error) {
	length := getSliceLength("redis")
	if length < len(config.Redis) {
		length = len(config.Redis)
	}
	if length == 0 {
		return nil
	}

	out := make([]Redis, length)
	copy(out, config.Redis)

	fields := reflect.VisibleFields(reflect.TypeOf(Redis{}))
	for i := range out {
		settings := make(map[string]interface{})
		for _, field := range fields {
			key := fmt.Sprintf("redis[%d].%s", i, strings.ToLower(field.Name))
			if viper.IsSet(key) {
				settings[field.Name] = viper.Get(key)
			}
		}
		if len(settings) == 0 {
			continue
		}

		decoder, err := mapstructure.NewDecoder(defaultDecoderConfig(&out[i]))
		if err != nil {
			return err
		}
		err = decoder.Decode(settings)
		if err != nil {
			return err
		}
	}

	config.Redis = out
	return nil
}
