package gateway

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/redis/go-redis/v9"
)

// Fans deal change notifications out to websocket clients. One Redis
// subscription per gateway instance, however many clients are connected.
type Events struct {
	*task.Task

	redisConfig config.Redis
	channelName string

	client *redis.Client
	pubsub *redis.PubSub

	mtx         sync.Mutex
	lastId      uint64
	subscribers map[uint64]chan string
}

func NewEvents(config *config.Config) (self *Events) {
	self = new(Events)

	self.redisConfig = config.Redis[0]
	self.channelName = config.Streamer.PublishChannelName
	self.subscribers = make(map[uint64]chan string)

	self.Task = task.NewTask(config, "events").
		WithOnBeforeStart(self.connect).
		WithSubtaskFunc(self.run).
		WithOnStop(self.disconnect)

	return
}

// Subscribe registers a feed consumer. The channel is closed on
// Unsubscribe or when the task stops.
func (self *Events) Subscribe() (id uint64, ch <-chan string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.lastId++
	out := make(chan string, self.Config.Gateway.EventQueueSize)
	self.subscribers[self.lastId] = out
	return self.lastId, out
}

func (self *Events) Unsubscribe(id uint64) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	ch, ok := self.subscribers[id]
	if !ok {
		return
	}
	delete(self.subscribers, id)
	close(ch)
}

func (self *Events) connect() (err error) {
	opts := redis.Options{
		ClientName:      fmt.Sprintf("pactline.io/%s", self.Name),
		Addr:            fmt.Sprintf("%s:%d", self.redisConfig.Host, self.redisConfig.Port),
		Password:        self.redisConfig.Password,
		Username:        self.redisConfig.User,
		DB:              self.redisConfig.DB,
		MinIdleConns:    self.redisConfig.MinIdleConns,
		MaxIdleConns:    self.redisConfig.MaxIdleConns,
		ConnMaxIdleTime: self.redisConfig.ConnMaxIdleTime,
		PoolSize:        self.redisConfig.MaxOpenConns,
		ConnMaxLifetime: self.redisConfig.ConnMaxLifetime,
	}

	if self.redisConfig.ClientCert != "" && self.redisConfig.ClientKey != "" && self.redisConfig.CaCert != "" {
		cert, err := tls.X509KeyPair([]byte(self.redisConfig.ClientCert), []byte(self.redisConfig.ClientKey))
		if err != nil {
			self.Log.WithError(err).Error("Failed to load client cert")
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM([]byte(self.redisConfig.CaCert)) {
			return errors.New("failed to append CA cert to pool")
		}

		opts.TLSConfig = &tls.Config{
			InsecureSkipVerify: false,
			RootCAs:            caCertPool,
			ClientCAs:          caCertPool,
			Certificates:       []tls.Certificate{cert},
		}
	}

	self.client = redis.NewClient(&opts)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = self.client.Ping(ctx).Err()
	if err != nil {
		self.Log.WithError(err).Error("Failed to ping Redis")
		return
	}

	self.pubsub = self.client.Subscribe(self.Ctx, self.channelName)

	return
}

// disconnect closes the subscription, which ends run's receive loop.
func (self *Events) disconnect() {
	err := self.pubsub.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close subscription")
	}

	err = self.client.Close()
	if err != nil {
		self.Log.WithError(err).Error("Failed to close connection")
	}
}

func (self *Events) run() (err error) {
	for msg := range self.pubsub.Channel() {
		self.broadcast(msg.Payload)
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()
	for id, ch := range self.subscribers {
		delete(self.subscribers, id)
		close(ch)
	}
	return nil
}

// A full consumer buffer drops the message instead of blocking the
// fan-out. The feed is advisory, clients re-fetch state on demand.
func (self *Events) broadcast(payload string) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	for _, ch := range self.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}
