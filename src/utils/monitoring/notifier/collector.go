package monitor_notifier

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	ChangesStreamed *prometheus.Desc
	ChangesMapped   *prometheus.Desc
	ParseError      *prometheus.Desc

	RedisMessagesPublished *prometheus.Desc
	RedisLastMessage       *prometheus.Desc
	RedisPublishError      *prometheus.Desc
	RedisPersistentFailure *prometheus.Desc

	AppSyncMessagesPublished *prometheus.Desc
	AppSyncPublishError      *prometheus.Desc
	AppSyncPersistentFailure *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "notifier",
	}

	return &Collector{
		ChangesStreamed: prometheus.NewDesc("changes_streamed", "", nil, labels),
		ChangesMapped:   prometheus.NewDesc("changes_mapped", "", nil, labels),
		ParseError:      prometheus.NewDesc("error_change_parse", "", nil, labels),

		RedisMessagesPublished: prometheus.NewDesc("redis_messages_published", "", nil, labels),
		RedisLastMessage:       prometheus.NewDesc("redis_last_successful_message_timestamp", "", nil, labels),
		RedisPublishError:      prometheus.NewDesc("error_redis_publish", "", nil, labels),
		RedisPersistentFailure: prometheus.NewDesc("error_redis_persistent", "", nil, labels),

		AppSyncMessagesPublished: prometheus.NewDesc("app_sync_messages_published", "", nil, labels),
		AppSyncPublishError:      prometheus.NewDesc("error_app_sync_publish", "", nil, labels),
		AppSyncPersistentFailure: prometheus.NewDesc("error_app_sync_persistent", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.ChangesStreamed
	ch <- self.ChangesMapped
	ch <- self.ParseError

	ch <- self.RedisMessagesPublished
	ch <- self.RedisLastMessage
	ch <- self.RedisPublishError
	ch <- self.RedisPersistentFailure

	ch <- self.AppSyncMessagesPublished
	ch <- self.AppSyncPublishError
	ch <- self.AppSyncPersistentFailure
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(self.ChangesStreamed, prometheus.CounterValue, float64(self.monitor.Report.Notifier.State.ChangesStreamed.Load()))
	ch <- prometheus.MustNewConstMetric(self.ChangesMapped, prometheus.CounterValue, float64(self.monitor.Report.Notifier.State.ChangesMapped.Load()))
	ch <- prometheus.MustNewConstMetric(self.ParseError, prometheus.CounterValue, float64(self.monitor.Report.Notifier.Errors.ParseError.Load()))

	ch <- prometheus.MustNewConstMetric(self.RedisMessagesPublished, prometheus.CounterValue, float64(self.monitor.Report.RedisPublisher.State.MessagesPublished.Load()))
	ch <- prometheus.MustNewConstMetric(self.RedisLastMessage, prometheus.GaugeValue, float64(self.monitor.Report.RedisPublisher.State.LastSuccessfulMessageTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.RedisPublishError, prometheus.CounterValue, float64(self.monitor.Report.RedisPublisher.Errors.Publish.Load()))
	ch <- prometheus.MustNewConstMetric(self.RedisPersistentFailure, prometheus.CounterValue, float64(self.monitor.Report.RedisPublisher.Errors.PersistentFailure.Load()))

	ch <- prometheus.MustNewConstMetric(self.AppSyncMessagesPublished, prometheus.CounterValue, float64(self.monitor.Report.AppSync.State.MessagesPublished.Load()))
	ch <- prometheus.MustNewConstMetric(self.AppSyncPublishError, prometheus.CounterValue, float64(self.monitor.Report.AppSync.Errors.Publish.Load()))
	ch <- prometheus.MustNewConstMetric(self.AppSyncPersistentFailure, prometheus.CounterValue, float64(self.monitor.Report.AppSync.Errors.PersistentFailure.Load()))
}
