package monitor_archiver

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	EventsClaimed   *prometheus.Desc
	EventsArchived  *prometheus.Desc
	EventsReset     *prometheus.Desc
	BatchesProduced *prometheus.Desc

	ProduceError       *prometheus.Desc
	EncodeError        *prometheus.Desc
	DbClaimError       *prometheus.Desc
	DbStateUpdateError *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "archiver",
	}

	return &Collector{
		EventsClaimed:   prometheus.NewDesc("events_claimed", "", nil, labels),
		EventsArchived:  prometheus.NewDesc("events_archived", "", nil, labels),
		EventsReset:     prometheus.NewDesc("events_reset", "", nil, labels),
		BatchesProduced: prometheus.NewDesc("batches_produced", "", nil, labels),

		// Errors
		ProduceError:       prometheus.NewDesc("error_produce", "", nil, labels),
		EncodeError:        prometheus.NewDesc("error_encode", "", nil, labels),
		DbClaimError:       prometheus.NewDesc("error_db_claim", "", nil, labels),
		DbStateUpdateError: prometheus.NewDesc("error_db_state_update", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.EventsClaimed
	ch <- self.EventsArchived
	ch <- self.EventsReset
	ch <- self.BatchesProduced

	// Errors
	ch <- self.ProduceError
	ch <- self.EncodeError
	ch <- self.DbClaimError
	ch <- self.DbStateUpdateError
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(self.EventsClaimed, prometheus.CounterValue, float64(self.monitor.Report.Archiver.State.EventsClaimed.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsArchived, prometheus.CounterValue, float64(self.monitor.Report.Archiver.State.EventsArchived.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsReset, prometheus.CounterValue, float64(self.monitor.Report.Archiver.State.EventsReset.Load()))
	ch <- prometheus.MustNewConstMetric(self.BatchesProduced, prometheus.CounterValue, float64(self.monitor.Report.Archiver.State.BatchesProduced.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.ProduceError, prometheus.CounterValue, float64(self.monitor.Report.Archiver.Errors.ProduceError.Load()))
	ch <- prometheus.MustNewConstMetric(self.EncodeError, prometheus.CounterValue, float64(self.monitor.Report.Archiver.Errors.EncodeError.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbClaimError, prometheus.CounterValue, float64(self.monitor.Report.Archiver.Errors.DbClaimError.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbStateUpdateError, prometheus.CounterValue, float64(self.monitor.Report.Archiver.Errors.DbStateUpdateError.Load()))
}
