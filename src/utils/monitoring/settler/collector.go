package monitor_settler

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	PayoutsCompleted  *prometheus.Desc
	RefundsCompleted  *prometheus.Desc
	SettlementsParked *prometheus.Desc
	RetriesSwept      *prometheus.Desc
	RetriesCompleted  *prometheus.Desc
	SettlementsFailed *prometheus.Desc

	BackendError       *prometheus.Desc
	DbClaimError       *prometheus.Desc
	DbStateUpdateError *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "settler",
	}

	return &Collector{
		PayoutsCompleted:  prometheus.NewDesc("payouts_completed", "", nil, labels),
		RefundsCompleted:  prometheus.NewDesc("refunds_completed", "", nil, labels),
		SettlementsParked: prometheus.NewDesc("settlements_parked", "", nil, labels),
		RetriesSwept:      prometheus.NewDesc("retries_swept", "", nil, labels),
		RetriesCompleted:  prometheus.NewDesc("retries_completed", "", nil, labels),
		SettlementsFailed: prometheus.NewDesc("settlements_failed", "", nil, labels),

		// Errors
		BackendError:       prometheus.NewDesc("error_backend", "", nil, labels),
		DbClaimError:       prometheus.NewDesc("error_db_claim", "", nil, labels),
		DbStateUpdateError: prometheus.NewDesc("error_db_state_update", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.PayoutsCompleted
	ch <- self.RefundsCompleted
	ch <- self.SettlementsParked
	ch <- self.RetriesSwept
	ch <- self.RetriesCompleted
	ch <- self.SettlementsFailed

	// Errors
	ch <- self.BackendError
	ch <- self.DbClaimError
	ch <- self.DbStateUpdateError
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(self.PayoutsCompleted, prometheus.CounterValue, float64(self.monitor.Report.Settler.State.PayoutsCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.RefundsCompleted, prometheus.CounterValue, float64(self.monitor.Report.Settler.State.RefundsCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementsParked, prometheus.CounterValue, float64(self.monitor.Report.Settler.State.SettlementsParked.Load()))
	ch <- prometheus.MustNewConstMetric(self.RetriesSwept, prometheus.CounterValue, float64(self.monitor.Report.Settler.State.RetriesSwept.Load()))
	ch <- prometheus.MustNewConstMetric(self.RetriesCompleted, prometheus.CounterValue, float64(self.monitor.Report.Settler.State.RetriesCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementsFailed, prometheus.CounterValue, float64(self.monitor.Report.Settler.State.SettlementsFailed.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.BackendError, prometheus.CounterValue, float64(self.monitor.Report.Settler.Errors.BackendError.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbClaimError, prometheus.CounterValue, float64(self.monitor.Report.Settler.Errors.DbClaimError.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbStateUpdateError, prometheus.CounterValue, float64(self.monitor.Report.Settler.Errors.DbStateUpdateError.Load()))
}
