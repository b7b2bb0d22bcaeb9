package monitor_verifier

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	SchedulesClaimed *prometheus.Desc
	ChecksDispatched *prometheus.Desc
	SchedulesExpired *prometheus.Desc
	ResultsPolled    *prometheus.Desc
	ResultsApplied   *prometheus.Desc
	WindowsCompleted *prometheus.Desc
	ReviewsRequested *prometheus.Desc

	DispatchError      *prometheus.Desc
	PollError          *prometheus.Desc
	DbClaimError       *prometheus.Desc
	DbStateUpdateError *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "verifier",
	}

	return &Collector{
		SchedulesClaimed: prometheus.NewDesc("schedules_claimed", "", nil, labels),
		ChecksDispatched: prometheus.NewDesc("checks_dispatched", "", nil, labels),
		SchedulesExpired: prometheus.NewDesc("schedules_expired", "", nil, labels),
		ResultsPolled:    prometheus.NewDesc("results_polled", "", nil, labels),
		ResultsApplied:   prometheus.NewDesc("results_applied", "", nil, labels),
		WindowsCompleted: prometheus.NewDesc("windows_completed", "", nil, labels),
		ReviewsRequested: prometheus.NewDesc("reviews_requested", "", nil, labels),

		// Errors
		DispatchError:      prometheus.NewDesc("error_dispatch", "", nil, labels),
		PollError:          prometheus.NewDesc("error_poll", "", nil, labels),
		DbClaimError:       prometheus.NewDesc("error_db_claim", "", nil, labels),
		DbStateUpdateError: prometheus.NewDesc("error_db_state_update", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.SchedulesClaimed
	ch <- self.ChecksDispatched
	ch <- self.SchedulesExpired
	ch <- self.ResultsPolled
	ch <- self.ResultsApplied
	ch <- self.WindowsCompleted
	ch <- self.ReviewsRequested

	// Errors
	ch <- self.DispatchError
	ch <- self.PollError
	ch <- self.DbClaimError
	ch <- self.DbStateUpdateError
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(self.SchedulesClaimed, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.SchedulesClaimed.Load()))
	ch <- prometheus.MustNewConstMetric(self.ChecksDispatched, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.ChecksDispatched.Load()))
	ch <- prometheus.MustNewConstMetric(self.SchedulesExpired, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.SchedulesExpired.Load()))
	ch <- prometheus.MustNewConstMetric(self.ResultsPolled, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.ResultsPolled.Load()))
	ch <- prometheus.MustNewConstMetric(self.ResultsApplied, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.ResultsApplied.Load()))
	ch <- prometheus.MustNewConstMetric(self.WindowsCompleted, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.WindowsCompleted.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReviewsRequested, prometheus.CounterValue, float64(self.monitor.Report.Verifier.State.ReviewsRequested.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.DispatchError, prometheus.CounterValue, float64(self.monitor.Report.Verifier.Errors.DispatchError.Load()))
	ch <- prometheus.MustNewConstMetric(self.PollError, prometheus.CounterValue, float64(self.monitor.Report.Verifier.Errors.PollError.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbClaimError, prometheus.CounterValue, float64(self.monitor.Report.Verifier.Errors.DbClaimError.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbStateUpdateError, prometheus.CounterValue, float64(self.monitor.Report.Verifier.Errors.DbStateUpdateError.Load()))
}
