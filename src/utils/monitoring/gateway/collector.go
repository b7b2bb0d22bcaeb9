package monitor_gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	DealsCreated      *prometheus.Desc
	DealsAccepted     *prometheus.Desc
	FundingsConfirmed *prometheus.Desc
	PostsSubmitted    *prometheus.Desc
	DealsCancelled    *prometheus.Desc

	CallbacksReceived *prometheus.Desc
	CallbacksDropped  *prometheus.Desc
	ResultsApplied    *prometheus.Desc

	ReviewsAssigned    *prometheus.Desc
	DecisionsProcessed *prometheus.Desc

	SettlementsTriggered *prometheus.Desc
	EventsStreamed       *prometheus.Desc

	CallbackParse       *prometheus.Desc
	CallbackUnknownDeal *prometheus.Desc
	AuthFailures        *prometheus.Desc
	DbError             *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "gateway",
	}

	return &Collector{
		DealsCreated:      prometheus.NewDesc("deals_created", "", nil, labels),
		DealsAccepted:     prometheus.NewDesc("deals_accepted", "", nil, labels),
		FundingsConfirmed: prometheus.NewDesc("fundings_confirmed", "", nil, labels),
		PostsSubmitted:    prometheus.NewDesc("posts_submitted", "", nil, labels),
		DealsCancelled:    prometheus.NewDesc("deals_cancelled", "", nil, labels),

		CallbacksReceived: prometheus.NewDesc("callbacks_received", "", nil, labels),
		CallbacksDropped:  prometheus.NewDesc("callbacks_dropped", "", nil, labels),
		ResultsApplied:    prometheus.NewDesc("results_applied", "", nil, labels),

		ReviewsAssigned:    prometheus.NewDesc("reviews_assigned", "", nil, labels),
		DecisionsProcessed: prometheus.NewDesc("decisions_processed", "", nil, labels),

		SettlementsTriggered: prometheus.NewDesc("settlements_triggered", "", nil, labels),
		EventsStreamed:       prometheus.NewDesc("events_streamed", "", nil, labels),

		// Errors
		CallbackParse:       prometheus.NewDesc("error_callback_parse", "", nil, labels),
		CallbackUnknownDeal: prometheus.NewDesc("error_callback_unknown_deal", "", nil, labels),
		AuthFailures:        prometheus.NewDesc("error_auth_failures", "", nil, labels),
		DbError:             prometheus.NewDesc("error_db", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- self.DealsCreated
	ch <- self.DealsAccepted
	ch <- self.FundingsConfirmed
	ch <- self.PostsSubmitted
	ch <- self.DealsCancelled
	ch <- self.CallbacksReceived
	ch <- self.CallbacksDropped
	ch <- self.ResultsApplied
	ch <- self.ReviewsAssigned
	ch <- self.DecisionsProcessed
	ch <- self.SettlementsTriggered
	ch <- self.EventsStreamed

	// Errors
	ch <- self.CallbackParse
	ch <- self.CallbackUnknownDeal
	ch <- self.AuthFailures
	ch <- self.DbError
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(self.DealsCreated, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.DealsCreated.Load()))
	ch <- prometheus.MustNewConstMetric(self.DealsAccepted, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.DealsAccepted.Load()))
	ch <- prometheus.MustNewConstMetric(self.FundingsConfirmed, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.FundingsConfirmed.Load()))
	ch <- prometheus.MustNewConstMetric(self.PostsSubmitted, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.PostsSubmitted.Load()))
	ch <- prometheus.MustNewConstMetric(self.DealsCancelled, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.DealsCancelled.Load()))
	ch <- prometheus.MustNewConstMetric(self.CallbacksReceived, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.CallbacksReceived.Load()))
	ch <- prometheus.MustNewConstMetric(self.CallbacksDropped, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.CallbacksDropped.Load()))
	ch <- prometheus.MustNewConstMetric(self.ResultsApplied, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.ResultsApplied.Load()))
	ch <- prometheus.MustNewConstMetric(self.ReviewsAssigned, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.ReviewsAssigned.Load()))
	ch <- prometheus.MustNewConstMetric(self.DecisionsProcessed, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.DecisionsProcessed.Load()))
	ch <- prometheus.MustNewConstMetric(self.SettlementsTriggered, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.SettlementsTriggered.Load()))
	ch <- prometheus.MustNewConstMetric(self.EventsStreamed, prometheus.CounterValue, float64(self.monitor.Report.Gateway.State.EventsStreamed.Load()))

	// Errors
	ch <- prometheus.MustNewConstMetric(self.CallbackParse, prometheus.CounterValue, float64(self.monitor.Report.Gateway.Errors.CallbackParse.Load()))
	ch <- prometheus.MustNewConstMetric(self.CallbackUnknownDeal, prometheus.CounterValue, float64(self.monitor.Report.Gateway.Errors.CallbackUnknownDeal.Load()))
	ch <- prometheus.MustNewConstMetric(self.AuthFailures, prometheus.CounterValue, float64(self.monitor.Report.Gateway.Errors.AuthFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.DbError, prometheus.CounterValue, float64(self.monitor.Report.Gateway.Errors.DbError.Load()))
}
