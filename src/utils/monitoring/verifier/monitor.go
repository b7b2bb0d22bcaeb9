package monitor_verifier

import (
	"net/http"
	"time"

	"github.com/pactline/escrowd/src/utils/monitoring/report"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report    report.Report
	collector *Collector
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:            &report.RunReport{},
		Verifier:       &report.VerifierReport{},
		RedisPublisher: &report.RedisPublisherReport{},
	}
	self.Report.Run.StartTimestamp.Store(time.Now().Unix())

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(30*time.Second, self.monitor)
	return
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func (self *Monitor) monitor() (err error) {
	self.Report.Run.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.StartTimestamp.Load()))
	return nil
}

// The poller sweeps on an interval even when no schedule is due, so a stale
// sweep timestamp means the claim loop is stuck.
func (self *Monitor) IsOK() bool {
	now := time.Now().Unix()
	if now-self.Report.Run.StartTimestamp.Load() < 300 {
		return true
	}
	return now-self.Report.Verifier.State.LastPollTimestamp.Load() < 300
}

func (self *Monitor) OnGetState(c *gin.Context) {
	self.Report.Run.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.StartTimestamp.Load()))
	c.JSON(http.StatusOK, &self.Report)
}

func (self *Monitor) OnGetHealth(c *gin.Context) {
	if self.IsOK() {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
}
