package gateway

import (
	"context"
	"net/http"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/deal"
	"github.com/pactline/escrowd/src/utils/hitl"
	. "github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/monitoring"
	"github.com/pactline/escrowd/src/utils/settlement"
	"github.com/pactline/escrowd/src/utils/task"

	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	"gorm.io/gorm"
)

// Public REST API. Advertisers and creators drive the deal lifecycle here,
// the analysis service delivers verdicts, operators work the review queue.
type Server struct {
	*task.Task

	db      *gorm.DB
	monitor monitoring.Monitor

	deals    *deal.Service
	reviews  *hitl.Service
	executor *settlement.Executor
	events   *Events

	httpServer *http.Server
	Router     *gin.Engine
}

func NewServer(config *config.Config, db *gorm.DB) (self *Server) {
	self = new(Server)
	self.db = db

	self.Task = task.NewTask(config, "server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	gin.SetMode(gin.ReleaseMode)
	self.Router = gin.New()
	self.Router.Use(gin.Recovery(), requestId())

	// Handlers pass gin's context into the db layer, this makes its
	// deadline come from the request
	self.Router.ContextWithFallback = true

	self.httpServer = &http.Server{
		Addr:    config.Gateway.ListenAddress,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithMonitor(monitor monitoring.Monitor) *Server {
	self.monitor = monitor
	return self
}

func (self *Server) WithDeals(deals *deal.Service) *Server {
	self.deals = deals
	return self
}

func (self *Server) WithReviews(reviews *hitl.Service) *Server {
	self.reviews = reviews
	return self
}

func (self *Server) WithExecutor(executor *settlement.Executor) *Server {
	self.executor = executor
	return self
}

func (self *Server) WithEvents(events *Events) *Server {
	self.events = events
	return self
}

func (self *Server) setupRoutes() {
	v1 := self.Router.Group("v1")

	deals := v1.Group("deals", self.timeout(), self.authUser())
	{
		deals.POST("", self.onCreateDeal())
		deals.GET("", self.onListDeals())
		deals.GET(":deal_id", self.onGetDeal())
		deals.POST(":deal_id/accept", self.onAcceptDeal())
		deals.POST(":deal_id/post", self.onSubmitPost())
		deals.POST(":deal_id/cancel", self.onCancelDeal())
		deals.PUT(":deal_id/proof-spec", self.onUpdateProofSpec())
	}

	// Funding comes from a payment webhook relay or the advertiser
	v1.POST("deals/:deal_id/fund", self.timeout(), self.authInternalOrUser(), self.onFundDeal())

	orchestrator := v1.Group("orchestrator", self.timeout(), self.authOrchestrator())
	{
		orchestrator.POST("callback", self.onOrchestratorCallback())
		orchestrator.GET("requests", self.onGetVerificationRequests())
	}

	settlements := v1.Group("settlements", self.timeout(), self.authInternalOrUser())
	{
		settlements.POST("release", self.onReleaseEscrow())
		settlements.POST("refund", self.onRefundEscrow())
	}

	reviews := v1.Group("reviews", self.timeout(), self.authUser())
	{
		reviews.GET("", self.onListReviews())
		reviews.POST(":review_id/assign", self.onAssignReview())
		reviews.POST(":review_id/decision", self.onReviewDecision())
	}

	// Long lived websocket, no request timeout
	v1.GET("events", self.authUser(), self.onDealEvents())
}

// requestId tags every request for log correlation. An id passed in by an
// upstream proxy is kept.
func requestId() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = xid.New().String()
		}
		c.Set(RequestIdKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// timeout caps a single request. The websocket feed is registered outside
// of it.
func (self *Server) timeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), self.Config.Gateway.RequestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (self *Server) run() (err error) {
	self.setupRoutes()

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
