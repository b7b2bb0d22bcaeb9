package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/pactline/escrowd/src/gateway/response"
	"github.com/pactline/escrowd/src/utils/deal"
	. "github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/orchestrator"

	"github.com/gin-gonic/gin"
)

var ErrNoDealId = errors.New("callback payload carries no deal id")

// onOrchestratorCallback ingests verification verdicts. Whatever shape the
// analysis service sends is normalized first, only a payload without a
// recognizable deal id is rejected.
func (self *Server) onOrchestratorCallback() gin.HandlerFunc {
	return func(c *gin.Context) {
		self.monitor.GetReport().Gateway.State.CallbacksReceived.Inc()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			self.monitor.GetReport().Gateway.Errors.CallbackParse.Inc()
			LOGE(c, err, http.StatusBadRequest).Error("Failed to read callback body")
			return
		}

		res := orchestrator.Normalize(body)
		if res.DealID == "" {
			self.monitor.GetReport().Gateway.Errors.CallbackParse.Inc()
			self.monitor.GetReport().Gateway.State.CallbacksDropped.Inc()
			LOGE(c, ErrNoDealId, http.StatusBadRequest).Error("Dropped verification callback")
			return
		}

		out, applied, err := self.deals.ApplyResult(c, res, res.RequestID)
		if err != nil {
			if errors.Is(err, deal.ErrDealNotFound) {
				self.monitor.GetReport().Gateway.Errors.CallbackUnknownDeal.Inc()
				self.monitor.GetReport().Gateway.State.CallbacksDropped.Inc()
				LOGE(c, err, http.StatusNotFound).
					WithField("deal_id", res.DealID).
					Warn("Callback for unknown deal")
				return
			}
			self.monitor.GetReport().Gateway.Errors.DbError.Inc()
			LOGE(c, err, http.StatusInternalServerError).
				WithField("deal_id", res.DealID).
				Error("Failed to apply verification result")
			return
		}

		if applied {
			self.monitor.GetReport().Gateway.State.ResultsApplied.Inc()
		}

		score := res.OverallScore
		if out.VerificationScore.Valid {
			score = int(out.VerificationScore.Int64)
		}

		LOG(c).WithField("deal_id", res.DealID).
			WithField("outcome", res.Outcome).
			WithField("applied", applied).
			Debug("Verification callback handled")

		c.JSON(http.StatusOK, &response.CallbackAck{
			Success:           true,
			DealStatus:        string(out.Status),
			VerificationScore: score,
		})
	}
}

// onGetVerificationRequests lets the analysis service poll for pending work
// instead of being called. Read only, dispatch bookkeeping stays with the
// verifier.
func (self *Server) onGetVerificationRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		requests, err := self.deals.PendingVerificationRequests(c)
		if err != nil {
			self.monitor.GetReport().Gateway.Errors.DbError.Inc()
			LOGE(c, err, http.StatusInternalServerError).Error("Failed to list verification requests")
			return
		}

		LOG(c).WithField("num", len(requests)).Debug("Return verification requests")

		c.JSON(http.StatusOK, response.VerificationRequestsToResponse(requests))
	}
}
