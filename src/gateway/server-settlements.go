package gateway

import (
	"errors"
	"net/http"

	"github.com/pactline/escrowd/src/gateway/request"
	"github.com/pactline/escrowd/src/gateway/response"
	"github.com/pactline/escrowd/src/utils/deal"
	. "github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/settlement"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var ErrDealIdRequired = errors.New("deal_id is required")

func settlementStatusCode(err error) int {
	switch {
	case errors.Is(err, deal.ErrDealNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrNotSettleable),
		errors.Is(err, settlement.ErrNotFunded),
		errors.Is(err, settlement.ErrNoRecipient):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Settlements move the advertiser's money, so a user token has to belong
// to the deal's advertiser. Internal callers skip the check.
func (self *Server) allowSettlement(c *gin.Context, dealId string) bool {
	if c.GetBool(ctxInternal) {
		return true
	}

	out, _, err := self.deals.Get(c, dealId)
	if err != nil {
		self.dealError(c, err, "Failed to get deal")
		return false
	}
	if out.AdvertiserID != userId(c) {
		LOGE(c, deal.ErrNotAdvertiser, http.StatusForbidden).Debug("Settlement by non-advertiser")
		return false
	}
	return true
}

func (self *Server) onReleaseEscrow() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in = new(request.SettleDeal)
		err := c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}
		if in.DealID == "" {
			LOGE(c, ErrDealIdRequired, http.StatusBadRequest).Debug("Rejected settlement request")
			return
		}

		if !self.allowSettlement(c, in.DealID) {
			return
		}

		out, err := self.executor.ReleaseEscrow(c, in.DealID)
		if err != nil {
			status := settlementStatusCode(err)
			if status == http.StatusInternalServerError {
				self.monitor.GetReport().Gateway.Errors.DbError.Inc()
			}
			LOGE(c, err, status).
				WithField("deal_id", in.DealID).
				Error("Failed to release escrow")
			return
		}

		self.monitor.GetReport().Gateway.State.SettlementsTriggered.Inc()

		c.JSON(http.StatusOK, response.SettlementToResponse(out))
	}
}

func (self *Server) onRefundEscrow() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in = new(request.SettleDeal)
		err := c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}
		if in.DealID == "" {
			LOGE(c, ErrDealIdRequired, http.StatusBadRequest).Debug("Rejected settlement request")
			return
		}

		if !self.allowSettlement(c, in.DealID) {
			return
		}

		out, err := self.executor.RefundEscrow(c, in.DealID, in.Reason)
		if err != nil {
			status := settlementStatusCode(err)
			if status == http.StatusInternalServerError {
				self.monitor.GetReport().Gateway.Errors.DbError.Inc()
			}
			LOGE(c, err, status).
				WithField("deal_id", in.DealID).
				Error("Failed to refund escrow")
			return
		}

		self.monitor.GetReport().Gateway.State.SettlementsTriggered.Inc()

		c.JSON(http.StatusOK, response.SettlementToResponse(out))
	}
}
