package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pactline/escrowd/src/gateway/request"
	"github.com/pactline/escrowd/src/gateway/response"
	"github.com/pactline/escrowd/src/utils/deal"
	"github.com/pactline/escrowd/src/utils/lifecycle"
	. "github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/model"

	"github.com/gin-gonic/gin"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

func dealStatusCode(err error) int {
	switch {
	case errors.Is(err, deal.ErrDealNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrWrongStatus),
		errors.Is(err, deal.ErrSpecLocked):
		return http.StatusConflict
	case errors.Is(err, deal.ErrNotParty),
		errors.Is(err, deal.ErrNotAdvertiser),
		errors.Is(err, lifecycle.ErrNotCreator),
		errors.Is(err, lifecycle.ErrOwnDeal):
		return http.StatusForbidden
	case errors.Is(err, deal.ErrInvalidAmount),
		errors.Is(err, deal.ErrInvalidCurrency),
		errors.Is(err, deal.ErrEmptyTextProof),
		errors.Is(err, deal.ErrInvalidDuration),
		errors.Is(err, deal.ErrDeadlinePast),
		errors.Is(err, lifecycle.ErrInvalidPostURL):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (self *Server) dealError(c *gin.Context, err error, message string) {
	status := dealStatusCode(err)
	if status == http.StatusInternalServerError {
		self.monitor.GetReport().Gateway.Errors.DbError.Inc()
		LOGE(c, err, status).Error(message)
		return
	}
	LOGE(c, err, status).Debug(message)
}

func (self *Server) onCreateDeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in = new(request.CreateDeal)
		err := c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}

		out, err := self.deals.Create(c, &deal.CreateParams{
			AdvertiserID: userId(c),
			Platform:     in.Platform,
			Amount:       in.Amount,
			Currency:     in.Currency,
			Deadline:     in.Deadline,
			PublicOptIn:  in.PublicOptIn,
			Spec: deal.SpecParams{
				TextProof:     in.Spec.TextProof,
				DurationHours: in.Spec.DurationHours,
				VisualMarkers: in.Spec.VisualMarkers,
				VideoMarkers:  in.Spec.VideoMarkers,
				LinkMarkers:   in.Spec.LinkMarkers,
			},
		})
		if err != nil {
			self.dealError(c, err, "Failed to create deal")
			return
		}

		self.monitor.GetReport().Gateway.State.DealsCreated.Inc()

		c.JSON(http.StatusCreated, response.DealToResponse(out))
	}
}

func (self *Server) onGetDeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		out, spec, err := self.deals.Get(c, c.Param("deal_id"))
		if err != nil {
			self.dealError(c, err, "Failed to get deal")
			return
		}

		// Deals are private to their parties unless opted into the
		// public showcase
		uid := userId(c)
		isParty := out.AdvertiserID == uid || (out.CreatorID.Valid && out.CreatorID.String == uid)
		if !isParty && !out.PublicOptIn {
			LOGE(c, deal.ErrDealNotFound, http.StatusNotFound).Debug("Deal hidden from non-party")
			return
		}

		c.JSON(http.StatusOK, response.GetDealToResponse(out, spec))
	}
}

func (self *Server) onListDeals() gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		out, err := self.deals.List(c, userId(c), offset)
		if err != nil {
			self.dealError(c, err, "Failed to list deals")
			return
		}

		c.JSON(http.StatusOK, response.DealsToResponse(out))
	}
}

func (self *Server) onAcceptDeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := self.deals.Accept(c, c.Param("deal_id"), userId(c))
		if err != nil {
			self.dealError(c, err, "Failed to accept deal")
			return
		}

		self.monitor.GetReport().Gateway.State.DealsAccepted.Inc()

		c.JSON(http.StatusOK, response.DealToResponse(out))
	}
}

func (self *Server) onFundDeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in = new(request.FundDeal)
		err := c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}

		method := model.PaymentMethod(strings.ToUpper(in.Method))
		switch method {
		case model.PaymentMethodStripe, model.PaymentMethodTreasury:
		default:
			LOGE(c, ErrUnknownPaymentMethod, http.StatusBadRequest).
				WithField("method", in.Method).
				Debug("Rejected funding confirmation")
			return
		}

		dealId := c.Param("deal_id")

		// User tokens may only fund their own deals, the internal relay
		// funds any
		if !c.GetBool(ctxInternal) {
			existing, _, err := self.deals.Get(c, dealId)
			if err != nil {
				self.dealError(c, err, "Failed to get deal")
				return
			}
			if existing.AdvertiserID != userId(c) {
				LOGE(c, deal.ErrNotAdvertiser, http.StatusForbidden).Debug("Funding by non-advertiser")
				return
			}
		}

		out, err := self.deals.ConfirmFunding(c, dealId, method, in.TxReference)
		if err != nil {
			self.dealError(c, err, "Failed to confirm funding")
			return
		}

		self.monitor.GetReport().Gateway.State.FundingsConfirmed.Inc()

		c.JSON(http.StatusOK, response.DealToResponse(out))
	}
}

func (self *Server) onSubmitPost() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in = new(request.SubmitPost)
		err := c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}

		out, err := self.deals.SubmitPost(c, c.Param("deal_id"), userId(c), in.PostURL, in.PublicOptIn)
		if err != nil {
			self.dealError(c, err, "Failed to submit post")
			return
		}

		self.monitor.GetReport().Gateway.State.PostsSubmitted.Inc()

		c.JSON(http.StatusOK, response.DealToResponse(out))
	}
}

func (self *Server) onCancelDeal() gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := self.deals.Cancel(c, c.Param("deal_id"), userId(c))
		if err != nil {
			self.dealError(c, err, "Failed to cancel deal")
			return
		}

		self.monitor.GetReport().Gateway.State.DealsCancelled.Inc()

		c.JSON(http.StatusOK, response.DealToResponse(out))
	}
}

func (self *Server) onUpdateProofSpec() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in = new(request.ProofSpec)
		err := c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}

		out, err := self.deals.UpdateProofSpec(c, c.Param("deal_id"), userId(c), &deal.SpecParams{
			TextProof:     in.TextProof,
			DurationHours: in.DurationHours,
			VisualMarkers: in.VisualMarkers,
			VideoMarkers:  in.VideoMarkers,
			LinkMarkers:   in.LinkMarkers,
		})
		if err != nil {
			self.dealError(c, err, "Failed to update proof spec")
			return
		}

		c.JSON(http.StatusOK, response.SpecToResponse(out))
	}
}
