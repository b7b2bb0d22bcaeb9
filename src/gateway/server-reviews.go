package gateway

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pactline/escrowd/src/gateway/request"
	"github.com/pactline/escrowd/src/gateway/response"
	"github.com/pactline/escrowd/src/utils/hitl"
	. "github.com/pactline/escrowd/src/utils/logger"
	"github.com/pactline/escrowd/src/utils/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	ErrBadReviewId     = errors.New("review id is not a number")
	ErrUnknownDecision = errors.New("unknown decision")
)

func reviewStatusCode(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, hitl.ErrReviewClosed):
		return http.StatusConflict
	case errors.Is(err, hitl.ErrNotAssigned):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (self *Server) reviewError(c *gin.Context, err error, message string) {
	status := reviewStatusCode(err)
	if status == http.StatusInternalServerError {
		self.monitor.GetReport().Gateway.Errors.DbError.Inc()
		LOGE(c, err, status).Error(message)
		return
	}
	LOGE(c, err, status).Debug(message)
}

func (self *Server) onListReviews() gin.HandlerFunc {
	return func(c *gin.Context) {
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			offset = 0
		}

		out, err := self.reviews.ListOpen(c, offset)
		if err != nil {
			self.reviewError(c, err, "Failed to list reviews")
			return
		}

		c.JSON(http.StatusOK, response.ReviewsToResponse(out))
	}
}

func (self *Server) onAssignReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewId, err := strconv.ParseInt(c.Param("review_id"), 10, 64)
		if err != nil {
			LOGE(c, ErrBadReviewId, http.StatusBadRequest).Debug("Rejected review assignment")
			return
		}

		// Without a body the caller assigns the review to themselves
		var in = new(request.AssignReview)
		if c.Request.ContentLength > 0 {
			err = c.ShouldBindJSON(in)
			if err != nil {
				LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
				return
			}
		}
		assignee := in.AssigneeID
		if assignee == "" {
			assignee = userId(c)
		}

		out, err := self.reviews.Assign(c, reviewId, assignee)
		if err != nil {
			self.reviewError(c, err, "Failed to assign review")
			return
		}

		self.monitor.GetReport().Gateway.State.ReviewsAssigned.Inc()

		c.JSON(http.StatusOK, response.ReviewToResponse(out))
	}
}

func (self *Server) onReviewDecision() gin.HandlerFunc {
	return func(c *gin.Context) {
		reviewId, err := strconv.ParseInt(c.Param("review_id"), 10, 64)
		if err != nil {
			LOGE(c, ErrBadReviewId, http.StatusBadRequest).Debug("Rejected review decision")
			return
		}

		var in = new(request.ReviewDecision)
		err = c.ShouldBindJSON(in)
		if err != nil {
			LOGE(c, err, http.StatusBadRequest).Error("Failed to parse request")
			return
		}

		decision := model.ReviewDecision(strings.ToUpper(in.Decision))
		switch decision {
		case model.ReviewDecisionRelease, model.ReviewDecisionRefund,
			model.ReviewDecisionManualFail, model.ReviewDecisionEscalate:
		default:
			LOGE(c, ErrUnknownDecision, http.StatusBadRequest).
				WithField("decision", in.Decision).
				Debug("Rejected review decision")
			return
		}

		out, err := self.reviews.ProcessDecision(c, reviewId, userId(c), c.GetBool(ctxElevated), decision, in.Notes)
		if err != nil {
			self.reviewError(c, err, "Failed to process decision")
			return
		}

		self.monitor.GetReport().Gateway.State.DecisionsProcessed.Inc()

		c.JSON(http.StatusOK, response.ReviewToResponse(out))
	}
}
