package response

import (
	"time"

	"github.com/pactline/escrowd/src/utils/model"
)

type Review struct {
	ID     int64  `json:"id"`
	DealID string `json:"deal_id"`
	RunID  string `json:"run_id,omitempty"`

	ReasonCode string `json:"reason_code"`
	Severity   string `json:"severity"`
	Status     string `json:"status"`

	AssigneeID string `json:"assignee_id,omitempty"`
	Decision   string `json:"decision,omitempty"`
	Notes      string `json:"notes,omitempty"`

	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type ListReviews struct {
	Reviews []Review `json:"reviews"`
}

func ReviewToResponse(review *model.Review) *Review {
	out := &Review{
		ID:         review.ID,
		DealID:     review.DealID,
		RunID:      review.RunID.String,
		ReasonCode: string(review.ReasonCode),
		Severity:   string(review.Severity),
		Status:     string(review.Status),
		AssigneeID: review.AssigneeID.String,
		Notes:      review.Notes.String,
		CreatedAt:  review.CreatedAt,
	}

	if review.Decision != nil {
		out.Decision = string(*review.Decision)
	}
	if review.ClosedAt.Valid {
		out.ClosedAt = &review.ClosedAt.Time
	}

	return out
}

func ReviewsToResponse(reviews []model.Review) *ListReviews {
	out := make([]Review, len(reviews))
	for i := range reviews {
		out[i] = *ReviewToResponse(&reviews[i])
	}
	return &ListReviews{Reviews: out}
}
