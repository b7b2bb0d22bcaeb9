package response

import (
	"time"

	"github.com/pactline/escrowd/src/utils/model"
)

type ProofSpec struct {
	TextProof     string   `json:"text_proof"`
	DurationHours int      `json:"duration_hours"`
	VisualMarkers []string `json:"visual_markers"`
	VideoMarkers  []string `json:"video_markers"`
	LinkMarkers   []string `json:"link_markers"`
	Revision      int      `json:"revision"`
}

type Deal struct {
	ID           string `json:"id"`
	AdvertiserID string `json:"advertiser_id"`
	CreatorID    string `json:"creator_id,omitempty"`
	Platform     string `json:"platform"`

	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`

	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`

	Deadline time.Time  `json:"deadline"`
	PostedAt *time.Time `json:"posted_at,omitempty"`
	PostURL  string     `json:"post_url,omitempty"`

	PublicOptIn bool `json:"public_opt_in"`

	VerificationScore  *int64     `json:"verification_score,omitempty"`
	LastVerificationAt *time.Time `json:"last_verification_at,omitempty"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type GetDeal struct {
	Deal      *Deal      `json:"deal"`
	ProofSpec *ProofSpec `json:"proof_spec,omitempty"`
}

type ListDeals struct {
	Deals []Deal `json:"deals"`
}

func DealToResponse(deal *model.Deal) *Deal {
	out := &Deal{
		ID:            deal.ID,
		AdvertiserID:  deal.AdvertiserID,
		CreatorID:     deal.CreatorID.String,
		Platform:      deal.Platform,
		Amount:        deal.Amount,
		Currency:      deal.Currency,
		Status:        string(deal.Status),
		FailureReason: deal.FailureReason.String,
		Deadline:      deal.Deadline,
		PostURL:       deal.PostURL.String,
		PublicOptIn:   deal.PublicOptIn,
		CreatedAt:     deal.CreatedAt,
		UpdatedAt:     deal.UpdatedAt,
	}

	if deal.PostedAt.Valid {
		out.PostedAt = &deal.PostedAt.Time
	}
	if deal.VerificationScore.Valid {
		out.VerificationScore = &deal.VerificationScore.Int64
	}
	if deal.LastVerificationAt.Valid {
		out.LastVerificationAt = &deal.LastVerificationAt.Time
	}
	if deal.CancelledAt.Valid {
		out.CancelledAt = &deal.CancelledAt.Time
	}

	return out
}

func SpecToResponse(spec *model.ProofSpec) *ProofSpec {
	if spec == nil {
		return nil
	}
	return &ProofSpec{
		TextProof:     spec.TextProof,
		DurationHours: spec.DurationHours,
		VisualMarkers: spec.VisualMarkers,
		VideoMarkers:  spec.VideoMarkers,
		LinkMarkers:   spec.LinkMarkers,
		Revision:      spec.Revision,
	}
}

func GetDealToResponse(deal *model.Deal, spec *model.ProofSpec) *GetDeal {
	return &GetDeal{
		Deal:      DealToResponse(deal),
		ProofSpec: SpecToResponse(spec),
	}
}

func DealsToResponse(deals []model.Deal) *ListDeals {
	out := make([]Deal, len(deals))
	for i := range deals {
		out[i] = *DealToResponse(&deals[i])
	}
	return &ListDeals{Deals: out}
}
