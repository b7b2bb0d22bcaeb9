package request

import "time"

type ProofSpec struct {
	TextProof     string   `json:"text_proof"`
	DurationHours int      `json:"duration_hours"`
	VisualMarkers []string `json:"visual_markers"`
	VideoMarkers  []string `json:"video_markers"`
	LinkMarkers   []string `json:"link_markers"`
}

type CreateDeal struct {
	Platform    string    `json:"platform"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Deadline    time.Time `json:"deadline"`
	PublicOptIn bool      `json:"public_opt_in"`
	Spec        ProofSpec `json:"proof_spec"`
}
