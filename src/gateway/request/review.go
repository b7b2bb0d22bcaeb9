package request

type AssignReview struct {
	// Defaults to the caller when empty
	AssigneeID string `json:"assignee_id"`
}

type ReviewDecision struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}
