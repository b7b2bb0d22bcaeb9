package response

import (
	"time"

	"github.com/pactline/escrowd/src/utils/model"
)

type Settlement struct {
	ID     int64  `json:"id"`
	DealID string `json:"deal_id"`

	Type   string `json:"type"`
	Status string `json:"status"`

	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
	RecipientID string `json:"recipient_id"`
	TxReference string `json:"tx_reference,omitempty"`

	Reason        string `json:"reason,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	SettledAt *time.Time `json:"settled_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func SettlementToResponse(settlement *model.Settlement) *Settlement {
	out := &Settlement{
		ID:            settlement.ID,
		DealID:        settlement.DealID,
		Type:          string(settlement.Type),
		Status:        string(settlement.Status),
		Amount:        settlement.Amount,
		Currency:      settlement.Currency,
		Method:        string(settlement.Method),
		RecipientID:   settlement.RecipientID,
		TxReference:   settlement.TxReference.String,
		Reason:        settlement.Reason.String,
		FailureReason: settlement.FailureReason.String,
		CreatedAt:     settlement.CreatedAt,
	}

	if settlement.SettledAt.Valid {
		out.SettledAt = &settlement.SettledAt.Time
	}

	return out
}
