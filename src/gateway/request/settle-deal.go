package request

type SettleDeal struct {
	DealID string `json:"deal_id"`
	Reason string `json:"reason"`
}
