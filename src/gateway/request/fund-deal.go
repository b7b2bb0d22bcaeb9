package request

type FundDeal struct {
	Method      string `json:"method"`
	TxReference string `json:"tx_reference"`
}
