package payment

import (
	"context"
	"fmt"

	"github.com/pactline/escrowd/src/utils/build_info"
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Internal treasury service executing on-chain denominated transfers. From
// this side it is just another REST executor.
type TreasuryBackend struct {
	log     *logrus.Entry
	client  *resty.Client
	limiter *rate.Limiter
}

type treasuryTransfer struct {
	TxReference string `json:"tx_reference"`
}

func NewTreasuryBackend(config *config.Config) (self *TreasuryBackend) {
	self = new(TreasuryBackend)
	self.log = logger.NewSublogger("treasury")

	self.client = resty.New().
		SetBaseURL(config.Payment.TreasuryUrl).
		SetTimeout(config.Payment.RequestTimeout).
		SetHeader("User-Agent", "pactline.io/escrowd/"+build_info.Version).
		SetAuthToken(config.Payment.TreasuryToken).
		OnBeforeRequest(self.onRateLimit).
		OnAfterResponse(self.onStatusToError)

	self.limiter = rate.NewLimiter(rate.Limit(float64(config.Payment.RequestsPerMinute)/60.0), 1)

	return
}

func (self *TreasuryBackend) onRateLimit(c *resty.Client, req *resty.Request) error {
	return self.limiter.Wait(req.Context())
}

func (self *TreasuryBackend) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("unexpected status: %s", resp.Status())
}

func (self *TreasuryBackend) Transfer(ctx context.Context, req *TransferRequest) (out *TransferResult, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetResult(treasuryTransfer{}).
		SetBody(map[string]interface{}{
			"destination": req.Destination,
			"amount":      req.Amount,
			"currency":    req.Currency,
			"reference":   req.Reference,
		}).
		Post("/v1/transfers")
	if err != nil {
		return
	}

	transfer, ok := resp.Result().(*treasuryTransfer)
	if !ok || transfer.TxReference == "" {
		err = fmt.Errorf("malformed transfer response")
		return
	}

	out = &TransferResult{TxReference: transfer.TxReference}
	return
}

func (self *TreasuryBackend) Refund(ctx context.Context, req *RefundRequest) (out *TransferResult, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetResult(treasuryTransfer{}).
		SetBody(map[string]interface{}{
			"destination":  req.Destination,
			"amount":       req.Amount,
			"currency":     req.Currency,
			"reference":    req.Reference,
			"original_ref": req.OriginalTxReference,
		}).
		Post("/v1/refunds")
	if err != nil {
		return
	}

	refund, ok := resp.Result().(*treasuryTransfer)
	if !ok || refund.TxReference == "" {
		err = fmt.Errorf("malformed refund response")
		return
	}

	out = &TransferResult{TxReference: refund.TxReference}
	return
}
