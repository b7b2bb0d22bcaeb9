package payment

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pactline/escrowd/src/utils/build_info"
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Stripe-backed executor. Only the two money moving calls are wrapped, no SDK.
type StripeBackend struct {
	log     *logrus.Entry
	client  *resty.Client
	limiter *rate.Limiter
}

type stripeTransfer struct {
	Id string `json:"id"`
}

func NewStripeBackend(config *config.Config) (self *StripeBackend) {
	self = new(StripeBackend)
	self.log = logger.NewSublogger("stripe")

	self.client = resty.New().
		SetBaseURL(config.Payment.StripeUrl).
		SetTimeout(config.Payment.RequestTimeout).
		SetHeader("User-Agent", "pactline.io/escrowd/"+build_info.Version).
		SetAuthToken(config.Payment.StripeToken).
		OnBeforeRequest(self.onRateLimit).
		OnAfterResponse(self.onStatusToError)

	self.limiter = rate.NewLimiter(rate.Limit(float64(config.Payment.RequestsPerMinute)/60.0), 1)

	return
}

func (self *StripeBackend) onRateLimit(c *resty.Client, req *resty.Request) error {
	return self.limiter.Wait(req.Context())
}

func (self *StripeBackend) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("unexpected status: %s", resp.Status())
}

func (self *StripeBackend) Transfer(ctx context.Context, req *TransferRequest) (out *TransferResult, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetResult(stripeTransfer{}).
		SetHeader("Idempotency-Key", req.Reference).
		SetFormData(map[string]string{
			"amount":      strconv.FormatInt(req.Amount, 10),
			"currency":    req.Currency,
			"destination": req.Destination,
		}).
		Post("/v1/transfers")
	if err != nil {
		return
	}

	transfer, ok := resp.Result().(*stripeTransfer)
	if !ok || transfer.Id == "" {
		err = fmt.Errorf("malformed transfer response")
		return
	}

	out = &TransferResult{TxReference: transfer.Id}
	return
}

func (self *StripeBackend) Refund(ctx context.Context, req *RefundRequest) (out *TransferResult, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetResult(stripeTransfer{}).
		SetHeader("Idempotency-Key", req.Reference).
		SetFormData(map[string]string{
			"charge": req.OriginalTxReference,
			"amount": strconv.FormatInt(req.Amount, 10),
		}).
		Post("/v1/refunds")
	if err != nil {
		return
	}

	refund, ok := resp.Result().(*stripeTransfer)
	if !ok || refund.Id == "" {
		err = fmt.Errorf("malformed refund response")
		return
	}

	out = &TransferResult{TxReference: refund.Id}
	return
}
