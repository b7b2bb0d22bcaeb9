package orchestrator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pactline/escrowd/src/utils/build_info"
	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/logger"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Client of the external content analysis service. Dispatch is accepted or
// failed, results arrive later through the callback endpoint or polling.
type Client struct {
	config  *config.Config
	log     *logrus.Entry
	client  *resty.Client
	limiter *rate.Limiter
}

func NewClient(config *config.Config) (self *Client) {
	self = new(Client)
	self.config = config
	self.log = logger.NewSublogger("orchestrator-client")

	// Analysis is slow, the timeout is minutes, not seconds
	self.client = resty.New().
		SetBaseURL(config.Orchestrator.Url).
		SetTimeout(config.Orchestrator.DispatchTimeout).
		SetHeader("User-Agent", "pactline.io/escrowd/"+build_info.Version).
		SetAuthToken(config.Orchestrator.Token).
		AddRetryAfterErrorCondition().
		OnBeforeRequest(self.onRateLimit).
		OnAfterResponse(self.onStatusToError)

	self.limiter = rate.NewLimiter(rate.Limit(float64(config.Orchestrator.RequestsPerMinute)/60.0), 1)

	return
}

func (self *Client) onRateLimit(c *resty.Client, req *resty.Request) error {
	return self.limiter.Wait(req.Context())
}

func (self *Client) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	if resp.StatusCode() > 399 && resp.StatusCode() < 500 {
		self.log.WithField("status", resp.StatusCode()).
			WithField("resp", string(resp.Body())).
			WithField("url", resp.Request.URL).
			Debug("Bad request")
	}
	return fmt.Errorf("unexpected status: %s", resp.Status())
}

// Dispatch submits a verification request. Success means the service accepted
// the request, not that analysis finished.
func (self *Client) Dispatch(ctx context.Context, req *DispatchRequest) (err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetBody(req).
		SetHeader("Content-Type", "application/json").
		Post("/v1/analyses")
	if err != nil {
		return
	}

	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("dispatch rejected: %s", resp.Status())
	}
	return nil
}
