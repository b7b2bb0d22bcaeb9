package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrNoConnection   = errors.New("no connected payment destination")
	ErrUnknownBackend = errors.New("unknown payment backend")
)

type TransferRequest struct {
	Destination string
	Amount      int64
	Currency    string

	// Caller-chosen idempotency reference
	Reference string
}

type RefundRequest struct {
	Destination string
	Amount      int64
	Currency    string
	Reference   string

	// Backend reference of the funding transfer being reversed
	OriginalTxReference string
}

type TransferResult struct {
	TxReference string
}

// A money-moving executor. Acceptance of a request counts as settled, the
// backend's own guarantees cover confirmation.
type Backend interface {
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
	Refund(ctx context.Context, req *RefundRequest) (*TransferResult, error)
}

// Backends keyed by the payment method recorded on the funding event.
type Registry struct {
	backends map[model.PaymentMethod]Backend
}

func NewRegistry(config *config.Config) (self *Registry) {
	self = new(Registry)
	self.backends = map[model.PaymentMethod]Backend{
		model.PaymentMethodStripe:   NewStripeBackend(config),
		model.PaymentMethodTreasury: NewTreasuryBackend(config),
	}
	return
}

func (self *Registry) For(method model.PaymentMethod) (Backend, error) {
	backend, ok := self.backends[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, method)
	}
	return backend, nil
}

// Methods returns the registered payment methods in a stable order.
func (self *Registry) Methods() []model.PaymentMethod {
	methods := maps.Keys(self.backends)
	slices.Sort(methods)
	return methods
}

// WithBackend replaces a backend, used in tests.
func (self *Registry) WithBackend(method model.PaymentMethod, backend Backend) *Registry {
	self.backends[method] = backend
	return self
}
