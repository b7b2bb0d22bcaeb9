package payment

import (
	"context"
	"errors"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"

	cache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// Connections resolves the payout destination for a user. Lookups are cached,
// revocations bust the cache through Invalidate.
type Connections struct {
	db    *gorm.DB
	cache *cache.Cache
}

func NewConnections(config *config.Config, db *gorm.DB) (self *Connections) {
	self = new(Connections)
	self.db = db
	self.cache = cache.New(config.Payment.ConnectionCacheTtl, config.Payment.ConnectionCacheCleanup)
	return
}

func (self *Connections) cacheKey(userId string, method model.PaymentMethod) string {
	return userId + "|" + string(method)
}

// Lookup returns the active connection for the user and method.
// ErrNoConnection when the user never connected the method or revoked it.
func (self *Connections) Lookup(ctx context.Context, userId string, method model.PaymentMethod) (out *model.PaymentConnection, err error) {
	key := self.cacheKey(userId, method)
	if cached, ok := self.cache.Get(key); ok {
		out = cached.(*model.PaymentConnection)
		return
	}

	var connection model.PaymentConnection
	err = self.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Where("method = ?", method).
		Where("status = ?", model.ConnectionStatusConnected).
		First(&connection).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = ErrNoConnection
		return
	}
	if err != nil {
		return
	}

	out = &connection
	self.cache.Set(key, out, cache.DefaultExpiration)
	return
}

func (self *Connections) Invalidate(userId string, method model.PaymentMethod) {
	self.cache.Delete(self.cacheKey(userId, method))
}
