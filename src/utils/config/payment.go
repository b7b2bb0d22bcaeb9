package config

import (
	"time"

	"github.com/spf13/viper"
)

type Payment struct {
	// Stripe-backed transfer executor
	StripeUrl   string
	StripeToken string

	// Internal treasury executor used for on-chain denominated deals
	TreasuryUrl   string
	TreasuryToken string

	// Per-call timeout against either backend
	RequestTimeout time.Duration

	// Limit of outgoing payment requests
	RequestsPerMinute int

	// Payment connection lookups are cached this long
	ConnectionCacheTtl     time.Duration
	ConnectionCacheCleanup time.Duration
}

func setPaymentDefaults() {
	viper.SetDefault("Payment.StripeUrl", "https://api.stripe.com")
	viper.SetDefault("Payment.StripeToken", "")
	viper.SetDefault("Payment.TreasuryUrl", "http://localhost:9020")
	viper.SetDefault("Payment.TreasuryToken", "")
	viper.SetDefault("Payment.RequestTimeout", "30s")
	viper.SetDefault("Payment.RequestsPerMinute", "120")
	viper.SetDefault("Payment.ConnectionCacheTtl", "5m")
	viper.SetDefault("Payment.ConnectionCacheCleanup", "10m")
}
