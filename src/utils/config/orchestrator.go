package config

import (
	"time"

	"github.com/spf13/viper"
)

type Orchestrator struct {
	// Base url of the content analysis service
	Url string

	// Bearer token sent with dispatch requests
	Token string

	// Url the analysis service calls back with results
	CallbackUrl string

	// Bearer token the analysis service has to present on callbacks and polls
	CallbackToken string

	// Analysis is slow, this is a per-request ceiling, not a latency target
	DispatchTimeout time.Duration

	// Analysis profile requested from the service
	AnalysisType string

	// Limit of outgoing dispatch requests
	RequestsPerMinute int

	// Max verification requests returned from the polling endpoint
	PollBatchSize int
}

func setOrchestratorDefaults() {
	viper.SetDefault("Orchestrator.Url", "http://localhost:9010")
	viper.SetDefault("Orchestrator.Token", "")
	viper.SetDefault("Orchestrator.CallbackUrl", "http://localhost:4000/v1/orchestrator/callback")
	viper.SetDefault("Orchestrator.CallbackToken", "")
	viper.SetDefault("Orchestrator.DispatchTimeout", "5m")
	viper.SetDefault("Orchestrator.AnalysisType", "proof_verification")
	viper.SetDefault("Orchestrator.RequestsPerMinute", "60")
	viper.SetDefault("Orchestrator.PollBatchSize", "20")
}
