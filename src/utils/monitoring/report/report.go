package report

type Report struct {
	Run            *RunReport              `json:"run,omitempty"`
	Gateway        *GatewayReport          `json:"gateway,omitempty"`
	Verifier       *VerifierReport         `json:"verifier,omitempty"`
	Settler        *SettlerReport          `json:"settler,omitempty"`
	Archiver       *ArchiverReport         `json:"archiver,omitempty"`
	Notifier       *NotifierReport         `json:"notifier,omitempty"`
	RedisPublisher *RedisPublisherReport   `json:"redis_publisher,omitempty"`
	AppSync        *AppSyncPublisherReport `json:"app_sync,omitempty"`
}
