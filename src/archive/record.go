package archive

import (
	"github.com/hamba/avro"

	"github.com/pactline/escrowd/src/utils/model"
)

// Row shape of the ledger archive topic. Consumers dedupe on id, the producer
// is at-least-once.
type Record struct {
	ID            int64  `avro:"id"`
	DealID        string `avro:"deal_id"`
	EventType     string `avro:"event_type"`
	Amount        int64  `avro:"amount"`
	Currency      string `avro:"currency"`
	PaymentMethod string `avro:"payment_method"`
	TxReference   string `avro:"tx_reference"`
	OccurredAt    int64  `avro:"occurred_at"`
}

var avroParser = avro.MustParse(`{
	"type": "record",
	"name": "EscrowEvent",
	"namespace": "io.pactline.escrowd",
	"fields": [
		{"name": "id", "type": "long"},
		{"name": "deal_id", "type": "string"},
		{"name": "event_type", "type": "string"},
		{"name": "amount", "type": "long"},
		{"name": "currency", "type": "string"},
		{"name": "payment_method", "type": "string"},
		{"name": "tx_reference", "type": "string"},
		{"name": "occurred_at", "type": "long"}
	]
}`)

func NewRecord(event *model.EscrowEvent) *Record {
	return &Record{
		ID:            event.ID,
		DealID:        event.DealID,
		EventType:     string(event.EventType),
		Amount:        event.Amount,
		Currency:      event.Currency,
		PaymentMethod: string(event.PaymentMethod),
		TxReference:   event.TxReference.String,
		OccurredAt:    event.OccurredAt.UnixMilli(),
	}
}

func (self *Record) Marshal() ([]byte, error) {
	return avro.Marshal(avroParser, self)
}
