package archive

import (
	"database/sql"
	"testing"
	"time"

	"github.com/pactline/escrowd/src/utils/model"

	"github.com/hamba/avro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFromEscrowEvent(t *testing.T) {
	occurred := time.Date(2026, time.March, 7, 12, 30, 0, 0, time.UTC)
	record := NewRecord(&model.EscrowEvent{
		ID:            42,
		DealID:        "deal-1",
		EventType:     model.EscrowEventReleased,
		Amount:        250000,
		Currency:      "usd",
		PaymentMethod: model.PaymentMethodStripe,
		TxReference:   sql.NullString{String: "out-1", Valid: true},
		OccurredAt:    occurred,
	})

	assert.Equal(t, int64(42), record.ID)
	assert.Equal(t, "RELEASED", record.EventType)
	assert.Equal(t, "STRIPE", record.PaymentMethod)
	assert.Equal(t, occurred.UnixMilli(), record.OccurredAt)

	data, err := record.Marshal()
	require.NoError(t, err)
	require.NotEmpty(t, data)

	// The consumer side decodes with the same schema
	var decoded Record
	require.NoError(t, avro.Unmarshal(avroParser, data, &decoded))
	assert.Equal(t, *record, decoded)
}

func TestRecordWithoutTxReference(t *testing.T) {
	record := NewRecord(&model.EscrowEvent{
		ID:            7,
		DealID:        "deal-1",
		EventType:     model.EscrowEventCreated,
		Amount:        100,
		Currency:      "usd",
		PaymentMethod: model.PaymentMethodTreasury,
		OccurredAt:    time.Now(),
	})
	assert.Empty(t, record.TxReference)

	_, err := record.Marshal()
	assert.NoError(t, err)
}
