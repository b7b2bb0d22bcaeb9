package notify

import (
	"testing"

	"github.com/pactline/escrowd/src/utils/config"
	"github.com/pactline/escrowd/src/utils/model"
	monitor_notifier "github.com/pactline/escrowd/src/utils/monitoring/notifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperFanOut(t *testing.T) {
	config := config.Default()
	config.AppSync.Enabled = true

	input := make(chan string, 4)
	mapper := NewMapper(config).
		WithInputChannel(input).
		WithMonitor(monitor_notifier.NewMonitor())
	require.Len(t, mapper.Outputs, 1)

	require.NoError(t, mapper.Start())

	input <- `{"deal_id":"deal-1","status":"VERIFYING","timestamp":1723000000}`

	change := <-mapper.Outputs[0]
	assert.Equal(t, "deal-1", change.DealID)
	assert.Equal(t, model.DealStatusVerifying, change.Status)

	appSync := <-mapper.OutputAppSync
	assert.Equal(t, "deal-1", appSync.DealID)
	assert.Equal(t, "VERIFYING", appSync.Status)
	assert.EqualValues(t, 1723000000, appSync.SyncTimestamp)

	// A payload that doesn't parse is dropped, the stream keeps moving
	input <- `notify payload that is not json`
	input <- `{"deal_id":"deal-2","status":"COMPLETED","timestamp":1723000060}`

	change = <-mapper.Outputs[0]
	assert.Equal(t, "deal-2", change.DealID)
	<-mapper.OutputAppSync

	close(input)
	mapper.StopWait()
}

func TestMapperAppSyncDisabled(t *testing.T) {
	input := make(chan string, 1)
	mapper := NewMapper(config.Default()).
		WithInputChannel(input).
		WithMonitor(monitor_notifier.NewMonitor())

	require.NoError(t, mapper.Start())

	// Nothing consumes OutputAppSync, the change still flows to Redis
	input <- `{"deal_id":"deal-1","status":"COMPLETED","timestamp":1723000000}`

	change := <-mapper.Outputs[0]
	assert.Equal(t, "deal-1", change.DealID)

	select {
	case <-mapper.OutputAppSync:
		t.Fatal("expected no AppSync fan-out")
	default:
	}

	close(input)
	mapper.StopWait()
}
