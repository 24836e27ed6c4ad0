package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFansOut(t *testing.T) {
	b := NewBus(4)
	a, cancelA := b.Subscribe()
	c, cancelC := b.Subscribe()
	defer cancelA()
	defer cancelC()

	e := Event{Event: RecordsAppended, Date: "2026-10-19", NewCount: 3, Added: 1}
	b.Publish(e)

	assert.Equal(t, e, <-a)
	assert.Equal(t, e, <-c)
}

func TestPublishDropsWhenFull(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{Event: SummaryReady, Date: "1"})
	b.Publish(Event{Event: SummaryReady, Date: "2"})

	assert.Equal(t, "1", (<-ch).Date)
	assert.Equal(t, uint64(1), b.Dropped())
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(Event{Event: RecordsAppended}) // no subscribers, no panic
}

func TestCloseClosesAll(t *testing.T) {
	b := NewBus(1)
	ch, cancel := b.Subscribe()
	b.Close()
	b.Close()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestNilBusPublish(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Publish(Event{}) })
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(Event{Event: RecordsAppended, Date: "2026-10-19", NewCount: 12, Added: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"recordsAppended","date":"2026-10-19","newCount":12,"added":2}`, string(data))

	// A cleared history announces a zero count explicitly.
	data, err = json.Marshal(Event{Event: RecordsAppended, Date: "2026-10-19"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"recordsAppended","date":"2026-10-19","newCount":0}`, string(data))
}
