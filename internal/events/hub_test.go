package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyDeliversEnvelope(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Notify(TypeIngestFinished, map[string]int{"added": 3})

	var e Event
	require.NoError(t, json.Unmarshal([]byte(<-ch), &e))
	assert.Equal(t, TypeIngestFinished, e.Type)
	assert.Equal(t, 1, e.Version)
	assert.JSONEq(t, `{"added":3}`, string(e.Data))
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	for i := 0; i < 25; i++ {
		h.Publish("x")
	}
	assert.Len(t, ch, cap(ch))

	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	assert.Equal(t, 0, h.Clients())

	var nilHub *Hub
	nilHub.Notify("noop", nil)
}
