package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatboat/chatboat/pkg/protocol"
)

func drain(s *Session) []protocol.Message {
	var out []protocol.Message
	for {
		select {
		case m := <-s.outbox:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestDeliverExcludesOrigin(t *testing.T) {
	reg := NewRegistry(nil, 8)
	metrics := NewMetrics()
	disp := NewDispatcher(reg, metrics)

	alice, err := reg.Join("alice")
	require.NoError(t, err)
	bob, err := reg.Join("bob")
	require.NoError(t, err)
	carol, err := reg.Join("carol")
	require.NoError(t, err)

	msg := &protocol.Chat{From: "alice", Body: "hi"}
	disp.Deliver("alice", msg, true)

	assert.Empty(t, drain(alice), "sender must not receive its own message")
	assert.Equal(t, []protocol.Message{msg}, drain(bob))
	assert.Equal(t, []protocol.Message{msg}, drain(carol))
}

func TestDeliverIncludesOrigin(t *testing.T) {
	reg := NewRegistry(nil, 8)
	disp := NewDispatcher(reg, NewMetrics())

	alice, err := reg.Join("alice")
	require.NoError(t, err)

	msg := &protocol.Presence{Name: "server", Online: false}
	disp.Deliver("alice", msg, false)
	assert.Equal(t, []protocol.Message{msg}, drain(alice))
}

func TestDeliverDropsOnFullOutbox(t *testing.T) {
	reg := NewRegistry(nil, 1)
	metrics := NewMetrics()
	disp := NewDispatcher(reg, metrics)

	slow, err := reg.Join("slow")
	require.NoError(t, err)
	fast, err := reg.Join("fast")
	require.NoError(t, err)

	// Three deliveries into a capacity-1 queue: one lands, two drop. The
	// call must return promptly instead of blocking on the full queue.
	start := time.Now()
	for i := 0; i < 3; i++ {
		disp.Deliver("alice", &protocol.Chat{From: "alice", Body: "spam"}, true)
	}
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	assert.Len(t, drain(slow), 1)
	assert.Len(t, drain(fast), 3, "a full queue elsewhere must not cost other recipients")
	assert.Equal(t, int64(2), metrics.BackpressureDrops.Load())
}

func TestDeliverSkipsStoppedSessions(t *testing.T) {
	reg := NewRegistry(nil, 8)
	metrics := NewMetrics()
	disp := NewDispatcher(reg, metrics)

	gone, err := reg.Join("gone")
	require.NoError(t, err)
	gone.close()

	disp.Deliver("alice", &protocol.Chat{From: "alice", Body: "hi"}, true)
	assert.Empty(t, drain(gone))
	assert.Zero(t, metrics.BackpressureDrops.Load())
}
