// SPDX-License-Identifier: MIT
package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	msgA = iota
	msgB
)

type recorder struct {
	mu   sync.Mutex
	seen []Message
}

func (r *recorder) handle(m Message) {
	r.mu.Lock()
	r.seen = append(r.seen, m)
	r.mu.Unlock()
}

func (r *recorder) whats() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.seen))
	for i, m := range r.seen {
		out[i] = m.What
	}
	return out
}

// flush blocks until every message queued before the call has run.
func flush(t *testing.T, h *Handler) {
	t.Helper()
	done := make(chan struct{})
	h.Post(func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not drain")
	}
}

func TestHandlerFIFO(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)
	h.Start()
	defer h.Stop()

	for i := range 10 {
		h.Send(Message{What: msgA, Arg1: i})
	}
	flush(t, h)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.seen, 10)
	for i, m := range rec.seen {
		assert.Equal(t, i, m.Arg1)
	}
}

func TestHandlerSendBeforeStart(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)
	h.Send(Message{What: msgB})
	h.Start()
	defer h.Stop()
	flush(t, h)
	assert.Equal(t, []int{msgB}, rec.whats())
}

func TestHandlerSendUniqueCoalesces(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)

	// Not started yet, so nothing drains between sends.
	assert.True(t, h.SendUnique(msgA))
	assert.False(t, h.SendUnique(msgA))
	assert.True(t, h.SendUnique(msgB))
	assert.Equal(t, 2, h.Len())

	h.Start()
	defer h.Stop()
	flush(t, h)
	assert.Equal(t, []int{msgA, msgB}, rec.whats())

	// Once handled, the same kind can be queued again.
	assert.True(t, h.SendUnique(msgA))
	flush(t, h)
	assert.Equal(t, []int{msgA, msgB, msgA}, rec.whats())
}

func TestHandlerSendDelayed(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)
	h.Start()
	defer h.Stop()

	h.SendDelayed(Message{What: msgA}, 30*time.Millisecond)
	assert.True(t, h.Has(msgA))
	flush(t, h)
	assert.Empty(t, rec.whats())

	assert.Eventually(t, func() bool {
		return len(rec.whats()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.False(t, h.Has(msgA))
}

func TestHandlerDelayedKeepsOrder(t *testing.T) {
	tests := []struct {
		name   string
		delays []time.Duration
		want   []int
	}{
		{
			name:   "equal delays keep send order",
			delays: repeat(time.Millisecond, 200),
			want:   sequence(200),
		},
		{
			name:   "shorter delay runs first",
			delays: []time.Duration{40 * time.Millisecond, 5 * time.Millisecond, 20 * time.Millisecond},
			want:   []int{1, 2, 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			h := NewHandler("test", rec.handle)
			h.Start()
			defer h.Stop()

			for i, d := range tt.delays {
				h.SendDelayed(Message{What: msgA, Arg1: i}, d)
			}
			require.Eventually(t, func() bool {
				return len(rec.whats()) == len(tt.want)
			}, time.Second, 5*time.Millisecond)

			rec.mu.Lock()
			got := make([]int, len(rec.seen))
			for i, m := range rec.seen {
				got[i] = m.Arg1
			}
			rec.mu.Unlock()
			assert.Equal(t, tt.want, got)
			assert.False(t, h.Has(msgA))
		})
	}
}

func repeat(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func sequence(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestHandlerRemoveCancelsDelayed(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)
	h.Start()
	defer h.Stop()

	h.SendDelayed(Message{What: msgA}, 20*time.Millisecond)
	h.SendDelayed(Message{What: msgB}, 20*time.Millisecond)
	h.Remove(msgA)
	assert.False(t, h.Has(msgA))
	assert.True(t, h.Has(msgB))

	time.Sleep(60 * time.Millisecond)
	flush(t, h)
	assert.Equal(t, []int{msgB}, rec.whats())
}

func TestHandlerRemoveQueued(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)
	h.Send(Message{What: msgA})
	h.Send(Message{What: msgB})
	h.Send(Message{What: msgA})
	h.Remove(msgA)
	assert.Equal(t, 1, h.Len())

	h.Start()
	defer h.Stop()
	flush(t, h)
	assert.Equal(t, []int{msgB}, rec.whats())
}

func TestHandlerRemoveAll(t *testing.T) {
	rec := &recorder{}
	h := NewHandler("test", rec.handle)
	h.Send(Message{What: msgA})
	h.SendDelayed(Message{What: msgB}, 10*time.Millisecond)
	h.RemoveAll()
	assert.False(t, h.Has(msgA))
	assert.False(t, h.Has(msgB))

	h.Start()
	defer h.Stop()
	time.Sleep(30 * time.Millisecond)
	flush(t, h)
	assert.Empty(t, rec.whats())
}

func TestHandlerRecoversPanics(t *testing.T) {
	var calls atomic.Int32
	h := NewHandler("test", func(m Message) {
		calls.Add(1)
		if m.What == msgA {
			panic("boom")
		}
	})
	h.Start()
	defer h.Stop()

	h.Send(Message{What: msgA})
	h.Send(Message{What: msgB})
	flush(t, h)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHandlerStopIsIdempotent(t *testing.T) {
	h := NewHandler("test", nil)
	require.NoError(t, h.Stop())
	h.Start()
	require.NoError(t, h.Stop())
	require.NoError(t, h.Stop())

	// Restart after stop.
	h.Start()
	flush(t, h)
	require.NoError(t, h.Stop())
}

func TestHandlerConcurrentProducers(t *testing.T) {
	var count atomic.Int64
	h := NewHandler("test", func(Message) { count.Add(1) })
	h.Start()
	defer h.Stop()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.Send(Message{What: msgA})
			}
		}()
	}
	wg.Wait()
	flush(t, h)
	assert.Equal(t, int64(800), count.Load())
}

func BenchmarkHandlerSend(b *testing.B) {
	h := NewHandler("bench", func(Message) {})
	h.Start()
	defer h.Stop()
	for b.Loop() {
		h.Send(Message{What: msgA})
	}
}
