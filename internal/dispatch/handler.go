// SPDX-License-Identifier: MIT
/*
Package dispatch runs messages one at a time, in order, on a single owner
goroutine. Any goroutine may enqueue; enqueueing never blocks.

A Handler supports:

  - Send: append a message to the queue.
  - SendUnique: append only if no message of the same kind is already queued.
  - SendDelayed: append after a delay. Delayed messages are released in
    due order, and messages due at the same instant keep their send order.
    Remove and RemoveAll cancel them.
  - Post: run a closure on the owner goroutine.

Messages queued when Stop is called are discarded.
*/
package dispatch

import (
	"slices"
	"sync"
	"time"

	applog "caraudio/internal/log"
)

// Message is a unit of work. Callback, when set, runs instead of the
// handler function.
type Message struct {
	What     int
	Arg1     int
	Arg2     int
	Obj      any
	Callback func()
}

// whatCallback marks closures queued with Post.
const whatCallback = -1

// HandleFunc processes messages on the owner goroutine.
type HandleFunc func(Message)

type delayed struct {
	seq uint64
	due time.Time
	msg Message
}

// Handler is a single-consumer, multi-producer message queue.
type Handler struct {
	name   string
	handle HandleFunc

	mu      sync.Mutex
	queue   []Message
	pending []delayed // sorted by due, then seq
	timer   *time.Timer
	nextSeq uint64
	running bool

	wake     chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHandler creates a Handler. fn may be nil when only Post is used.
func NewHandler(name string, fn HandleFunc) *Handler {
	return &Handler{
		name:   name,
		handle: fn,
		wake:   make(chan struct{}, 1),
	}
}

// Start launches the owner goroutine. Calling Start on a running handler
// is a no-op.
func (h *Handler) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		applog.Warnf("dispatch[%s]: Start called but already running", h.name)
		return
	}
	h.running = true
	h.doneChan = make(chan struct{})
	h.stopOnce = sync.Once{}
	done := h.doneChan
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		applog.Debugf("dispatch[%s]: loop started", h.name)
		for {
			select {
			case <-h.wake:
				h.drain(done)
			case <-done:
				applog.Debugf("dispatch[%s]: loop stopped", h.name)
				return
			}
		}
	}()

	// Messages sent before Start are waiting.
	h.signal()
}

// Stop terminates the owner goroutine after the message in progress and
// discards everything still queued. It must not be called from a handler.
func (h *Handler) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return nil
	}
	h.stopOnce.Do(func() {
		close(h.doneChan)
		h.running = false
		h.queue = nil
		h.pending = nil
		h.armLocked()
	})
	h.mu.Unlock()

	h.wg.Wait()
	return nil
}

func (h *Handler) drain(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		h.mu.Lock()
		if len(h.queue) == 0 {
			h.mu.Unlock()
			return
		}
		msg := h.queue[0]
		h.queue[0] = Message{}
		h.queue = h.queue[1:]
		h.mu.Unlock()

		h.run(msg)
	}
}

func (h *Handler) run(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			applog.Errorf("dispatch[%s]: message %d panicked: %v", h.name, msg.What, r)
		}
	}()
	switch {
	case msg.Callback != nil:
		msg.Callback()
	case h.handle != nil:
		h.handle(msg)
	default:
		applog.Warnf("dispatch[%s]: no handler for message %d", h.name, msg.What)
	}
}

func (h *Handler) signal() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Send appends msg to the queue.
func (h *Handler) Send(msg Message) {
	h.mu.Lock()
	h.queue = append(h.queue, msg)
	h.mu.Unlock()
	h.signal()
}

// SendUnique appends a message of kind what unless one is already queued.
// It reports whether a message was added.
func (h *Handler) SendUnique(what int) bool {
	h.mu.Lock()
	for _, m := range h.queue {
		if m.What == what && m.Callback == nil {
			h.mu.Unlock()
			return false
		}
	}
	h.queue = append(h.queue, Message{What: what})
	h.mu.Unlock()
	h.signal()
	return true
}

// Post runs fn on the owner goroutine.
func (h *Handler) Post(fn func()) {
	h.Send(Message{What: whatCallback, Callback: fn})
}

// PostDelayed runs fn on the owner goroutine once d has elapsed.
func (h *Handler) PostDelayed(fn func(), d time.Duration) {
	h.SendDelayed(Message{What: whatCallback, Callback: fn}, d)
}

// SendDelayed appends msg once d has elapsed.
func (h *Handler) SendDelayed(msg Message, d time.Duration) {
	if d <= 0 {
		h.Send(msg)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	entry := delayed{seq: h.nextSeq, due: time.Now().Add(d), msg: msg}
	// After every entry due at or before this one.
	i, _ := slices.BinarySearchFunc(h.pending, entry, func(e, t delayed) int {
		if e.due.After(t.due) {
			return 1
		}
		return -1
	})
	h.pending = slices.Insert(h.pending, i, entry)
	if i == 0 {
		h.armLocked()
	}
}

// armLocked points the single delay timer at the earliest pending entry.
func (h *Handler) armLocked() {
	if len(h.pending) == 0 {
		if h.timer != nil {
			h.timer.Stop()
		}
		return
	}
	wait := time.Until(h.pending[0].due)
	if h.timer == nil {
		h.timer = time.AfterFunc(wait, h.releaseDue)
		return
	}
	h.timer.Reset(wait)
}

// releaseDue moves every entry that has come due onto the queue.
func (h *Handler) releaseDue() {
	h.mu.Lock()
	now := time.Now()
	n := 0
	for n < len(h.pending) && !h.pending[n].due.After(now) {
		h.queue = append(h.queue, h.pending[n].msg)
		n++
	}
	h.pending = slices.Delete(h.pending, 0, n)
	h.armLocked()
	h.mu.Unlock()
	if n > 0 {
		h.signal()
	}
}

// Remove drops every queued or delayed message of kind what.
func (h *Handler) Remove(what int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.queue[:0]
	for _, m := range h.queue {
		if m.What != what {
			kept = append(kept, m)
		}
	}
	clear(h.queue[len(kept):])
	h.queue = kept

	h.pending = slices.DeleteFunc(h.pending, func(d delayed) bool {
		return d.msg.What == what
	})
	h.armLocked()
}

// RemoveAll drops every queued and delayed message.
func (h *Handler) RemoveAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.queue)
	h.queue = h.queue[:0]
	h.pending = nil
	h.armLocked()
}

// Has reports whether a message of kind what is queued or delayed.
func (h *Handler) Has(what int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.queue {
		if m.What == what {
			return true
		}
	}
	for _, d := range h.pending {
		if d.msg.What == what {
			return true
		}
	}
	return false
}

// Len returns the number of queued (not delayed) messages.
func (h *Handler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queue)
}
