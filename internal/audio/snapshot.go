package audio

import (
	"time"

	"caraudio/internal/hal"
	"caraudio/internal/platform"
)

// Snapshot is a copy of the arbiter state at one point in time.
type Snapshot struct {
	Time          time.Time            `json:"time"`
	State         hal.FocusStateType   `json:"state"`
	StateName     string               `json:"state_name"`
	Streams       uint32               `json:"streams"`
	ExternalFocus hal.ExtFocus         `json:"external_focus"`
	Contexts      uint32               `json:"contexts"`
	RadioActive   bool                 `json:"radio_active"`
	CallActive    bool                 `json:"call_active"`
	LastRequest   *FocusRequest        `json:"last_request,omitempty"`
	Top           *platform.FocusInfo  `json:"top,omitempty"`
	BottomFocus   platform.FocusChange `json:"bottom_focus"`
	StreamStatus  []StreamStatus       `json:"stream_status,omitempty"`
	Latency       LatencySummary       `json:"latency"`
}

// FocusState returns the vehicle state part of the snapshot.
func (s Snapshot) FocusState() FocusState {
	return FocusState{State: s.State, Streams: s.Streams, ExternalFocus: s.ExternalFocus}
}

// FocusObserver receives a snapshot after every confirmed vehicle state
// change and every volume or stream event.
type FocusObserver interface {
	OnFocusSnapshot(Snapshot)
}

// ObserverFunc adapts a function to FocusObserver.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnFocusSnapshot(s Snapshot) { f(s) }
