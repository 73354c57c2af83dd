package audio

import (
	"maps"
	"slices"

	"caraudio/internal/dispatch"
	"caraudio/internal/hal"
	applog "caraudio/internal/log"
)

// StreamStatus is what the vehicle last told us about one physical stream.
type StreamStatus struct {
	Stream      int   `json:"stream"`
	Volume      int32 `json:"volume"`
	VolumeState int32 `json:"volume_state"`
	Limit       int32 `json:"limit"`
	HasLimit    bool  `json:"has_limit"`
	Active      bool  `json:"active"`
}

func (a *FocusArbiter) OnVolumeChange(stream int, volume int32, volumeState int32) {
	a.handler.Send(dispatch.Message{What: msgVolumeChange, Arg1: stream, Obj: [2]int32{volume, volumeState}})
}

func (a *FocusArbiter) OnVolumeLimitChange(stream int, limit int32) {
	a.handler.Send(dispatch.Message{What: msgVolumeLimitChange, Arg1: stream, Obj: limit})
}

func (a *FocusArbiter) OnStreamStatusChange(stream int, state int32) {
	a.handler.Send(dispatch.Message{What: msgStreamStatusChange, Arg1: stream, Arg2: int(state)})
}

func (a *FocusArbiter) handleVolumeChange(stream int, volume, volumeState int32) {
	a.mu.Lock()
	st := a.streamLocked(stream)
	st.Volume = volume
	st.VolumeState = volumeState
	a.mu.Unlock()

	applog.Debugf("volume change stream:%d volume:%d state:%d", stream, volume, volumeState)
	a.metrics.VolumeEvents.Inc()
	a.notifyObservers()
}

func (a *FocusArbiter) handleVolumeLimitChange(stream int, limit int32) {
	a.mu.Lock()
	st := a.streamLocked(stream)
	st.Limit = limit
	st.HasLimit = true
	a.mu.Unlock()

	applog.Debugf("volume limit change stream:%d limit:%d", stream, limit)
	a.metrics.VolumeEvents.Inc()
	a.notifyObservers()
}

func (a *FocusArbiter) handleStreamStatusChange(stream int, state int32) {
	a.mu.Lock()
	a.streamLocked(stream).Active = state == hal.StreamStateStarted
	a.mu.Unlock()

	applog.Debugf("stream status change stream:%d state:%d", stream, state)
	a.metrics.StreamStatusEvents.Inc()
	a.notifyObservers()
}

func (a *FocusArbiter) streamLocked(stream int) *StreamStatus {
	st, ok := a.streams[stream]
	if !ok {
		st = &StreamStatus{Stream: stream}
		a.streams[stream] = st
	}
	return st
}

func (a *FocusArbiter) streamStatusLocked() []StreamStatus {
	if len(a.streams) == 0 {
		return nil
	}
	keys := slices.Sorted(maps.Keys(a.streams))
	out := make([]StreamStatus, len(keys))
	for i, k := range keys {
		out[i] = *a.streams[k]
	}
	return out
}
