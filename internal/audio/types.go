// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"

	"caraudio/internal/hal"
)

// FocusState is a focus state confirmed by the vehicle. Values are compared
// with ==.
type FocusState struct {
	State         hal.FocusStateType
	Streams       uint32
	ExternalFocus hal.ExtFocus
}

// StateLoss is the state with no streams and no external focus.
var StateLoss = FocusState{State: hal.FocusStateLoss}

// NewFocusState builds the state reported by a vehicle callback.
func NewFocusState(state hal.FocusStateType, streams uint32, ext hal.ExtFocus) FocusState {
	return FocusState{State: state, Streams: streams, ExternalFocus: ext}
}

func (s FocusState) String() string {
	return fmt.Sprintf("FocusState, state:%v streams:0x%x externalFocus:%v", s.State, s.Streams, s.ExternalFocus)
}

// FocusRequest is a request sent to the vehicle.
type FocusRequest struct {
	Request       hal.FocusRequestType
	Streams       uint32
	ExternalFocus hal.ExtFocus
}

// RequestRelease is the only RELEASE request value.
var RequestRelease = FocusRequest{Request: hal.FocusRequestRelease}

// NewFocusRequest builds a request. RELEASE always yields RequestRelease.
func NewFocusRequest(req hal.FocusRequestType, streams uint32, ext hal.ExtFocus) FocusRequest {
	if req == hal.FocusRequestRelease {
		return RequestRelease
	}
	return FocusRequest{Request: req, Streams: streams, ExternalFocus: ext}
}

func (r FocusRequest) String() string {
	return fmt.Sprintf("FocusRequest, request:%v streams:0x%x externalFocus:%v", r.Request, r.Streams, r.ExternalFocus)
}

// RadioDuckPolicy decides what happens when a ducking holder plays on the
// physical stream an external radio is using.
type RadioDuckPolicy int

const (
	// RadioDuckStopOnSharedStream stops the radio and gives the stream to
	// the ducking holder.
	RadioDuckStopOnSharedStream RadioDuckPolicy = iota
	// RadioDuckMix keeps the radio in PLAY_ONLY and leaves its stream out
	// of the ducking holder's request.
	RadioDuckMix
)

func (p RadioDuckPolicy) String() string {
	switch p {
	case RadioDuckStopOnSharedStream:
		return "stop"
	case RadioDuckMix:
		return "mix"
	default:
		return fmt.Sprintf("RadioDuckPolicy(%d)", int(p))
	}
}

// ParseRadioDuckPolicy accepts "stop" or "mix".
func ParseRadioDuckPolicy(s string) (RadioDuckPolicy, error) {
	switch s {
	case "", "stop":
		return RadioDuckStopOnSharedStream, nil
	case "mix":
		return RadioDuckMix, nil
	default:
		return 0, fmt.Errorf("unknown radio duck policy %q (want stop or mix)", s)
	}
}
