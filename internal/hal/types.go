// Package hal defines the vehicle audio HAL boundary: the focus protocol
// vocabulary exchanged with the car and the interfaces the arbiter talks
// through. A Simulator implementation is provided for the daemon and tests.
package hal

import (
	"fmt"

	"caraudio/internal/routing"
)

// FocusStateType is the focus state reported by the vehicle.
type FocusStateType int32

const (
	FocusStateInvalid                FocusStateType = -1
	FocusStateGain                   FocusStateType = 1
	FocusStateGainTransient          FocusStateType = 2
	FocusStateLossTransientCanDuck   FocusStateType = 3
	FocusStateLossTransient          FocusStateType = 4
	FocusStateLoss                   FocusStateType = 5
	FocusStateLossTransientExclusive FocusStateType = 6
)

func (s FocusStateType) String() string {
	switch s {
	case FocusStateGain:
		return "GAIN"
	case FocusStateGainTransient:
		return "GAIN_TRANSIENT"
	case FocusStateLossTransientCanDuck:
		return "LOSS_TRANSIENT_CAN_DUCK"
	case FocusStateLossTransient:
		return "LOSS_TRANSIENT"
	case FocusStateLoss:
		return "LOSS"
	case FocusStateLossTransientExclusive:
		return "LOSS_TRANSIENT_EXCLUSIVE"
	case FocusStateInvalid:
		return "INVALID"
	default:
		return fmt.Sprintf("FocusState(%d)", int32(s))
	}
}

// IsGain reports whether s is GAIN or GAIN_TRANSIENT.
func (s FocusStateType) IsGain() bool {
	return s == FocusStateGain || s == FocusStateGainTransient
}

// FocusRequestType is the request sent to the vehicle.
type FocusRequestType int32

const (
	FocusRequestGain                 FocusRequestType = 1
	FocusRequestGainTransient        FocusRequestType = 2
	FocusRequestGainTransientMayDuck FocusRequestType = 3
	FocusRequestRelease              FocusRequestType = 4
)

func (r FocusRequestType) String() string {
	switch r {
	case FocusRequestGain:
		return "GAIN"
	case FocusRequestGainTransient:
		return "GAIN_TRANSIENT"
	case FocusRequestGainTransientMayDuck:
		return "GAIN_TRANSIENT_MAY_DUCK"
	case FocusRequestRelease:
		return "RELEASE"
	default:
		return fmt.Sprintf("FocusRequest(%d)", int32(r))
	}
}

// IsGain reports whether r asks for streams (any GAIN variant).
func (r FocusRequestType) IsGain() bool {
	return r == FocusRequestGain || r == FocusRequestGainTransient || r == FocusRequestGainTransientMayDuck
}

// ExtFocus flags describe focus held by sources outside the platform.
type ExtFocus uint32

const (
	ExtFocusNone      ExtFocus = 0
	ExtFocusPermanent ExtFocus = 0x1
	ExtFocusTransient ExtFocus = 0x2
	ExtFocusPlayOnly  ExtFocus = 0x4
)

// Has reports whether every bit of flag is set.
func (e ExtFocus) Has(flag ExtFocus) bool {
	return e&flag == flag
}

func (e ExtFocus) String() string {
	return fmt.Sprintf("0x%x", uint32(e))
}

// Audio context flags tell the vehicle what kind of audio is about to play.
const (
	ContextMusic        uint32 = 0x1
	ContextNavigation   uint32 = 0x2
	ContextVoiceCommand uint32 = 0x4
	ContextCall         uint32 = 0x8
	ContextAlarm        uint32 = 0x10
	ContextNotification uint32 = 0x20
	ContextUnknown      uint32 = 0x40
	ContextSafetyAlert  uint32 = 0x80
	ContextCDROM        uint32 = 0x100
	ContextAuxAudio     uint32 = 0x200
	ContextSystemSound  uint32 = 0x400
	ContextRadio        uint32 = 0x800
)

// Stream status values reported through OnStreamStatusChange.
const (
	StreamStateStopped int32 = 0
	StreamStateStarted int32 = 1
)

// CurrentFocus is the state read back from the vehicle at startup.
type CurrentFocus struct {
	State         FocusStateType
	Streams       uint32
	ExternalFocus ExtFocus
}

// ContextForUsage translates a logical usage to its audio context flag.
// The arbiter's own placeholder usages carry no context.
func ContextForUsage(u routing.Usage) (uint32, error) {
	switch u {
	case routing.UsageMusic:
		return ContextMusic, nil
	case routing.UsageRadio:
		return ContextRadio, nil
	case routing.UsageNavigationGuidance:
		return ContextNavigation, nil
	case routing.UsageVoiceCall:
		return ContextCall, nil
	case routing.UsageVoiceCommand:
		return ContextVoiceCommand, nil
	case routing.UsageAlarm:
		return ContextAlarm, nil
	case routing.UsageNotification:
		return ContextNotification, nil
	case routing.UsageSystemSound:
		return ContextSystemSound, nil
	case routing.UsageSystemSafetyAlert:
		return ContextSafetyAlert, nil
	case routing.UsageUnknown:
		return ContextUnknown, nil
	case routing.UsageCarServiceBottom, routing.UsageCarServiceCarProxy:
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: %v has no audio context", routing.ErrUnknownUsage, u)
	}
}
