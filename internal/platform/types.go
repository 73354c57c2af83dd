// Package platform models the platform audio-focus service: focus gain and
// loss types, the focus info handed to audio policies, and the interfaces
// the arbiter uses to request and abandon focus.
package platform

import (
	"fmt"

	"caraudio/internal/routing"
)

// FocusChange is a focus gain (positive) or loss (negative) value.
type FocusChange int32

const (
	FocusNone                   FocusChange = 0
	FocusGain                   FocusChange = 1
	FocusGainTransient          FocusChange = 2
	FocusGainTransientMayDuck   FocusChange = 3
	FocusGainTransientExclusive FocusChange = 4
	FocusLoss                   FocusChange = -1
	FocusLossTransient          FocusChange = -2
	FocusLossTransientCanDuck   FocusChange = -3
)

func (c FocusChange) String() string {
	switch c {
	case FocusNone:
		return "NONE"
	case FocusGain:
		return "GAIN"
	case FocusGainTransient:
		return "GAIN_TRANSIENT"
	case FocusGainTransientMayDuck:
		return "GAIN_TRANSIENT_MAY_DUCK"
	case FocusGainTransientExclusive:
		return "GAIN_TRANSIENT_EXCLUSIVE"
	case FocusLoss:
		return "LOSS"
	case FocusLossTransient:
		return "LOSS_TRANSIENT"
	case FocusLossTransientCanDuck:
		return "LOSS_TRANSIENT_CAN_DUCK"
	default:
		return fmt.Sprintf("FocusChange(%d)", int32(c))
	}
}

// LossFor returns the loss the previous holder receives when gain is granted
// to someone else.
func LossFor(gain FocusChange) FocusChange {
	switch gain {
	case FocusGain:
		return FocusLoss
	case FocusGainTransient, FocusGainTransientExclusive:
		return FocusLossTransient
	case FocusGainTransientMayDuck:
		return FocusLossTransientCanDuck
	default:
		return FocusNone
	}
}

// RequestResult is the synchronous outcome of a focus request.
type RequestResult int

const (
	RequestFailed  RequestResult = 0
	RequestGranted RequestResult = 1
	RequestDelayed RequestResult = 2
)

func (r RequestResult) String() string {
	switch r {
	case RequestFailed:
		return "FAILED"
	case RequestGranted:
		return "GRANTED"
	case RequestDelayed:
		return "DELAYED"
	default:
		return fmt.Sprintf("RequestResult(%d)", int(r))
	}
}

// Focus request flags.
const (
	FlagDelayOK = 0x1
	FlagLock    = 0x4
)

// Attributes describe what the audio is for.
type Attributes struct {
	Usage       routing.Usage
	ContentType int
}

// Same reports whether a and b carry the same usage and content type.
// Two nil attributes are the same.
func (a *Attributes) Same(b *Attributes) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Usage == b.Usage && a.ContentType == b.ContentType
}

func (a *Attributes) String() string {
	if a == nil {
		return "<nil>"
	}
	return fmt.Sprintf("usage=%v content=%d", a.Usage, a.ContentType)
}

// FocusInfo describes one focus holder as seen by an audio policy.
type FocusInfo struct {
	ClientID    string
	PackageName string
	Attributes  *Attributes
	Gain        FocusChange
	Loss        FocusChange
	Flags       int
}

func (f *FocusInfo) String() string {
	if f == nil {
		return "<none>"
	}
	return fmt.Sprintf("package:%s client:%s gain:%v loss:%v flags:%d attrs:{%v}",
		f.PackageName, f.ClientID, f.Gain, f.Loss, f.Flags, f.Attributes)
}

// Usage returns the attribute usage, or UsageUnknown when there are no
// attributes.
func (f *FocusInfo) Usage() routing.Usage {
	if f == nil || f.Attributes == nil {
		return routing.UsageUnknown
	}
	return f.Attributes.Usage
}
