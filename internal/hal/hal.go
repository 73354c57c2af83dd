package hal

import "caraudio/internal/routing"

// VehicleAudio is the command side of the vehicle audio HAL.
//
// Implementations must deliver Listener callbacks asynchronously, never on
// the goroutine that called RequestFocusChange. The arbiter holds its lock
// across the call.
type VehicleAudio interface {
	RequestFocusChange(req FocusRequestType, streams uint32, ext ExtFocus, contexts uint32)
	IsFocusSupported() bool
	IsRadioExternal() bool
	CurrentFocusState() CurrentFocus
	HwVariant() int
	SetListener(Listener)
	SetRoutingPolicy(*routing.Policy)
}

// Listener receives vehicle events.
type Listener interface {
	OnFocusChange(state FocusStateType, streams uint32, ext ExtFocus)
	OnVolumeChange(stream int, volume int32, volumeState int32)
	OnVolumeLimitChange(stream int, limit int32)
	OnStreamStatusChange(stream int, state int32)
}
