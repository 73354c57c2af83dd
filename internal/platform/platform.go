package platform

// FocusListener is notified when its own focus changes.
type FocusListener interface {
	OnAudioFocusChange(change FocusChange)
}

// PolicyListener observes every grant and loss on the focus stack.
type PolicyListener interface {
	OnAudioFocusGrant(info *FocusInfo, result RequestResult)
	OnAudioFocusLoss(info *FocusInfo, wasNotified bool)
}

// AudioFocus is the platform focus service as seen by one package.
//
// Implementations must deliver listener callbacks asynchronously, never on
// the goroutine that made the request.
type AudioFocus interface {
	RequestFocus(l FocusListener, attrs *Attributes, gain FocusChange, flags int, withPolicy bool) RequestResult
	AbandonFocus(l FocusListener) RequestResult
	RegisterPolicy(p PolicyListener) error
	UnregisterPolicy(p PolicyListener)
}
