package hal

import (
	"sync"
	"time"

	"caraudio/internal/dispatch"
	applog "caraudio/internal/log"
	"caraudio/internal/routing"
)

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	FocusSupported   bool
	RadioExternal    bool
	HwVariant        int
	Latency          time.Duration // delay before each callback
	AvailableStreams uint32        // streams the vehicle will grant
	DropResponses    bool          // never answer focus requests
}

// Request is a focus request as received by the Simulator.
type Request struct {
	Request       FocusRequestType
	Streams       uint32
	ExternalFocus ExtFocus
	Contexts      uint32
	At            time.Time
}

// Simulator is an in-process vehicle that answers focus requests after a
// configurable latency. Callbacks are delivered in order on its own
// goroutine.
type Simulator struct {
	handler *dispatch.Handler

	mu       sync.Mutex
	cfg      SimulatorConfig
	listener Listener
	policy   *routing.Policy
	state    CurrentFocus
	extHeld  ExtFocus // focus held by a car-side source
	requests []Request
	volumes  map[int]int32
}

// NewSimulator creates a Simulator in LOSS. Call Start before use.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	return &Simulator{
		handler: dispatch.NewHandler("hal-sim", nil),
		cfg:     cfg,
		state:   CurrentFocus{State: FocusStateLoss},
		volumes: make(map[int]int32),
	}
}

// Start begins callback delivery.
func (s *Simulator) Start() {
	s.handler.Start()
}

// Close stops callback delivery. Undelivered callbacks are dropped.
func (s *Simulator) Close() error {
	return s.handler.Stop()
}

var _ VehicleAudio = (*Simulator)(nil)

// RequestFocusChange records the request and schedules the vehicle's answer.
func (s *Simulator) RequestFocusChange(req FocusRequestType, streams uint32, ext ExtFocus, contexts uint32) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Request:       req,
		Streams:       streams,
		ExternalFocus: ext,
		Contexts:      contexts,
		At:            time.Now(),
	})
	applog.Debugf("hal-sim: request %v streams:0x%x ext:%v contexts:0x%x", req, streams, ext, contexts)
	if s.cfg.DropResponses {
		s.mu.Unlock()
		applog.Debugf("hal-sim: dropping response")
		return
	}
	s.state = s.answerLocked(req, streams, ext)
	reply := s.state
	s.emitLocked(func(l Listener) {
		l.OnFocusChange(reply.State, reply.Streams, reply.ExternalFocus)
	})
	s.mu.Unlock()
}

func (s *Simulator) answerLocked(req FocusRequestType, streams uint32, ext ExtFocus) CurrentFocus {
	granted := streams & s.cfg.AvailableStreams
	var outExt ExtFocus
	if ext.Has(ExtFocusPlayOnly) && s.cfg.RadioExternal {
		outExt |= ExtFocusPlayOnly
	}

	switch req {
	case FocusRequestGain:
		return CurrentFocus{State: FocusStateGain, Streams: granted, ExternalFocus: outExt}
	case FocusRequestGainTransient:
		return CurrentFocus{State: FocusStateGainTransient, Streams: granted, ExternalFocus: outExt}
	case FocusRequestGainTransientMayDuck:
		state := FocusStateGainTransient
		if s.state.State.IsGain() {
			state = s.state.State
		}
		return CurrentFocus{State: state, Streams: granted, ExternalFocus: outExt}
	default:
		return CurrentFocus{State: FocusStateLoss, ExternalFocus: s.extHeld &^ ExtFocusPlayOnly}
	}
}

// InjectExternalFocus reports a car-initiated focus change, as when a
// vehicle source takes or hands back the streams.
func (s *Simulator) InjectExternalFocus(state FocusStateType, ext ExtFocus) {
	s.mu.Lock()
	s.extHeld = ext
	streams := s.state.Streams
	if !state.IsGain() {
		streams = 0
	}
	s.state = CurrentFocus{State: state, Streams: streams, ExternalFocus: ext}
	reply := s.state
	s.emitLocked(func(l Listener) {
		l.OnFocusChange(reply.State, reply.Streams, reply.ExternalFocus)
	})
	s.mu.Unlock()

	applog.Infof("hal-sim: external focus %v ext:%v", state, ext)
}

// SetVolume reports a volume change on stream.
func (s *Simulator) SetVolume(stream int, volume int32) {
	s.mu.Lock()
	s.volumes[stream] = volume
	s.emitLocked(func(l Listener) { l.OnVolumeChange(stream, volume, 0) })
	s.mu.Unlock()
}

// SetVolumeLimit reports a volume limit change on stream.
func (s *Simulator) SetVolumeLimit(stream int, limit int32) {
	s.emit(func(l Listener) { l.OnVolumeLimitChange(stream, limit) })
}

// SetStreamStatus reports a stream starting or stopping.
func (s *Simulator) SetStreamStatus(stream int, state int32) {
	s.emit(func(l Listener) { l.OnStreamStatusChange(stream, state) })
}

// SetDropResponses toggles answering focus requests.
func (s *Simulator) SetDropResponses(drop bool) {
	s.mu.Lock()
	s.cfg.DropResponses = drop
	s.mu.Unlock()
}

// SetAvailableStreams changes which streams the vehicle will grant.
func (s *Simulator) SetAvailableStreams(mask uint32) {
	s.mu.Lock()
	s.cfg.AvailableStreams = mask
	s.mu.Unlock()
}

func (s *Simulator) emit(fn func(Listener)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(fn)
}

// emitLocked schedules fn while s.mu is held, so callbacks leave in the
// same order as the state changes they report.
func (s *Simulator) emitLocked(fn func(Listener)) {
	l := s.listener
	if l == nil {
		return
	}
	s.handler.PostDelayed(func() { fn(l) }, s.cfg.Latency)
}

func (s *Simulator) IsFocusSupported() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.FocusSupported
}

func (s *Simulator) IsRadioExternal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.RadioExternal
}

func (s *Simulator) CurrentFocusState() CurrentFocus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Simulator) HwVariant() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.HwVariant
}

func (s *Simulator) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

func (s *Simulator) SetRoutingPolicy(p *routing.Policy) {
	s.mu.Lock()
	s.policy = p
	s.mu.Unlock()
	applog.Infof("hal-sim: routing policy %s", p)
}

// RoutingPolicy returns the policy last set by the arbiter.
func (s *Simulator) RoutingPolicy() *routing.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

// Requests returns a copy of every request received so far.
func (s *Simulator) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Volume returns the last volume set on stream.
func (s *Simulator) Volume(stream int) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volumes[stream]
}
