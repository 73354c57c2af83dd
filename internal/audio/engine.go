// SPDX-License-Identifier: MIT
/*
Package audio implements the car audio-focus arbiter. It keeps the vehicle's
physical streams allocated to whoever holds platform audio focus:
- Platform grants are coalesced; only the newest top holder matters
- At most one focus request to the vehicle is outstanding at a time
- The vehicle's last confirmed state always wins over local expectations

Thread Safety:
- Every state transition runs on one dispatch goroutine
- mu guards the fields the vehicle callback goroutine also touches
- The only blocking point is the bounded wait for a vehicle response
*/
package audio

import (
	"fmt"
	"sync"
	"time"

	"caraudio/internal/dispatch"
	"caraudio/internal/hal"
	applog "caraudio/internal/log"
	"caraudio/internal/monitoring"
	"caraudio/internal/platform"
	"caraudio/internal/routing"
	"caraudio/pkg/bitint"
)

// Dispatch message kinds.
const (
	msgCarFocusChange = iota
	msgStreamStatusChange
	msgAndroidFocusChange
	msgFocusRelease
	msgVolumeChange
	msgVolumeLimitChange
)

const (
	DefaultPackageName     = "caraudio"
	DefaultResponseTimeout = time.Second
	// DefaultReleaseDelay absorbs repeated acquire and release.
	DefaultReleaseDelay = 500 * time.Millisecond
)

// Options configures a FocusArbiter. Zero values take the defaults.
type Options struct {
	PackageName     string
	ResponseTimeout time.Duration
	ReleaseDelay    time.Duration
	Routing         routing.Table
	RadioDuckPolicy RadioDuckPolicy
	Observer        FocusObserver
	Metrics         *monitoring.Metrics
}

func (o Options) withDefaults() Options {
	if o.PackageName == "" {
		o.PackageName = DefaultPackageName
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = DefaultResponseTimeout
	}
	if o.ReleaseDelay <= 0 {
		o.ReleaseDelay = DefaultReleaseDelay
	}
	if o.Metrics == nil {
		o.Metrics = monitoring.NewMetrics()
	}
	return o
}

type FocusArbiter struct {
	// Collaborators.
	vehicle hal.VehicleAudio
	focus   platform.AudioFocus
	opts    Options
	metrics *monitoring.Metrics
	handler *dispatch.Handler

	// Our own platform focus holders.
	system     *systemFocusListener
	bottom     *sentinelListener
	proxy      *sentinelListener
	attrBottom *platform.Attributes
	attrProxy  *platform.Attributes

	pending *pendingGrants
	latency *latencyStats

	mu          sync.Mutex
	policy      *routing.Policy
	current     FocusState
	received    *FocusState // reported by the vehicle, not handled yet
	responded   chan struct{}
	generation  uint64 // bumped on every vehicle focus callback
	epoch       uint64 // bumped on Release
	lastRequest *FocusRequest
	sentAt      time.Time
	top         *platform.FocusInfo
	second      *platform.FocusInfo // previous top while top may duck
	radioActive bool
	callActive  bool
	contexts    uint32
	streams     map[int]*StreamStatus

	obsMu     sync.Mutex
	observers []FocusObserver
}

var _ hal.Listener = (*FocusArbiter)(nil)

// NewFocusArbiter wires an arbiter to the vehicle and the platform focus
// service. Nothing happens until Init.
func NewFocusArbiter(vehicle hal.VehicleAudio, focus platform.AudioFocus, opts Options) *FocusArbiter {
	opts = opts.withDefaults()
	a := &FocusArbiter{
		vehicle:    vehicle,
		focus:      focus,
		opts:       opts,
		metrics:    opts.Metrics,
		bottom:     newSentinelListener(routing.UsageCarServiceBottom),
		proxy:      newSentinelListener(routing.UsageCarServiceCarProxy),
		attrBottom: &platform.Attributes{Usage: routing.UsageCarServiceBottom},
		attrProxy:  &platform.Attributes{Usage: routing.UsageCarServiceCarProxy},
		pending:    &pendingGrants{},
		latency:    newLatencyStats(),
		current:    StateLoss,
		responded:  make(chan struct{}),
		streams:    make(map[int]*StreamStatus),
	}
	a.handler = dispatch.NewHandler("car-audio-focus", a.handleMessage)
	a.system = &systemFocusListener{
		pending: a.pending,
		wake:    func() { a.handler.SendUnique(msgAndroidFocusChange) },
		metrics: a.metrics,
	}
	if opts.Observer != nil {
		a.observers = append(a.observers, opts.Observer)
	}
	return a
}

// AddObserver registers o for snapshots.
func (a *FocusArbiter) AddObserver(o FocusObserver) {
	a.obsMu.Lock()
	a.observers = append(a.observers, o)
	a.obsMu.Unlock()
}

// Init resolves the routing policy for the vehicle's hardware variant,
// takes the bottom focus slot and starts processing events.
func (a *FocusArbiter) Init() error {
	variant := a.vehicle.HwVariant()
	policy, err := a.opts.Routing.Resolve(variant)
	if err != nil {
		return fmt.Errorf("failed to resolve routing policy: %w", err)
	}
	a.mu.Lock()
	a.policy = policy
	a.mu.Unlock()

	if a.vehicle.IsFocusSupported() {
		cur := a.vehicle.CurrentFocusState()
		r := a.focus.RequestFocus(a.bottom, a.attrBottom, platform.FocusGain, platform.FlagDelayOK, false)
		if r == platform.RequestGranted {
			a.bottom.set(platform.FocusGain)
		} else {
			a.bottom.set(platform.FocusLossTransient)
		}

		a.mu.Lock()
		a.current = NewFocusState(cur.State, cur.Streams, cur.ExternalFocus)
		a.contexts = 0
		a.updateGaugesLocked()
		a.mu.Unlock()

		if err := a.focus.RegisterPolicy(a.system); err != nil {
			return fmt.Errorf("failed to register audio policy: %w", err)
		}
	} else {
		applog.Infof("vehicle does not support audio focus")
	}

	a.vehicle.SetListener(a)
	a.vehicle.SetRoutingPolicy(policy)
	a.handler.Start()

	applog.Infof("focus arbiter started, hw variant:%d policy:%s radio duck:%v", variant, policy, a.opts.RadioDuckPolicy)
	return nil
}

// Release drops our platform focus holders, cancels all queued work and
// resets to LOSS. A response wait in flight is abandoned.
func (a *FocusArbiter) Release() {
	a.focus.UnregisterPolicy(a.system)
	a.focus.AbandonFocus(a.bottom)
	a.focus.AbandonFocus(a.proxy)
	a.handler.RemoveAll()
	a.pending.reset()

	a.mu.Lock()
	a.epoch++
	a.current = StateLoss
	a.received = nil
	a.lastRequest = nil
	a.top = nil
	a.second = nil
	a.radioActive = false
	a.callActive = false
	a.contexts = 0
	a.wakeLocked()
	a.updateGaugesLocked()
	a.mu.Unlock()

	applog.Infof("focus arbiter released")
}

// Close releases the arbiter and stops its dispatch goroutine.
func (a *FocusArbiter) Close() error {
	a.Release()
	return a.handler.Stop()
}

// Policy returns the routing policy in use, or nil before Init.
func (a *FocusArbiter) Policy() *routing.Policy {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.policy
}

// Current returns the last state confirmed by the vehicle.
func (a *FocusArbiter) Current() FocusState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Contexts returns the audio contexts last sent to the vehicle.
func (a *FocusArbiter) Contexts() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.contexts
}

// OnFocusChange is called by the vehicle. It wakes a pending response wait
// and queues the change.
func (a *FocusArbiter) OnFocusChange(state hal.FocusStateType, streams uint32, ext hal.ExtFocus) {
	received := NewFocusState(state, streams, ext)
	a.mu.Lock()
	a.received = &received
	a.generation++
	a.wakeLocked()
	a.mu.Unlock()

	a.metrics.FocusResponses.WithLabelValues(state.String()).Inc()
	a.handler.SendUnique(msgCarFocusChange)
}

// wakeLocked releases every goroutine blocked on the current responded
// channel.
func (a *FocusArbiter) wakeLocked() {
	close(a.responded)
	a.responded = make(chan struct{})
}

func (a *FocusArbiter) handleMessage(msg dispatch.Message) {
	switch msg.What {
	case msgCarFocusChange:
		a.handleCarFocusChange()
	case msgStreamStatusChange:
		a.handleStreamStatusChange(msg.Arg1, int32(msg.Arg2))
	case msgAndroidFocusChange:
		a.handleAndroidFocusChange()
	case msgFocusRelease:
		a.handleFocusRelease()
	case msgVolumeChange:
		v, _ := msg.Obj.([2]int32)
		a.handleVolumeChange(msg.Arg1, v[0], v[1])
	case msgVolumeLimitChange:
		limit, _ := msg.Obj.(int32)
		a.handleVolumeLimitChange(msg.Arg1, limit)
	default:
		applog.Warnf("unknown focus message %d", msg.What)
	}
}

func (a *FocusArbiter) handleCarFocusChange() {
	a.mu.Lock()
	if a.received == nil {
		// Already handled.
		a.mu.Unlock()
		return
	}
	received := *a.received
	a.received = nil
	if received == a.current {
		a.lastRequest = nil
		a.mu.Unlock()
		return
	}
	applog.Debugf("focus change from car:%v", received)

	top := a.top
	newState := received.State
	a.current = received
	if last := a.lastRequest; last != nil && last.Request.IsGain() && !bitint.HasAll(received.Streams, last.Streams) {
		applog.Warnf("streams mismatch, requested:0x%x got:0x%x", last.Streams, received.Streams)
		a.metrics.StreamMismatch.Inc()
		// The requested streams are not there.
		newState = hal.FocusStateLoss
	}
	a.lastRequest = nil
	if a.radioActive && !received.ExternalFocus.Has(hal.ExtFocusPlayOnly) {
		applog.Infof("radio play-only dropped by car")
		newState = hal.FocusStateLoss
		a.radioActive = false
	}
	a.updateGaugesLocked()
	a.mu.Unlock()

	a.notifyObservers()

	switch newState {
	case hal.FocusStateGain:
		a.handleFocusGainFromCar(received, top)
	case hal.FocusStateGainTransient:
		a.handleFocusGainTransientFromCar(received, top)
	case hal.FocusStateLoss:
		a.handleFocusLossFromCar(received, top)
	case hal.FocusStateLossTransient:
		a.requestProxyFocus(platform.FocusGainTransient, 0)
	case hal.FocusStateLossTransientCanDuck:
		a.requestProxyFocus(platform.FocusGainTransientMayDuck, 0)
	case hal.FocusStateLossTransientExclusive:
		a.requestProxyFocus(platform.FocusGainTransient, platform.FlagLock)
	}
}

func (a *FocusArbiter) handleFocusGainFromCar(state FocusState, top *platform.FocusInfo) {
	if a.isBottom(top) {
		applog.Warnf("focus gain from car:%v while bottom listener is top", state)
		a.scheduleRelease()
		return
	}
	a.focus.AbandonFocus(a.proxy)
}

func (a *FocusArbiter) handleFocusGainTransientFromCar(state FocusState, top *platform.FocusInfo) {
	if state.ExternalFocus&(hal.ExtFocusPermanent|hal.ExtFocusTransient) == 0 {
		a.focus.AbandonFocus(a.proxy)
		return
	}
	if a.isSentinel(top) {
		applog.Warnf("focus gain transient from car:%v while bottom listener or car proxy is top", state)
		a.scheduleRelease()
	}
}

func (a *FocusArbiter) handleFocusLossFromCar(state FocusState, top *platform.FocusInfo) {
	applog.Debugf("focus loss from car current:%v top:%v", state, top)
	requestProxy := state.ExternalFocus&hal.ExtFocusPermanent != 0
	if a.isProxy(top) {
		if state.ExternalFocus&(hal.ExtFocusPermanent|hal.ExtFocusTransient) == 0 {
			// Car proxy on top without external focus: let another app
			// pick up focus.
			a.focus.AbandonFocus(a.proxy)
			return
		}
	} else if !a.isBottom(top) {
		requestProxy = true
	}
	if requestProxy {
		a.requestProxyFocus(platform.FocusGain, 0)
	}
}

// handleAndroidFocusChange acts on the newest platform grant.
func (a *FocusArbiter) handleAndroidFocusChange() {
	newTop, ok := a.pending.drain()
	if !ok {
		applog.Debugf("android focus change already handled")
		return
	}

	a.mu.Lock()
	epoch := a.epoch
	if top := a.top; top != nil && newTop.ClientID == top.ClientID &&
		newTop.Gain == top.Gain && newTop.Attributes.Same(top.Attributes) {
		a.mu.Unlock()
		applog.Debugf("no change in top focus holder:%v", top)
		return
	}
	applog.Debugf("top focus changed to:%v", newTop)
	if newTop.Gain == platform.FocusGainTransientMayDuck {
		a.second = a.top
	} else {
		a.second = nil
	}
	a.top = newTop

	sent, responded := a.reevaluateLocked()
	if a.epoch != epoch {
		a.mu.Unlock()
		applog.Debugf("released while waiting for car")
		return
	}
	if !sent {
		applog.Debugf("focus not requested for top:%v current:%v", newTop, a.current)
	}
	if sent && !responded {
		a.timeoutLocked()
	}
	a.mu.Unlock()

	if sent {
		a.handleCarFocusChange()
	}
}

// timeoutLocked handles a request the vehicle never answered as a loss.
func (a *FocusArbiter) timeoutLocked() {
	applog.Warnf("focus response timed out, request sent:%v", a.lastRequest)
	a.metrics.Timeouts.Inc()
	loss := StateLoss
	a.received = &loss
	a.contexts = 0
}

// reevaluateLocked computes what the vehicle should be asked for given the
// current top holder and sends it when it differs from the confirmed
// state. It reports whether a request was sent and answered in time.
func (a *FocusArbiter) reevaluateLocked() (sent, responded bool) {
	top := a.top
	if top == nil {
		applog.Warnf("reevaluate with no top focus holder")
		return false, false
	}
	if top.Loss != platform.FocusNone {
		applog.Errorf("top focus holder got loss %v", top)
		return false, false
	}
	if a.isSentinel(top) {
		switch a.current.State {
		case hal.FocusStateGain, hal.FocusStateGainTransient:
			// Nobody should hold car focus.
			a.scheduleRelease()
		case hal.FocusStateLoss:
			a.handleFocusLossFromCar(a.current, top)
		case hal.FocusStateLossTransient:
			a.requestProxyFocus(platform.FocusGainTransient, 0)
		case hal.FocusStateLossTransientCanDuck:
			a.requestProxyFocus(platform.FocusGainTransientMayDuck, 0)
		case hal.FocusStateLossTransientExclusive:
			a.requestProxyFocus(platform.FocusGainTransient, platform.FlagLock)
		}
		a.radioActive = false
		a.updateGaugesLocked()
		return false, false
	}
	a.cancelRelease()

	usage := top.Usage()
	own, err := a.policy.StreamMask(usage)
	if err != nil {
		a.translationError(top, err)
		return false, false
	}

	var contexts uint32
	if usage == routing.UsageVoiceCall {
		a.callActive = true
		contexts = hal.ContextCall
	} else {
		a.callActive = false
		if contexts, err = hal.ContextForUsage(usage); err != nil {
			a.translationError(top, err)
			return false, false
		}
	}

	req := hal.FocusRequestRelease
	ext := hal.ExtFocusNone
	streams := own
	switch top.Gain {
	case platform.FocusGain:
		if a.isRadio(top) {
			a.radioActive = true
			// Contexts describe platform audio only.
			contexts = 0
		} else {
			a.radioActive = false
		}
		req = hal.FocusRequestGain
	case platform.FocusGainTransient, platform.FocusGainTransientExclusive:
		a.radioActive = false
		req = hal.FocusRequestGainTransient
	case platform.FocusGainTransientMayDuck:
		prev, err := contextOf(a.second)
		if err != nil {
			a.translationError(a.second, err)
			return false, false
		}
		contexts |= prev
		req = hal.FocusRequestGainTransientMayDuck
		switch a.current.State {
		case hal.FocusStateGain:
			streams |= a.current.Streams
			req = hal.FocusRequestGain
		case hal.FocusStateGainTransient:
			streams |= a.current.Streams
			req = hal.FocusRequestGainTransient
		case hal.FocusStateLossTransientExclusive:
			a.requestProxyFocus(platform.FocusGainTransient, platform.FlagLock)
			return false, false
		}
	default:
		streams = 0
	}

	if a.radioActive {
		radio, err := a.policy.StreamMask(routing.UsageMusic)
		if err != nil {
			a.translationError(top, err)
			return false, false
		}
		if !a.isRadio(top) && bitint.HasAny(own, radio) && a.opts.RadioDuckPolicy == RadioDuckStopOnSharedStream {
			applog.Infof("top stream 0x%x is taking the same stream as radio, stopping radio", own)
			ext = hal.ExtFocusNone
			a.radioActive = false
			contexts &^= hal.ContextRadio
		} else {
			ext = hal.ExtFocusPlayOnly
			streams &^= radio
		}
	} else if streams == 0 {
		a.contexts = 0
		a.updateGaugesLocked()
		a.scheduleRelease()
		return false, false
	}
	a.updateGaugesLocked()
	return a.sendFocusRequestIfNecessaryLocked(req, streams, ext, contexts)
}

func (a *FocusArbiter) translationError(info *platform.FocusInfo, err error) {
	applog.Errorf("cannot translate focus holder %v: %v", info, err)
	a.metrics.TranslationErrors.Inc()
}

func (a *FocusArbiter) sendFocusRequestIfNecessaryLocked(req hal.FocusRequestType, streams uint32, ext hal.ExtFocus, contexts uint32) (sent, responded bool) {
	if !a.needsToSendLocked(req, streams, ext, contexts) {
		return false, false
	}
	r := NewFocusRequest(req, streams, ext)
	a.lastRequest = &r
	a.contexts = contexts
	a.metrics.AudioContexts.Set(float64(contexts))
	applog.Debugf("focus request to car:%v context:0x%x", r, contexts)
	return true, a.requestAndWaitLocked(req, streams, ext, contexts)
}

// needsToSendLocked reports whether a request differs from what the vehicle
// has already confirmed.
func (a *FocusArbiter) needsToSendLocked(req hal.FocusRequestType, streams uint32, ext hal.ExtFocus, contexts uint32) bool {
	cur := a.current
	if streams != cur.Streams {
		return true
	}
	if contexts != a.contexts {
		return true
	}
	if !cur.ExternalFocus.Has(ext) {
		return true
	}
	switch req {
	case hal.FocusRequestGain:
		if cur.State == hal.FocusStateGain {
			return false
		}
	case hal.FocusRequestGainTransient, hal.FocusRequestGainTransientMayDuck:
		if cur.State.IsGain() {
			return false
		}
	case hal.FocusRequestRelease:
		if cur.State == hal.FocusStateLoss || cur.State == hal.FocusStateLossTransientExclusive {
			return false
		}
	}
	return true
}

// requestAndWaitLocked sends one request and blocks, with mu released,
// until the vehicle answers, the timeout elapses or the arbiter is
// released. It reports whether an answer arrived.
func (a *FocusArbiter) requestAndWaitLocked(req hal.FocusRequestType, streams uint32, ext hal.ExtFocus, contexts uint32) bool {
	gen, epoch := a.generation, a.epoch
	a.sentAt = time.Now()
	a.metrics.FocusRequests.WithLabelValues(req.String()).Inc()
	a.vehicle.RequestFocusChange(req, streams, ext, contexts)
	return a.waitForResponseLocked(gen, epoch)
}

func (a *FocusArbiter) waitForResponseLocked(gen, epoch uint64) bool {
	timer := time.NewTimer(a.opts.ResponseTimeout)
	defer timer.Stop()

	for a.generation == gen && a.epoch == epoch {
		ch := a.responded
		a.mu.Unlock()
		select {
		case <-ch:
			a.mu.Lock()
		case <-timer.C:
			a.mu.Lock()
			return a.generation != gen
		}
	}
	if a.generation == gen {
		return false
	}
	rtt := time.Since(a.sentAt)
	a.latency.add(rtt)
	a.metrics.ObserveRoundTrip(rtt)
	return true
}

func (a *FocusArbiter) handleFocusRelease() {
	a.mu.Lock()
	if a.current.State == hal.FocusStateLoss {
		a.mu.Unlock()
		applog.Debugf("focus release not sent, already loss")
		return
	}
	applog.Debugf("focus release to car")
	epoch := a.epoch
	r := RequestRelease
	a.lastRequest = &r
	responded := a.requestAndWaitLocked(hal.FocusRequestRelease, 0, hal.ExtFocusNone, 0)
	if a.epoch != epoch {
		a.mu.Unlock()
		return
	}
	if !responded {
		a.timeoutLocked()
	}
	a.mu.Unlock()

	a.handleCarFocusChange()
}

// scheduleRelease replaces any queued release with one after ReleaseDelay.
func (a *FocusArbiter) scheduleRelease() {
	applog.Debugf("focus release scheduled in %v", a.opts.ReleaseDelay)
	a.handler.Remove(msgFocusRelease)
	a.handler.SendDelayed(dispatch.Message{What: msgFocusRelease}, a.opts.ReleaseDelay)
	a.metrics.ReleasesScheduled.Inc()
}

func (a *FocusArbiter) cancelRelease() {
	a.handler.Remove(msgFocusRelease)
}

func (a *FocusArbiter) requestProxyFocus(gain platform.FocusChange, flags int) {
	r := a.focus.RequestFocus(a.proxy, a.attrProxy, gain, flags, true)
	a.metrics.ProxyRequests.WithLabelValues(gain.String()).Inc()
	applog.Debugf("car proxy focus %v flags:%d result:%v", gain, flags, r)
	if r == platform.RequestGranted {
		a.proxy.set(gain)
	}
}

// isSentinel reports whether info is one of our own placeholder holders.
func (a *FocusArbiter) isSentinel(info *platform.FocusInfo) bool {
	return info != nil && info.PackageName == a.opts.PackageName && info.Usage().IsSentinel()
}

func (a *FocusArbiter) isBottom(info *platform.FocusInfo) bool {
	return info != nil && info.PackageName == a.opts.PackageName &&
		info.Usage() == routing.UsageCarServiceBottom
}

func (a *FocusArbiter) isProxy(info *platform.FocusInfo) bool {
	return info != nil && info.PackageName == a.opts.PackageName &&
		info.Attributes != nil && info.Attributes.Usage == routing.UsageCarServiceCarProxy
}

// isRadio reports whether info is the external radio. Radio needs no
// special handling unless the vehicle plays it.
func (a *FocusArbiter) isRadio(info *platform.FocusInfo) bool {
	if info == nil || info.Attributes == nil || !a.vehicle.IsRadioExternal() {
		return false
	}
	return info.Attributes.Usage == routing.UsageRadio
}

// contextOf returns the audio context of a focus holder. No holder means
// no context.
func contextOf(info *platform.FocusInfo) (uint32, error) {
	if info == nil {
		return 0, nil
	}
	if info.Attributes == nil {
		return hal.ContextUnknown, nil
	}
	return hal.ContextForUsage(info.Attributes.Usage)
}

func (a *FocusArbiter) updateGaugesLocked() {
	a.metrics.FocusState.Set(float64(a.current.State))
	a.metrics.GrantedStreams.Set(float64(a.current.Streams))
	a.metrics.AudioContexts.Set(float64(a.contexts))
	monitoring.SetBool(a.metrics.RadioActive, a.radioActive)
	monitoring.SetBool(a.metrics.CallActive, a.callActive)
}

// Snapshot returns a copy of the arbiter state.
func (a *FocusArbiter) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *FocusArbiter) snapshotLocked() Snapshot {
	s := Snapshot{
		Time:          time.Now(),
		State:         a.current.State,
		StateName:     a.current.State.String(),
		Streams:       a.current.Streams,
		ExternalFocus: a.current.ExternalFocus,
		Contexts:      a.contexts,
		RadioActive:   a.radioActive,
		CallActive:    a.callActive,
		BottomFocus:   a.bottom.last(),
		StreamStatus:  a.streamStatusLocked(),
		Latency:       a.latency.summary(),
	}
	if a.lastRequest != nil {
		r := *a.lastRequest
		s.LastRequest = &r
	}
	if a.top != nil {
		t := *a.top
		s.Top = &t
	}
	return s
}

func (a *FocusArbiter) notifyObservers() {
	a.obsMu.Lock()
	observers := append([]FocusObserver(nil), a.observers...)
	a.obsMu.Unlock()
	if len(observers) == 0 {
		return
	}
	snap := a.Snapshot()
	for _, o := range observers {
		o.OnFocusSnapshot(snap)
	}
}
