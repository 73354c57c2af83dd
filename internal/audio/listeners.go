package audio

import (
	"sync"
	"sync/atomic"

	applog "caraudio/internal/log"
	"caraudio/internal/monitoring"
	"caraudio/internal/platform"
	"caraudio/internal/routing"
)

// pendingGrants buffers platform grants, newest first. Only the newest one
// is ever acted on.
type pendingGrants struct {
	mu    sync.Mutex
	infos []*platform.FocusInfo
}

func (p *pendingGrants) push(info *platform.FocusInfo) {
	p.mu.Lock()
	p.infos = append([]*platform.FocusInfo{info}, p.infos...)
	p.mu.Unlock()
}

// drain returns the newest grant and empties the buffer.
func (p *pendingGrants) drain() (*platform.FocusInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.infos) == 0 {
		return nil, false
	}
	newest := p.infos[0]
	clear(p.infos)
	p.infos = p.infos[:0]
	return newest, true
}

func (p *pendingGrants) reset() {
	p.mu.Lock()
	p.infos = nil
	p.mu.Unlock()
}

// systemFocusListener is the audio policy listener. It only records grants
// and wakes the dispatcher.
type systemFocusListener struct {
	pending *pendingGrants
	wake    func()
	metrics *monitoring.Metrics
}

var _ platform.PolicyListener = (*systemFocusListener)(nil)

func (l *systemFocusListener) OnAudioFocusGrant(info *platform.FocusInfo, result platform.RequestResult) {
	if info == nil {
		return
	}
	applog.Debugf("onAudioFocusGrant %v result:%v", info, result)
	if result != platform.RequestGranted {
		return
	}
	l.metrics.PlatformGrants.Inc()
	l.pending.push(info)
	l.wake()
}

func (l *systemFocusListener) OnAudioFocusLoss(info *platform.FocusInfo, wasNotified bool) {
	// Tracking grants is enough: the bottom listener always sits under
	// every other holder.
	applog.Debugf("onAudioFocusLoss %v notified:%v", info, wasNotified)
}

// sentinelListener is one of the arbiter's own focus holders. It records the
// last change it received.
type sentinelListener struct {
	usage routing.Usage
	state atomic.Int32
}

var _ platform.FocusListener = (*sentinelListener)(nil)

func newSentinelListener(usage routing.Usage) *sentinelListener {
	l := &sentinelListener{usage: usage}
	l.state.Store(int32(platform.FocusNone))
	return l
}

func (l *sentinelListener) OnAudioFocusChange(change platform.FocusChange) {
	l.state.Store(int32(change))
	applog.Debugf("%v focus change:%v", l.usage, change)
}

func (l *sentinelListener) last() platform.FocusChange {
	return platform.FocusChange(l.state.Load())
}

func (l *sentinelListener) set(change platform.FocusChange) {
	l.state.Store(int32(change))
}
