package platform

import (
	"errors"
	"fmt"
	"sync"

	"caraudio/internal/dispatch"
	applog "caraudio/internal/log"
)

// ErrPolicyRegistered is returned when a second audio policy registers.
var ErrPolicyRegistered = errors.New("audio policy already registered")

type stackEntry struct {
	listener FocusListener
	info     FocusInfo
}

// Stack is an in-process focus stack shared by several packages. Each
// package obtains its view with Client. Callbacks run in order on the
// stack's own goroutine.
type Stack struct {
	handler *dispatch.Handler

	mu      sync.Mutex
	entries []*stackEntry // bottom first
	policy  PolicyListener
	ids     map[FocusListener]string
	nextID  int
}

// NewStack returns an empty Stack. Call Start before use.
func NewStack() *Stack {
	return &Stack{
		handler: dispatch.NewHandler("focus-stack", nil),
		ids:     make(map[FocusListener]string),
	}
}

// Start begins callback delivery.
func (s *Stack) Start() {
	s.handler.Start()
}

// Close stops callback delivery.
func (s *Stack) Close() error {
	return s.handler.Stop()
}

// Client returns the AudioFocus view of packageName.
func (s *Stack) Client(packageName string) *Client {
	return &Client{stack: s, packageName: packageName}
}

// Top returns a copy of the current top holder.
func (s *Stack) Top() (FocusInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return FocusInfo{}, false
	}
	return s.entries[len(s.entries)-1].info, true
}

// Entries returns copies of every holder, top first.
func (s *Stack) Entries() []FocusInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FocusInfo, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i].info)
	}
	return out
}

func (s *Stack) clientIDLocked(l FocusListener, pkg string) string {
	if id, ok := s.ids[l]; ok {
		return id
	}
	s.nextID++
	id := fmt.Sprintf("%s@%d", pkg, s.nextID)
	s.ids[l] = id
	return id
}

func (s *Stack) indexLocked(l FocusListener) int {
	for i, e := range s.entries {
		if e.listener == l {
			return i
		}
	}
	return -1
}

func (s *Stack) removeLocked(i int) *stackEntry {
	e := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return e
}

func (s *Stack) request(pkg string, l FocusListener, attrs *Attributes, gain FocusChange, flags int, withPolicy bool) RequestResult {
	if l == nil || gain < FocusGain || gain > FocusGainTransientExclusive {
		applog.Warnf("focus-stack: invalid request from %s gain:%v", pkg, gain)
		return RequestFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if withPolicy && s.policy == nil {
		applog.Warnf("focus-stack: %s requested through a policy but none is registered", pkg)
		return RequestFailed
	}

	info := FocusInfo{
		ClientID:    s.clientIDLocked(l, pkg),
		PackageName: pkg,
		Attributes:  attrs,
		Gain:        gain,
		Flags:       flags,
	}

	if n := len(s.entries); n > 0 {
		top := s.entries[n-1]
		if top.listener == l && top.info.Gain == gain && top.info.Attributes.Same(attrs) {
			return RequestGranted
		}
		if top.listener != l && top.info.Flags&FlagLock != 0 {
			if flags&FlagDelayOK == 0 {
				applog.Debugf("focus-stack: %s refused, %s holds the lock", info.ClientID, top.info.ClientID)
				return RequestFailed
			}
			if i := s.indexLocked(l); i >= 0 {
				s.removeLocked(i)
			}
			// Parked right under the lock holder.
			info.Loss = FocusLossTransient
			entry := &stackEntry{listener: l, info: info}
			at := len(s.entries) - 1
			s.entries = append(s.entries[:at], append([]*stackEntry{entry}, s.entries[at:]...)...)
			applog.Debugf("focus-stack: %s delayed behind %s", info.ClientID, top.info.ClientID)
			return RequestDelayed
		}
	}

	if i := s.indexLocked(l); i >= 0 {
		s.removeLocked(i)
	}

	loss := LossFor(gain)
	if n := len(s.entries); n > 0 {
		top := s.entries[n-1]
		top.info.Loss = loss
		s.notifyLossLocked(top, loss)
	}
	if loss == FocusLoss {
		// Every holder loses for good but stays stacked until it abandons,
		// so the holder underneath is granted again when the top leaves.
		for _, e := range s.entries {
			if e.info.Loss != FocusLoss {
				e.info.Loss = FocusLoss
				s.notifyLossLocked(e, FocusLoss)
			}
		}
	}

	s.entries = append(s.entries, &stackEntry{listener: l, info: info})
	applog.Debugf("focus-stack: granted %s", &info)
	s.notifyGrantLocked(info)
	return RequestGranted
}

func (s *Stack) abandon(l FocusListener) RequestResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(l)
	if i < 0 {
		return RequestGranted
	}
	wasTop := i == len(s.entries)-1
	gone := s.removeLocked(i)
	delete(s.ids, l)

	if p := s.policy; p != nil {
		info := gone.info
		s.handler.Post(func() { p.OnAudioFocusLoss(&info, false) })
	}

	if wasTop && len(s.entries) > 0 {
		top := s.entries[len(s.entries)-1]
		top.info.Loss = FocusNone
		listener := top.listener
		s.handler.Post(func() { listener.OnAudioFocusChange(FocusGain) })
		s.notifyGrantLocked(top.info)
	}
	return RequestGranted
}

func (s *Stack) notifyLossLocked(e *stackEntry, loss FocusChange) {
	listener := e.listener
	s.handler.Post(func() { listener.OnAudioFocusChange(loss) })
	if p := s.policy; p != nil && loss == FocusLoss {
		info := e.info
		s.handler.Post(func() { p.OnAudioFocusLoss(&info, true) })
	}
}

func (s *Stack) notifyGrantLocked(info FocusInfo) {
	p := s.policy
	if p == nil {
		return
	}
	s.handler.Post(func() { p.OnAudioFocusGrant(&info, RequestGranted) })
}

func (s *Stack) registerPolicy(p PolicyListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy != nil && s.policy != p {
		return ErrPolicyRegistered
	}
	s.policy = p
	return nil
}

func (s *Stack) unregisterPolicy(p PolicyListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy == p {
		s.policy = nil
	}
}

// Client is the AudioFocus view of one package on a Stack.
type Client struct {
	stack       *Stack
	packageName string
}

var _ AudioFocus = (*Client)(nil)

// PackageName returns the package requests are attributed to.
func (c *Client) PackageName() string {
	return c.packageName
}

func (c *Client) RequestFocus(l FocusListener, attrs *Attributes, gain FocusChange, flags int, withPolicy bool) RequestResult {
	return c.stack.request(c.packageName, l, attrs, gain, flags, withPolicy)
}

func (c *Client) AbandonFocus(l FocusListener) RequestResult {
	return c.stack.abandon(l)
}

func (c *Client) RegisterPolicy(p PolicyListener) error {
	return c.stack.registerPolicy(p)
}

func (c *Client) UnregisterPolicy(p PolicyListener) {
	c.stack.unregisterPolicy(p)
}

// AppListener is a FocusListener for simulated applications. It keeps
// every change it was told about.
type AppListener struct {
	Name string

	mu      sync.Mutex
	changes []FocusChange
}

func (a *AppListener) OnAudioFocusChange(change FocusChange) {
	a.mu.Lock()
	a.changes = append(a.changes, change)
	a.mu.Unlock()
	applog.Debugf("focus-stack: app %s got %v", a.Name, change)
}

// Last returns the most recent change, or FocusNone.
func (a *AppListener) Last() FocusChange {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.changes) == 0 {
		return FocusNone
	}
	return a.changes[len(a.changes)-1]
}

// Changes returns a copy of every change received.
func (a *AppListener) Changes() []FocusChange {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]FocusChange(nil), a.changes...)
}
