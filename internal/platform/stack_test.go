package platform

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caraudio/internal/routing"
)

type grant struct {
	info   FocusInfo
	result RequestResult
}

type policyRecorder struct {
	mu     sync.Mutex
	grants []grant
	losses []FocusInfo
}

func (p *policyRecorder) OnAudioFocusGrant(info *FocusInfo, result RequestResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grants = append(p.grants, grant{*info, result})
}

func (p *policyRecorder) OnAudioFocusLoss(info *FocusInfo, _ bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.losses = append(p.losses, *info)
}

func (p *policyRecorder) lastGrant(t *testing.T, n int) FocusInfo {
	t.Helper()
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.grants) >= n
	}, time.Second, 2*time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grants[len(p.grants)-1].info
}

func newTestStack(t *testing.T) (*Stack, *policyRecorder) {
	t.Helper()
	s := NewStack()
	s.Start()
	t.Cleanup(func() { s.Close() })
	rec := &policyRecorder{}
	require.NoError(t, s.Client("system").RegisterPolicy(rec))
	return s, rec
}

var (
	music = &Attributes{Usage: routing.UsageMusic}
	nav   = &Attributes{Usage: routing.UsageNavigationGuidance}
)

func TestStackGrantNotifiesPolicy(t *testing.T) {
	s, rec := newTestStack(t)
	app := &AppListener{Name: "player"}

	res := s.Client("com.example.player").RequestFocus(app, music, FocusGain, 0, false)
	assert.Equal(t, RequestGranted, res)

	got := rec.lastGrant(t, 1)
	assert.Equal(t, "com.example.player", got.PackageName)
	assert.Equal(t, FocusGain, got.Gain)
	assert.Equal(t, routing.UsageMusic, got.Usage())
	assert.NotEmpty(t, got.ClientID)

	top, ok := s.Top()
	require.True(t, ok)
	assert.Equal(t, got.ClientID, top.ClientID)
}

func TestStackTransientLoss(t *testing.T) {
	tests := []struct {
		gain     FocusChange
		wantLoss FocusChange
	}{
		{FocusGain, FocusLoss},
		{FocusGainTransient, FocusLossTransient},
		{FocusGainTransientExclusive, FocusLossTransient},
		{FocusGainTransientMayDuck, FocusLossTransientCanDuck},
	}
	for _, tt := range tests {
		t.Run(tt.gain.String(), func(t *testing.T) {
			s, rec := newTestStack(t)
			first := &AppListener{Name: "first"}
			second := &AppListener{Name: "second"}
			s.Client("a").RequestFocus(first, music, FocusGain, 0, false)
			s.Client("b").RequestFocus(second, nav, tt.gain, 0, false)

			got := rec.lastGrant(t, 2)
			assert.Equal(t, tt.gain, got.Gain)
			require.Eventually(t, func() bool { return first.Last() == tt.wantLoss }, time.Second, 2*time.Millisecond)

			entries := s.Entries()
			require.Len(t, entries, 2)
			assert.Equal(t, tt.wantLoss, entries[1].Loss)
		})
	}
}

func TestStackPermanentLoserRegainsOnAbandon(t *testing.T) {
	s, rec := newTestStack(t)
	bottom := &AppListener{Name: "bottom"}
	first := &AppListener{Name: "first"}
	second := &AppListener{Name: "second"}
	s.Client("system").RequestFocus(bottom, music, FocusGain, FlagDelayOK, false)
	s.Client("a").RequestFocus(first, music, FocusGain, 0, false)
	s.Client("b").RequestFocus(second, nav, FocusGain, 0, false)
	rec.lastGrant(t, 3)

	entries := s.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []FocusChange{FocusNone, FocusLoss, FocusLoss},
		[]FocusChange{entries[0].Loss, entries[1].Loss, entries[2].Loss})
	require.Eventually(t, func() bool { return bottom.Last() == FocusLoss }, time.Second, 2*time.Millisecond)
	// Already lost, so not told twice.
	assert.Equal(t, []FocusChange{FocusLoss}, bottom.Changes())

	s.Client("b").AbandonFocus(second)
	got := rec.lastGrant(t, 4)
	assert.Equal(t, "a", got.PackageName)
	assert.Equal(t, FocusNone, got.Loss)

	s.Client("a").AbandonFocus(first)
	got = rec.lastGrant(t, 5)
	assert.Equal(t, "system", got.PackageName)
	require.Eventually(t, func() bool { return bottom.Last() == FocusGain }, time.Second, 2*time.Millisecond)
	assert.Len(t, s.Entries(), 1)
}

func TestStackAbandonRegrantsNewTop(t *testing.T) {
	s, rec := newTestStack(t)
	player := &AppListener{Name: "player"}
	navApp := &AppListener{Name: "nav"}
	s.Client("player").RequestFocus(player, music, FocusGain, 0, false)
	s.Client("nav").RequestFocus(navApp, nav, FocusGainTransientMayDuck, 0, false)
	rec.lastGrant(t, 2)

	assert.Equal(t, RequestGranted, s.Client("nav").AbandonFocus(navApp))
	got := rec.lastGrant(t, 3)
	assert.Equal(t, "player", got.PackageName)
	assert.Equal(t, FocusNone, got.Loss)
	require.Eventually(t, func() bool { return player.Last() == FocusGain }, time.Second, 2*time.Millisecond)

	// Abandoning a listener that holds nothing is harmless.
	assert.Equal(t, RequestGranted, s.Client("nav").AbandonFocus(navApp))
}

func TestStackLock(t *testing.T) {
	s, rec := newTestStack(t)
	proxy := &AppListener{Name: "proxy"}
	app := &AppListener{Name: "app"}
	other := &AppListener{Name: "other"}

	res := s.Client("car").RequestFocus(proxy, &Attributes{Usage: routing.UsageCarServiceCarProxy}, FocusGainTransient, FlagLock, true)
	require.Equal(t, RequestGranted, res)
	rec.lastGrant(t, 1)

	assert.Equal(t, RequestFailed, s.Client("app").RequestFocus(app, music, FocusGain, 0, false))
	assert.Equal(t, RequestDelayed, s.Client("other").RequestFocus(other, music, FocusGain, FlagDelayOK, false))

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "car", entries[0].PackageName)
	assert.Equal(t, "other", entries[1].PackageName)

	// Lock released: the parked request takes over.
	s.Client("car").AbandonFocus(proxy)
	got := rec.lastGrant(t, 2)
	assert.Equal(t, "other", got.PackageName)
}

func TestStackPolicyRequired(t *testing.T) {
	s := NewStack()
	s.Start()
	defer s.Close()
	app := &AppListener{}
	assert.Equal(t, RequestFailed, s.Client("car").RequestFocus(app, music, FocusGain, 0, true))
	assert.Equal(t, RequestGranted, s.Client("car").RequestFocus(app, music, FocusGain, 0, false))
}

func TestStackRegisterPolicy(t *testing.T) {
	s, rec := newTestStack(t)
	assert.NoError(t, s.Client("system").RegisterPolicy(rec))
	assert.ErrorIs(t, s.Client("system").RegisterPolicy(&policyRecorder{}), ErrPolicyRegistered)
	s.Client("system").UnregisterPolicy(rec)
	assert.NoError(t, s.Client("system").RegisterPolicy(&policyRecorder{}))
}

func TestStackInvalidRequest(t *testing.T) {
	s, _ := newTestStack(t)
	assert.Equal(t, RequestFailed, s.Client("x").RequestFocus(nil, music, FocusGain, 0, false))
	assert.Equal(t, RequestFailed, s.Client("x").RequestFocus(&AppListener{}, music, FocusLoss, 0, false))
}

func TestStackRepeatRequestIsNoop(t *testing.T) {
	s, rec := newTestStack(t)
	app := &AppListener{}
	s.Client("x").RequestFocus(app, music, FocusGain, 0, false)
	rec.lastGrant(t, 1)
	s.Client("x").RequestFocus(app, music, FocusGain, 0, false)
	time.Sleep(10 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.grants, 1)
}

func TestLossFor(t *testing.T) {
	assert.Equal(t, FocusNone, LossFor(FocusLoss))
	assert.Equal(t, FocusLossTransientCanDuck, LossFor(FocusGainTransientMayDuck))
}

func TestAttributesSame(t *testing.T) {
	var none *Attributes
	assert.True(t, none.Same(nil))
	assert.False(t, music.Same(nil))
	assert.True(t, music.Same(&Attributes{Usage: routing.UsageMusic}))
	assert.False(t, music.Same(&Attributes{Usage: routing.UsageMusic, ContentType: 2}))
}
