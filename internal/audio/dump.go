package audio

import (
	"fmt"
	"io"

	"caraudio/pkg/bitint"
)

// Dump writes a human readable description of the arbiter state to w.
func (a *FocusArbiter) Dump(w io.Writer) {
	a.mu.Lock()
	snap := a.snapshotLocked()
	policy := a.policy
	second := a.second
	a.mu.Unlock()

	fmt.Fprintln(w, "*CarAudioService*")
	last := "<none>"
	if snap.LastRequest != nil {
		last = snap.LastRequest.String()
	}
	fmt.Fprintf(w, " currentFocusState:%v lastFocusRequestToCar:%s\n", snap.FocusState(), last)
	fmt.Fprintf(w, " grantedStreams:%d %v\n", bitint.Count(snap.Streams), bitint.Indices(snap.Streams))
	fmt.Fprintf(w, " currentAudioContexts:0x%x\n", snap.Contexts)
	fmt.Fprintf(w, " callActive:%t radioActive:%t radioDuck:%v\n", snap.CallActive, snap.RadioActive, a.opts.RadioDuckPolicy)
	fmt.Fprintf(w, " top:%v\n", snap.Top)
	fmt.Fprintf(w, " second:%v\n", second)
	fmt.Fprintf(w, " bottomFocus:%v\n", snap.BottomFocus)
	for _, st := range snap.StreamStatus {
		fmt.Fprintf(w, " stream %d: volume:%d state:%d active:%t", st.Stream, st.Volume, st.VolumeState, st.Active)
		if st.HasLimit {
			fmt.Fprintf(w, " limit:%d", st.Limit)
		}
		fmt.Fprintln(w)
	}
	l := snap.Latency
	fmt.Fprintf(w, " round trip: n=%d mean=%v stddev=%v p95=%v max=%v\n", l.Count, l.Mean, l.StdDev, l.P95, l.Max)
	if policy != nil {
		policy.Dump(w)
	}
}
