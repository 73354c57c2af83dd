package audio

import (
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// latencyWindow is the number of round trips kept for statistics.
const latencyWindow = 256

// LatencySummary describes recent vehicle round-trip times.
type LatencySummary struct {
	Count  int           `json:"count"`
	Mean   time.Duration `json:"mean"`
	StdDev time.Duration `json:"std_dev"`
	P95    time.Duration `json:"p95"`
	Max    time.Duration `json:"max"`
}

// latencyStats is a fixed-size ring of round-trip samples in seconds.
type latencyStats struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

func newLatencyStats() *latencyStats {
	return &latencyStats{samples: make([]float64, latencyWindow)}
}

func (l *latencyStats) add(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples[l.next] = d.Seconds()
	l.next++
	if l.next == len(l.samples) {
		l.next = 0
		l.full = true
	}
}

func (l *latencyStats) summary() LatencySummary {
	l.mu.Lock()
	n := l.next
	if l.full {
		n = len(l.samples)
	}
	xs := slices.Clone(l.samples[:n])
	l.mu.Unlock()

	if len(xs) == 0 {
		return LatencySummary{}
	}
	slices.Sort(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	p95 := stat.Quantile(0.95, stat.Empirical, xs, nil)
	return LatencySummary{
		Count:  len(xs),
		Mean:   seconds(mean),
		StdDev: seconds(std),
		P95:    seconds(p95),
		Max:    seconds(xs[len(xs)-1]),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
