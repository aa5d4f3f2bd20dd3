package monitoring

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const defaultWindow = 256

// Summary describes the samples of a Window
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Window keeps the most recent samples of a measurement
type Window struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
}

// NewWindow creates a window holding up to size samples
func NewWindow(size int) *Window {
	if size <= 0 {
		size = defaultWindow
	}
	return &Window{samples: make([]float64, size)}
}

// Add records a sample, replacing the oldest once the window is full
func (w *Window) Add(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples[w.next] = v
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

// Summary computes statistics over the current samples
func (w *Window) Summary() Summary {
	w.mu.Lock()
	n := w.next
	if w.full {
		n = len(w.samples)
	}
	sorted := make([]float64, n)
	copy(sorted, w.samples[:n])
	w.mu.Unlock()

	if n == 0 {
		return Summary{}
	}
	sort.Float64s(sorted)

	s := Summary{
		Count:  n,
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:    floats.Max(sorted),
	}
	if n > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}
