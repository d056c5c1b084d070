package strategy

import "math"

// Stats are the derived rolling statistics of one observation window,
// recomputed on every update.
type Stats struct {
	Mean     float64
	Variance float64 // population variance
	OneDev   float64
	TwoDev   float64
}

// window is a bounded FIFO of observed prices. Once the cap is exceeded the
// oldest entries are evicted first.
type window struct {
	cap    int
	prices []float64
}

func newWindow(cap int) *window {
	return &window{cap: cap}
}

func (w *window) push(prices ...float64) {
	w.prices = append(w.prices, prices...)
	if over := len(w.prices) - w.cap; over > 0 {
		w.prices = w.prices[over:]
	}
}

func (w *window) size() int {
	return len(w.prices)
}

func (w *window) stats() Stats {
	if len(w.prices) == 0 {
		return Stats{}
	}
	var sum float64
	for _, p := range w.prices {
		sum += p
	}
	mean := sum / float64(len(w.prices))

	var variance float64
	for _, p := range w.prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(w.prices))

	one := math.Sqrt(variance)
	return Stats{Mean: mean, Variance: variance, OneDev: one, TwoDev: one * 2}
}
