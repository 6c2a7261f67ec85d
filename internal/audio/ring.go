// SPDX-License-Identifier: MIT
package audio

import "sync"

// SampleRing is a thread-safe circular buffer of mono samples. Producers
// (output pulls, the capture callback, the headless pump) write into it and
// the frame loop reads the newest window.
type SampleRing struct {
	mu   sync.Mutex
	buf  []float32
	w    int // write position
	fill int // current fill level
}

// NewSampleRing creates a ring holding the given number of samples.
func NewSampleRing(size int) *SampleRing {
	if size < 1 {
		size = 1
	}
	return &SampleRing{buf: make([]float32, size)}
}

// Write appends samples, overwriting the oldest data when full.
func (r *SampleRing) Write(p []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.buf)
	if len(p) >= size {
		copy(r.buf, p[len(p)-size:])
		r.w = 0
		r.fill = size
		return
	}
	n := copy(r.buf[r.w:], p)
	if n < len(p) {
		copy(r.buf, p[n:])
	}
	r.w = (r.w + len(p)) % size
	r.fill = min(r.fill+len(p), size)
}

// Latest copies the newest min(len(dst), Len()) samples into the front of
// dst, oldest first, and returns how many were copied.
func (r *SampleRing) Latest(dst []float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(len(dst), r.fill)
	if n == 0 {
		return 0
	}
	size := len(r.buf)
	start := (r.w - n + size) % size
	c := copy(dst[:n], r.buf[start:])
	if c < n {
		copy(dst[c:n], r.buf)
	}
	return n
}

// Len returns the number of buffered samples.
func (r *SampleRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fill
}

// Cap returns the ring capacity.
func (r *SampleRing) Cap() int { return len(r.buf) }

// Clear drops all buffered samples.
func (r *SampleRing) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w = 0
	r.fill = 0
}
