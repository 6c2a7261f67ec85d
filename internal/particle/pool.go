// SPDX-License-Identifier: MIT
package particle

// Particle is one decorative particle. Positions are relative to the ring
// centre.
type Particle struct {
	X, Y    float64
	VX, VY  float64
	Life    float64 // seconds remaining
	MaxLife float64
}

// Pool is a fixed-capacity ring of particles. Adding to a full pool
// overwrites the oldest particle.
type Pool struct {
	buf  []Particle
	head int // index of the oldest particle
	n    int
}

// NewPool returns an empty pool holding at most capacity particles.
func NewPool(capacity int) *Pool {
	p := &Pool{}
	p.SetCap(capacity)
	return p
}

// Len returns the number of live particles.
func (p *Pool) Len() int { return p.n }

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return len(p.buf) }

// SetCap changes the capacity, keeping the newest particles that fit.
// Capacities below one are raised to one.
func (p *Pool) SetCap(capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	if capacity == len(p.buf) {
		return
	}
	keep := min(p.n, capacity)
	buf := make([]Particle, capacity)
	for i := range keep {
		buf[i] = *p.At(p.n - keep + i)
	}
	p.buf, p.head, p.n = buf, 0, keep
}

// Add appends pt as the newest particle and reports whether the oldest one
// was evicted to make room.
func (p *Pool) Add(pt Particle) (evicted bool) {
	if len(p.buf) == 0 {
		p.SetCap(1)
	}
	if p.n == len(p.buf) {
		p.buf[p.head] = pt
		p.head = (p.head + 1) % len(p.buf)
		return true
	}
	p.buf[(p.head+p.n)%len(p.buf)] = pt
	p.n++
	return false
}

// At returns the i-th particle, oldest first.
func (p *Pool) At(i int) *Particle {
	return &p.buf[(p.head+i)%len(p.buf)]
}

// Clear removes every particle.
func (p *Pool) Clear() {
	p.head, p.n = 0, 0
}

// Sweep removes dead particles, preserving the order of the survivors.
func (p *Pool) Sweep() {
	w := 0
	for i := range p.n {
		pt := p.At(i)
		if pt.Life <= 0 {
			continue
		}
		if w != i {
			*p.At(w) = *pt
		}
		w++
	}
	p.n = w
}
