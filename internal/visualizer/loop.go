// SPDX-License-Identifier: MIT
package visualizer

import (
	"context"
	"sync"
	"time"
)

// FrameScheduler is the yield point of the frame loop. Frame callbacks and
// posted tasks all run on the scheduler's single goroutine.
type FrameScheduler interface {
	// RequestFrame schedules cb for the next frame and returns a handle for
	// CancelFrame. Handles are never zero.
	RequestFrame(cb func(now time.Time)) uint64
	// CancelFrame drops a pending request. Unknown handles are ignored.
	CancelFrame(id uint64)
	// Post runs fn on the loop goroutine before the next frame.
	Post(fn func())
}

// DefaultFPS is the frame rate of a Loop created with a non-positive rate.
const DefaultFPS = 60

type frameRequest struct {
	id uint64
	cb func(time.Time)
}

// Loop is the production FrameScheduler: a ticker at a fixed rate drives
// every requested frame, and posted tasks run as soon as the loop wakes.
type Loop struct {
	interval time.Duration

	mu      sync.Mutex
	nextID  uint64
	pending []frameRequest
	tasks   []func()
	wake    chan struct{}

	// swapped with pending and tasks while running
	runFrames []frameRequest
	runTasks  []func()
}

// NewLoop returns a stopped loop ticking at fps frames per second.
func NewLoop(fps int) *Loop {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Loop{
		interval: time.Second / time.Duration(fps),
		wake:     make(chan struct{}, 1),
	}
}

// Interval returns the frame period.
func (l *Loop) Interval() time.Duration { return l.interval }

func (l *Loop) RequestFrame(cb func(now time.Time)) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.pending = append(l.pending, frameRequest{id: l.nextID, cb: cb})
	return l.nextID
}

func (l *Loop) CancelFrame(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, r := range l.pending {
		if r.id == id {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return
		}
	}
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is cancelled. Callbacks requested while a
// frame runs are served on the following tick.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			l.runPosted()
		case now := <-ticker.C:
			l.runPosted()
			l.runFrame(now)
		}
	}
}

func (l *Loop) runPosted() {
	l.mu.Lock()
	l.tasks, l.runTasks = l.runTasks[:0], l.tasks
	l.mu.Unlock()
	for i, fn := range l.runTasks {
		fn()
		l.runTasks[i] = nil
	}
}

func (l *Loop) runFrame(now time.Time) {
	l.mu.Lock()
	l.pending, l.runFrames = l.runFrames[:0], l.pending
	l.mu.Unlock()
	for i, r := range l.runFrames {
		r.cb(now)
		l.runFrames[i] = frameRequest{}
	}
}
