package concurrency

import (
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("tracker is closed")

// Tracker runs tasks on their own goroutines and keeps count of the ones
// still running.
type Tracker struct {
	mu        sync.Mutex
	wg        sync.WaitGroup
	active    int
	idleSince time.Time
	closed    bool
	now       func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{idleSince: time.Now(), now: time.Now}
}

// Go starts task unless the tracker was closed.
func (t *Tracker) Go(task func()) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.active++
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer func() {
			t.mu.Lock()
			t.active--
			if t.active == 0 {
				t.idleSince = t.now()
			}
			t.mu.Unlock()
			t.wg.Done()
		}()
		task()
	}()
	return nil
}

// Active returns the number of running tasks.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// IdleFor returns how long no task has been running, or zero while one is.
func (t *Tracker) IdleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active > 0 {
		return 0
	}
	return t.now().Sub(t.idleSince)
}

// Touch restarts the idle clock.
func (t *Tracker) Touch() {
	t.mu.Lock()
	t.idleSince = t.now()
	t.mu.Unlock()
}

// Close rejects further tasks. Running tasks are not affected.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Wait blocks until every started task has returned.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
