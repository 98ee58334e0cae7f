package service

import (
	"sort"
	"sync"
	"time"
)

// FrameID identifies a requested frame callback.
type FrameID uint64

// FrameScheduler runs one-shot callbacks on the next frame, like a
// display-synchronized animation callback. Callbacks requested while a frame
// is running run on the following frame.
type FrameScheduler interface {
	RequestFrame(fn func(now time.Time)) FrameID
	CancelFrame(id FrameID)
}

// TickerScheduler drives frames from a fixed-interval ticker. One scheduler
// is shared by all sessions.
type TickerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]func(time.Time)

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewTickerScheduler starts a scheduler ticking every interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}
	s := &TickerScheduler{
		interval: interval,
		pending:  make(map[FrameID]func(time.Time)),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// RequestFrame schedules fn for the next tick.
func (s *TickerScheduler) RequestFrame(fn func(time.Time)) FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = fn
	return s.next
}

// CancelFrame drops a pending callback. A callback already dispatched for
// the current tick still runs; callers guard their state themselves.
func (s *TickerScheduler) CancelFrame(id FrameID) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

// Pending returns the number of callbacks waiting for the next tick.
func (s *TickerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop halts the ticker. Pending callbacks never run.
func (s *TickerScheduler) Stop() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *TickerScheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *TickerScheduler) tick(now time.Time) {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[FrameID]func(time.Time))
	s.mu.Unlock()

	ids := make([]FrameID, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		batch[id](now)
	}
}
