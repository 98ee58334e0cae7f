package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/joeblew999/plat-wms/internal/metrics"
)

// Sessions holds one ViewState per browser session. Idle sessions expire
// after the TTL; expiry closes the state.
type Sessions struct {
	opts  Options
	cache *cache.Cache
}

// NewSessions creates a session store. All states share opts.
func NewSessions(ttl time.Duration, opts Options) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if opts.Frames == nil {
		opts.Frames = NewTickerScheduler(0)
	}
	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(id string, v interface{}) {
		if vs, ok := v.(*ViewState); ok {
			vs.Close()
			vs.log.Debug().Msg("session closed")
		}
		metrics.ActiveSessions.Dec()
	})
	return &Sessions{opts: opts, cache: c}
}

// Create starts a new session.
func (s *Sessions) Create() *ViewState {
	vs := NewViewState(uuid.NewString(), s.opts)
	s.cache.Set(vs.ID(), vs, cache.DefaultExpiration)
	metrics.ActiveSessions.Inc()
	vs.log.Debug().Msg("session created")
	return vs
}

// Get returns a live session and extends its lifetime. A session deleted
// or closed meanwhile is never put back.
func (s *Sessions) Get(id string) (*ViewState, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	vs := v.(*ViewState)
	if vs.Closed() {
		return nil, false
	}
	// Replace only refreshes an entry that still exists.
	if err := s.cache.Replace(id, vs, cache.DefaultExpiration); err != nil {
		return nil, false
	}
	return vs, true
}

// Delete ends a session.
func (s *Sessions) Delete(id string) {
	s.cache.Delete(id)
}

// Len returns the number of live sessions, expired ones included until
// the next cleanup.
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}

// Close ends every session.
func (s *Sessions) Close() {
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}
