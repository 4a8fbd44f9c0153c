package page

import (
	"context"
	"sync"
	"time"
)

// Registry keeps one controller per session id in process memory. Sessions
// idle for longer than the ttl are dropped.
type Registry struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	c    *Controller
	seen time.Time
}

func NewRegistry(d Deps, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Registry{deps: d, ttl: ttl, now: time.Now, sessions: make(map[string]*session)}
}

// Get returns the controller for id, creating it on first use. The saved
// list is reloaded on every call so cards saved elsewhere show up.
func (r *Registry) Get(ctx context.Context, id string) *Controller {
	now := r.now()
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		s.seen = now
	} else {
		r.sweep(now)
		s = &session{c: NewController(r.deps), seen: now}
		r.sessions[id] = s
	}
	r.mu.Unlock()

	// a failed load keeps the previous list and queues an error toast
	_ = s.c.Load(ctx)
	return s.c
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Each calls fn for every live controller.
func (r *Registry) Each(fn func(*Controller)) {
	r.mu.Lock()
	list := make([]*Controller, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s.c)
	}
	r.mu.Unlock()
	for _, c := range list {
		fn(c)
	}
}

func (r *Registry) sweep(now time.Time) {
	for id, s := range r.sessions {
		if now.Sub(s.seen) > r.ttl {
			delete(r.sessions, id)
		}
	}
}
