// Package ratelimit implements a fixed-window request limiter keyed by
// (action, client). Single-node, in-memory: windows for different keys are
// fully independent and no cross-instance coordination is attempted.
package ratelimit

import (
	"sync"
	"time"
)

// Rule bounds one action: at most MaxRequests per Window.
type Rule struct {
	Window      time.Duration
	MaxRequests int
}

// Result reports the outcome of a single Check call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed windows per (action, client) pair.
type Limiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	windows map[string]*window
	now     func() time.Time
}

// New creates a Limiter with per-action rules.
func New(rules map[string]Rule) *Limiter {
	return &Limiter{
		rules:   rules,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Check records a request for the given action and client key and reports
// whether it is allowed. Actions without a configured rule are always allowed.
func (l *Limiter) Check(action, clientKey string) Result {
	rule, ok := l.rules[action]
	if !ok || rule.MaxRequests <= 0 {
		return Result{Allowed: true}
	}

	key := action + ":" + clientKey

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w := l.windows[key]

	if w == nil || !now.Before(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(rule.Window)}
		return Result{
			Allowed:   true,
			Limit:     rule.MaxRequests,
			Remaining: rule.MaxRequests - 1,
			ResetIn:   rule.Window,
		}
	}

	if w.count >= rule.MaxRequests {
		return Result{
			Allowed:   false,
			Limit:     rule.MaxRequests,
			Remaining: 0,
			ResetIn:   w.resetAt.Sub(now),
		}
	}

	w.count++
	return Result{
		Allowed:   true,
		Limit:     rule.MaxRequests,
		Remaining: rule.MaxRequests - w.count,
		ResetIn:   w.resetAt.Sub(now),
	}
}

// GC drops windows whose reset time has passed. Callers run it periodically
// to bound memory; a client that stops requesting is eventually forgotten.
func (l *Limiter) GC() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
			dropped++
		}
	}
	return dropped
}

// RunGC calls GC on the given interval until stop is closed.
func (l *Limiter) RunGC(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.GC()
		case <-stop:
			return
		}
	}
}
