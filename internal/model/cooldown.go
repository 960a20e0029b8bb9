package model

import (
	"sync"
	"time"
)

// ActorID is an opaque key identifying a requesting actor. The gate
// only needs equality on it, never ordering, so a synthetic ID works
// as well as a live session name.
type ActorID string

// CooldownGate rate-limits vend attempts per actor. It records the
// timestamp of each actor's last successful admission and denies
// attempts that arrive before the configured duration has elapsed.
//
// Records are created lazily on first admission and live for the
// machine's lifetime; a handful of actors per machine keeps the map
// small enough that eviction is not worth the bookkeeping.
type CooldownGate struct {
	mu       sync.Mutex
	duration time.Duration
	last     map[ActorID]time.Time
}

// NewCooldownGate creates a gate with the given cooldown duration.
// A zero or negative duration disables the gate entirely: every
// attempt is admitted and nothing is recorded.
func NewCooldownGate(duration time.Duration) *CooldownGate {
	return &CooldownGate{duration: duration}
}

// Duration returns the configured cooldown duration.
func (g *CooldownGate) Duration() time.Duration {
	return g.duration
}

// TryAdmit decides admission for actor at now and, when admitting,
// records now as the actor's last success in the same critical
// section. Two racing attempts by one actor can therefore never both
// observe "off cooldown". A denied attempt records nothing.
func (g *CooldownGate) TryAdmit(actor ActorID, now time.Time) bool {
	if g.duration <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[actor]; ok && now.Sub(last) < g.duration {
		return false
	}
	if g.last == nil {
		g.last = make(map[ActorID]time.Time)
	}
	g.last[actor] = now
	return true
}

// WouldAdmit reports whether TryAdmit would admit actor at now,
// without recording anything. Used for availability display; only
// the committing vend path may write the timestamp.
func (g *CooldownGate) WouldAdmit(actor ActorID, now time.Time) bool {
	if g.duration <= 0 {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[actor]
	return !ok || now.Sub(last) >= g.duration
}

// LastSuccess returns the actor's recorded last admission time.
// Returns zero time, false if the actor was never admitted.
func (g *CooldownGate) LastSuccess(actor ActorID) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[actor]
	return last, ok
}
