package presence

import (
	"sync"
	"time"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

type typingKey struct {
	caseID string
	actor  string
}

// ExpireFunc is invoked when a typing signal times out without an
// explicit stop from the client.
type ExpireFunc func(signal domain.TypingSignal)

// TypingTracker holds ephemeral per-case typing state. Signals auto-expire
// after the configured idle window so a crashed client cannot leave a
// permanent typing indicator. Nothing here is persisted.
type TypingTracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	active   map[typingKey]*time.Timer
	classes  map[typingKey]domain.ActorClass
	onExpire ExpireFunc
	closed   bool
}

// NewTypingTracker builds a tracker with the given idle window.
func NewTypingTracker(ttl time.Duration, onExpire ExpireFunc) *TypingTracker {
	if ttl <= 0 {
		ttl = 6 * time.Second
	}
	return &TypingTracker{
		ttl:      ttl,
		active:   make(map[typingKey]*time.Timer),
		classes:  make(map[typingKey]domain.ActorClass),
		onExpire: onExpire,
	}
}

// Start records a typing signal, re-arming the expiry timer if the actor
// is already typing. Last write wins per (caseID, actorName).
func (t *TypingTracker) Start(signal domain.TypingSignal) {
	key := typingKey{caseID: signal.CaseID, actor: signal.ActorName}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	if timer, ok := t.active[key]; ok {
		timer.Reset(t.ttl)
		t.classes[key] = signal.ActorClass
		return
	}
	t.classes[key] = signal.ActorClass
	t.active[key] = time.AfterFunc(t.ttl, func() {
		t.expire(key)
	})
}

// Stop clears a typing signal. It reports whether the actor was actually
// typing, so callers can suppress redundant stop broadcasts.
func (t *TypingTracker) Stop(caseID, actorName string) bool {
	key := typingKey{caseID: caseID, actor: actorName}

	t.mu.Lock()
	defer t.mu.Unlock()
	timer, ok := t.active[key]
	if !ok {
		return false
	}
	timer.Stop()
	delete(t.active, key)
	delete(t.classes, key)
	return true
}

// ActiveIn lists actors currently typing in a case.
func (t *TypingTracker) ActiveIn(caseID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var actors []string
	for key := range t.active {
		if key.caseID == caseID {
			actors = append(actors, key.actor)
		}
	}
	return actors
}

// Close stops all timers. Used on shutdown.
func (t *TypingTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for key, timer := range t.active {
		timer.Stop()
		delete(t.active, key)
		delete(t.classes, key)
	}
}

func (t *TypingTracker) expire(key typingKey) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if _, ok := t.active[key]; !ok {
		t.mu.Unlock()
		return
	}
	class := t.classes[key]
	delete(t.active, key)
	delete(t.classes, key)
	onExpire := t.onExpire
	t.mu.Unlock()

	if onExpire != nil {
		onExpire(domain.TypingSignal{CaseID: key.caseID, ActorName: key.actor, ActorClass: class})
	}
}
