package presence

import (
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/support-chat-service/internal/domain"
)

type expiryRecorder struct {
	mu      sync.Mutex
	signals []domain.TypingSignal
	notify  chan struct{}
}

func newExpiryRecorder() *expiryRecorder {
	return &expiryRecorder{notify: make(chan struct{}, 16)}
}

func (r *expiryRecorder) record(signal domain.TypingSignal) {
	r.mu.Lock()
	r.signals = append(r.signals, signal)
	r.mu.Unlock()
	r.notify <- struct{}{}
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

func (r *expiryRecorder) waitOne(t *testing.T) domain.TypingSignal {
	t.Helper()
	select {
	case <-r.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for typing expiry")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.signals[len(r.signals)-1]
}

func TestTypingTracker(t *testing.T) {
	signal := domain.TypingSignal{CaseID: "case-1", ActorName: "Jane Doe", ActorClass: domain.ActorClassCustomer}

	t.Run("expires idle signals", func(t *testing.T) {
		recorder := newExpiryRecorder()
		tracker := NewTypingTracker(20*time.Millisecond, recorder.record)
		defer tracker.Close()

		tracker.Start(signal)
		expired := recorder.waitOne(t)
		if expired != signal {
			t.Fatalf("expected %+v, got %+v", signal, expired)
		}
		if actors := tracker.ActiveIn("case-1"); len(actors) != 0 {
			t.Fatalf("expected empty room after expiry, got %v", actors)
		}
	})

	t.Run("restart re-arms the timer", func(t *testing.T) {
		recorder := newExpiryRecorder()
		tracker := NewTypingTracker(60*time.Millisecond, recorder.record)
		defer tracker.Close()

		tracker.Start(signal)
		for i := 0; i < 3; i++ {
			time.Sleep(30 * time.Millisecond)
			tracker.Start(signal)
			if recorder.count() != 0 {
				t.Fatal("signal expired despite re-arming")
			}
		}
		recorder.waitOne(t)
	})

	t.Run("stop suppresses expiry", func(t *testing.T) {
		recorder := newExpiryRecorder()
		tracker := NewTypingTracker(20*time.Millisecond, recorder.record)
		defer tracker.Close()

		tracker.Start(signal)
		if !tracker.Stop("case-1", "Jane Doe") {
			t.Fatal("expected stop to report an active signal")
		}
		if tracker.Stop("case-1", "Jane Doe") {
			t.Fatal("second stop should report nothing active")
		}
		time.Sleep(60 * time.Millisecond)
		if recorder.count() != 0 {
			t.Fatal("expiry fired after explicit stop")
		}
	})

	t.Run("tracks actors per case", func(t *testing.T) {
		tracker := NewTypingTracker(time.Minute, nil)
		defer tracker.Close()

		tracker.Start(signal)
		tracker.Start(domain.TypingSignal{CaseID: "case-1", ActorName: "Agent", ActorClass: domain.ActorClassStaff})
		tracker.Start(domain.TypingSignal{CaseID: "case-2", ActorName: "Other", ActorClass: domain.ActorClassCustomer})

		if actors := tracker.ActiveIn("case-1"); len(actors) != 2 {
			t.Fatalf("expected 2 actors in case-1, got %v", actors)
		}
		if actors := tracker.ActiveIn("case-2"); len(actors) != 1 {
			t.Fatalf("expected 1 actor in case-2, got %v", actors)
		}
	})

	t.Run("close drops everything", func(t *testing.T) {
		recorder := newExpiryRecorder()
		tracker := NewTypingTracker(20*time.Millisecond, recorder.record)
		tracker.Start(signal)
		tracker.Close()
		time.Sleep(60 * time.Millisecond)
		if recorder.count() != 0 {
			t.Fatal("expiry fired after close")
		}
	})
}
