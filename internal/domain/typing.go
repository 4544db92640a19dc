package domain

// TypingSignal is a live-only presence event. It is never persisted and
// carries no ordering guarantee beyond last-write-wins per case and actor.
type TypingSignal struct {
	CaseID     string
	ActorName  string
	ActorClass ActorClass
}
