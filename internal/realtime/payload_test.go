package realtime

import (
	"encoding/json"
	"testing"
)

func TestDecodeFrame(t *testing.T) {
	t.Run("send message field mapping", func(t *testing.T) {
		raw := json.RawMessage(`{"caseId":"case-1","message":"hello","date":"2026-02-01T10:00:00Z"}`)
		frame, err := decodeFrame[SendMessageFrame](raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if frame.CaseID != "case-1" || frame.Body != "hello" || frame.SentAt == nil {
			t.Fatalf("unexpected frame: %+v", frame)
		}
	})

	t.Run("date is optional", func(t *testing.T) {
		frame, err := decodeFrame[SendMessageFrame](json.RawMessage(`{"caseId":"case-1","message":"hi"}`))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if frame.SentAt != nil {
			t.Fatalf("expected nil SentAt, got %v", frame.SentAt)
		}
	})

	t.Run("missing data rejected", func(t *testing.T) {
		if _, err := decodeFrame[RoomFrame](nil); err == nil {
			t.Fatal("expected error for missing data")
		}
	})

	t.Run("malformed data rejected", func(t *testing.T) {
		if _, err := decodeFrame[RoomFrame](json.RawMessage(`{"caseId":7}`)); err == nil {
			t.Fatal("expected error for malformed data")
		}
	})
}

func TestValidateCaseID(t *testing.T) {
	if err := validateCaseID("case-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, bad := range []string{"", "   "} {
		if err := validateCaseID(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
