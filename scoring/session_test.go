package scoring

import (
	"testing"
	"time"
)

func TestStreamSessionKey(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := StreamSession{BroadcasterID: "111", StartedAt: started}

	if got, again := s.Key(), s.Key(); got != again {
		t.Errorf("Key() not deterministic: %q vs %q", got, again)
	}
	if len(s.Key()) != 64 {
		t.Errorf("Key() length = %d, want 64 hex chars", len(s.Key()))
	}

	other := StreamSession{BroadcasterID: "222", StartedAt: started}
	if s.Key() == other.Key() {
		t.Error("sessions for different broadcasters share a key")
	}

	restarted := StreamSession{BroadcasterID: "111", StartedAt: started.Add(time.Hour)}
	if s.Key() == restarted.Key() {
		t.Error("sessions with different start times share a key")
	}
}

func TestStreamSessionKeyNormalizesTimezone(t *testing.T) {
	utc := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	est := utc.In(time.FixedZone("EST", -5*3600))
	a := StreamSession{BroadcasterID: "111", StartedAt: utc}
	b := StreamSession{BroadcasterID: "111", StartedAt: est}
	if a.Key() != b.Key() {
		t.Error("equal instants in different zones produce different keys")
	}
}
