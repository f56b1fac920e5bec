// Package scoring turns verified chat events into score accrual: it resolves
// the live stream session for a broadcaster and applies the dedupe/cooldown
// state machine against the score store.
package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// StreamSession identifies one live broadcast instance. Sessions are derived
// on demand and never persisted; two resolutions of the same live stream
// always agree because the key is content-addressed.
type StreamSession struct {
	BroadcasterID string
	StartedAt     time.Time
}

// Key returns the deterministic session key:
// sha256(broadcaster_id + "_" + started_at) with the start time rendered as
// RFC3339 UTC. Stable across restarts and instances; no salt.
func (s StreamSession) Key() string {
	sum := sha256.Sum256([]byte(s.BroadcasterID + "_" + s.StartedAt.UTC().Format(time.RFC3339)))
	return hex.EncodeToString(sum[:])
}
