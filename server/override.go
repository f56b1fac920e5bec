package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/onnwee/viewers-leaderboard/scoring"
)

// Stream override headers, honored only outside production. They pin the
// session used for scoring without a Helix lookup.
const (
	HeaderOverrideBroadcasterID = "X-Stream-Override-Broadcaster-Id"
	HeaderOverrideStartedAt     = "X-Stream-Override-Started-At"
)

// OverrideParser extracts a session override from webhook request headers.
// A nil session with nil error means no override was requested.
type OverrideParser interface {
	Parse(r *http.Request) (*scoring.StreamSession, error)
}

// DisabledOverrides ignores override headers entirely. Installed in
// production so the headers cannot influence scoring.
type DisabledOverrides struct{}

func (DisabledOverrides) Parse(*http.Request) (*scoring.StreamSession, error) { return nil, nil }

// DevOverrides honors the override headers. Both must be present together and
// the timestamp must be RFC3339.
type DevOverrides struct{}

func (DevOverrides) Parse(r *http.Request) (*scoring.StreamSession, error) {
	broadcasterID := r.Header.Get(HeaderOverrideBroadcasterID)
	startedAtRaw := r.Header.Get(HeaderOverrideStartedAt)
	if broadcasterID == "" && startedAtRaw == "" {
		return nil, nil
	}
	if broadcasterID == "" || startedAtRaw == "" {
		return nil, fmt.Errorf("stream override requires both %s and %s", HeaderOverrideBroadcasterID, HeaderOverrideStartedAt)
	}
	startedAt, err := time.Parse(time.RFC3339, startedAtRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", HeaderOverrideStartedAt, err)
	}
	return &scoring.StreamSession{BroadcasterID: broadcasterID, StartedAt: startedAt}, nil
}
