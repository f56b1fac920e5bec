package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/viewers-leaderboard/twitchapi"
)

// StreamLookup is the slice of the Helix client the resolver needs.
type StreamLookup interface {
	GetStreams(ctx context.Context, broadcasterID string) ([]twitchapi.Stream, error)
}

// Resolver derives the current live session of a broadcaster from the stream
// status provider. Lookup failures and ambiguous results surface as absent,
// never as errors: the caller drops the event rather than queueing it.
type Resolver struct {
	Streams StreamLookup
	// Timeout bounds each lookup; defaults to 5s.
	Timeout time.Duration
}

// Resolve returns the broadcaster's current live session, or ok=false when
// the broadcaster is offline, the result is ambiguous, or the lookup fails.
// No retry is performed at this layer.
func (r *Resolver) Resolve(ctx context.Context, broadcasterID string) (*StreamSession, bool) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	streams, err := r.Streams.GetStreams(ctx, broadcasterID)
	if err != nil {
		slog.Debug("stream lookup failed; treating as no active session",
			slog.String("broadcaster_id", broadcasterID), slog.Any("err", err))
		return nil, false
	}
	if len(streams) != 1 {
		return nil, false
	}
	return &StreamSession{
		BroadcasterID: broadcasterID,
		StartedAt:     streams[0].StartedAt.UTC(),
	}, true
}
