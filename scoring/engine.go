package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/telemetry"
	"github.com/onnwee/viewers-leaderboard/webhook"
)

// Cooldown is the minimum interval between score increments for the same
// viewer within a session. The threshold is inclusive: an event arriving
// exactly Cooldown after the last update accrues.
const Cooldown = 300 * time.Second

// ScoreStore is the write side of score persistence. *db.Store implements it.
type ScoreStore interface {
	UpsertChatScore(ctx context.Context, key db.ScoreKey, viewerUsername string, cooldown time.Duration) (db.ScoreOutcome, error)
}

// SessionResolver yields the broadcaster's current live session, if any.
type SessionResolver interface {
	Resolve(ctx context.Context, broadcasterID string) (*StreamSession, bool)
}

// Engine applies the accrual state machine to parsed chat events. It is the
// only writer of score records; the ranking aggregator only reads.
type Engine struct {
	Store    ScoreStore
	Resolver SessionResolver
	// CooldownOverride replaces the default Cooldown when > 0 (tests only).
	CooldownOverride time.Duration
}

func (e *Engine) cooldown() time.Duration {
	if e.CooldownOverride > 0 {
		return e.CooldownOverride
	}
	return Cooldown
}

// HandleChatMessage scores one chat-message event. sessionOverride, when
// non-nil, substitutes for stream resolution; the HTTP layer only supplies it
// outside production.
//
// Dropped events (self-messages, no resolvable session) and cooldown no-ops
// return nil: they are handled, not failed. Persistence errors are returned
// so the delivery is reported as failed and may be retried upstream.
func (e *Engine) HandleChatMessage(ctx context.Context, ev webhook.ChatMessageEvent, sessionOverride *StreamSession) error {
	if ev.ChatterUserID == ev.BroadcasterUserID {
		telemetry.CountEventDropped("self_message")
		slog.Debug("ignoring broadcaster self-message", slog.String("broadcaster_id", ev.BroadcasterUserID))
		return nil
	}

	session := sessionOverride
	if session == nil {
		var ok bool
		session, ok = e.Resolver.Resolve(ctx, ev.BroadcasterUserID)
		if !ok {
			telemetry.CountEventDropped("no_session")
			slog.Debug("no active session; dropping chat event",
				slog.String("broadcaster_id", ev.BroadcasterUserID),
				slog.String("chatter_id", ev.ChatterUserID))
			return nil
		}
	}

	key := db.ScoreKey{
		ViewerID:      ev.ChatterUserID,
		BroadcasterID: ev.BroadcasterUserID,
		Origin:        db.OriginChat,
		SessionKey:    session.Key(),
	}
	outcome, err := e.Store.UpsertChatScore(ctx, key, ev.ChatterUserName, e.cooldown())
	if err != nil {
		return fmt.Errorf("persist chat score: %w", err)
	}
	telemetry.CountScoreOutcome(outcome.String())
	slog.Debug("chat event scored",
		slog.String("outcome", outcome.String()),
		slog.String("broadcaster_id", ev.BroadcasterUserID),
		slog.String("chatter_id", ev.ChatterUserID),
		slog.String("session_key", key.SessionKey))
	return nil
}
