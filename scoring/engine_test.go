package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/webhook"
)

type fakeScoreStore struct {
	outcome db.ScoreOutcome
	err     error
	calls   []db.ScoreKey
}

func (f *fakeScoreStore) UpsertChatScore(ctx context.Context, key db.ScoreKey, viewerUsername string, cooldown time.Duration) (db.ScoreOutcome, error) {
	f.calls = append(f.calls, key)
	return f.outcome, f.err
}

type fakeResolver struct {
	session *StreamSession
}

func (f *fakeResolver) Resolve(ctx context.Context, broadcasterID string) (*StreamSession, bool) {
	return f.session, f.session != nil
}

func TestEngineHandleChatMessage(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	live := &StreamSession{BroadcasterID: "111", StartedAt: started}
	ev := webhook.ChatMessageEvent{
		BroadcasterUserID: "111",
		ChatterUserID:     "222",
		ChatterUserName:   "viewer",
	}

	t.Run("first event persists with session key", func(t *testing.T) {
		store := &fakeScoreStore{outcome: db.ScoreCreated}
		e := &Engine{Store: store, Resolver: &fakeResolver{session: live}}
		if err := e.HandleChatMessage(context.Background(), ev, nil); err != nil {
			t.Fatalf("HandleChatMessage() error = %v", err)
		}
		if len(store.calls) != 1 {
			t.Fatalf("store called %d times, want 1", len(store.calls))
		}
		got := store.calls[0]
		if got.ViewerID != "222" || got.BroadcasterID != "111" || got.Origin != db.OriginChat {
			t.Errorf("score key = %+v", got)
		}
		if got.SessionKey != live.Key() {
			t.Errorf("session key = %q, want %q", got.SessionKey, live.Key())
		}
	})

	t.Run("self message never scores", func(t *testing.T) {
		store := &fakeScoreStore{outcome: db.ScoreCreated}
		e := &Engine{Store: store, Resolver: &fakeResolver{session: live}}
		self := webhook.ChatMessageEvent{BroadcasterUserID: "111", ChatterUserID: "111"}
		if err := e.HandleChatMessage(context.Background(), self, nil); err != nil {
			t.Fatalf("HandleChatMessage() error = %v", err)
		}
		if len(store.calls) != 0 {
			t.Errorf("store called for self-message")
		}
	})

	t.Run("no session drops event", func(t *testing.T) {
		store := &fakeScoreStore{outcome: db.ScoreCreated}
		e := &Engine{Store: store, Resolver: &fakeResolver{}}
		if err := e.HandleChatMessage(context.Background(), ev, nil); err != nil {
			t.Fatalf("HandleChatMessage() error = %v", err)
		}
		if len(store.calls) != 0 {
			t.Errorf("store called without a session")
		}
	})

	t.Run("persistence error propagates", func(t *testing.T) {
		store := &fakeScoreStore{err: errors.New("db down")}
		e := &Engine{Store: store, Resolver: &fakeResolver{session: live}}
		if err := e.HandleChatMessage(context.Background(), ev, nil); err == nil {
			t.Error("HandleChatMessage() error = nil, want persistence error")
		}
	})

	t.Run("session override bypasses resolver", func(t *testing.T) {
		store := &fakeScoreStore{outcome: db.ScoreCreated}
		e := &Engine{Store: store, Resolver: &fakeResolver{}} // resolver would drop
		override := &StreamSession{BroadcasterID: "111", StartedAt: started.Add(time.Hour)}
		if err := e.HandleChatMessage(context.Background(), ev, override); err != nil {
			t.Fatalf("HandleChatMessage() error = %v", err)
		}
		if len(store.calls) != 1 || store.calls[0].SessionKey != override.Key() {
			t.Errorf("override session not used: %+v", store.calls)
		}
	})

	t.Run("rate limited outcome is not an error", func(t *testing.T) {
		store := &fakeScoreStore{outcome: db.ScoreRateLimited}
		e := &Engine{Store: store, Resolver: &fakeResolver{session: live}}
		if err := e.HandleChatMessage(context.Background(), ev, nil); err != nil {
			t.Fatalf("HandleChatMessage() error = %v", err)
		}
	})
}
