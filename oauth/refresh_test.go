package oauth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/oauth"
	"github.com/onnwee/viewers-leaderboard/testutil"
)

func TestRefresherRefreshesExpiringToken(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := fmt.Sprintf("twitch-test-%d", time.Now().UnixNano())
	// Token expiring inside the refresh window.
	if err := db.UpsertOAuthToken(ctx, database, provider, "old-access", "refresh-1", time.Now().Add(time.Minute), "user:read:chat"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	oauth.StartRefresher(ctx, database, provider, 30*time.Millisecond, time.Hour,
		func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			if refreshToken != "refresh-1" {
				t.Errorf("refresh token = %q, want refresh-1", refreshToken)
			}
			return "new-access", "refresh-2", time.Now().Add(time.Hour), "", nil
		})

	// Jittered scheduling: allow generous time for the first refresh.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		access, refresh, _, scope, err := db.GetOAuthToken(ctx, database, provider)
		if err != nil {
			t.Fatalf("read token: %v", err)
		}
		if access == "new-access" {
			if refresh != "refresh-2" {
				t.Errorf("refresh token = %q, want refresh-2", refresh)
			}
			// Empty scope from the refresh func keeps the stored scope.
			if scope != "user:read:chat" {
				t.Errorf("scope = %q, want preserved", scope)
			}
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("token was not refreshed before the deadline")
}

func TestRefresherSkipsTokenOutsideWindow(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := fmt.Sprintf("twitch-fresh-%d", time.Now().UnixNano())
	if err := db.UpsertOAuthToken(ctx, database, provider, "access", "refresh", time.Now().Add(24*time.Hour), ""); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	called := false
	oauth.StartRefresher(ctx, database, provider, 20*time.Millisecond, time.Minute,
		func(rctx context.Context, refreshToken string) (string, string, time.Time, string, error) {
			called = true
			return "", "", time.Time{}, "", nil
		})

	time.Sleep(300 * time.Millisecond)
	if called {
		t.Error("refresh func invoked for a token outside the refresh window")
	}
}
