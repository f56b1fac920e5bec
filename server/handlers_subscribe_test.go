package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/viewers-leaderboard/config"
	"github.com/onnwee/viewers-leaderboard/testutil"
	"github.com/onnwee/viewers-leaderboard/twitchapi"
)

type fakeSubscriber struct {
	err         error
	broadcaster string
	callback    string
}

func (f *fakeSubscriber) SubscribeChatMessages(ctx context.Context, broadcasterUserID, callbackURL, secret string) error {
	f.broadcaster = broadcasterUserID
	f.callback = callbackURL
	return f.err
}

func subscribeConfig() *config.Config {
	return &config.Config{
		TwitchClientID:      "client-id",
		TwitchClientSecret:  "client-secret",
		WebhookSecret:       "s3cret",
		SignatureValidation: true,
		AppBaseURL:          "https://app.example",
		Env:                 "dev",
	}
}

func TestHandleSubscribeRedirects(t *testing.T) {
	cfg := subscribeConfig()
	h := &Handlers{
		cfg:        cfg,
		oauthCfg:   twitchapi.OAuthConfig(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.AppBaseURL+"/webhook_subscribe_callback", cfg.TwitchScopes),
		stateStore: make(map[string]time.Time),
	}

	r := httptest.NewRequest(http.MethodGet, "/webhook_subscribe", nil)
	w := httptest.NewRecorder()
	h.HandleSubscribe(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if loc.Query().Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", loc.Query().Get("client_id"))
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("redirect carries no state")
	}
	if !h.takeOAuthState(state) {
		t.Error("issued state not accepted")
	}
	// Consumed: a replay must fail.
	if h.takeOAuthState(state) {
		t.Error("state accepted twice")
	}
}

func TestHandleSubscribeRefusesWithoutCredentials(t *testing.T) {
	h := &Handlers{cfg: &config.Config{}, stateStore: make(map[string]time.Time)}
	r := httptest.NewRequest(http.MethodGet, "/webhook_subscribe", nil)
	w := httptest.NewRecorder()
	h.HandleSubscribe(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHandleSubscribeCallbackRejects(t *testing.T) {
	cfg := subscribeConfig()

	tests := []struct {
		name     string
		query    string
		seed     string
		wantCode int
	}{
		{"authorization denied", "error=access_denied", "", http.StatusBadRequest},
		{"missing state", "code=abc", "", http.StatusBadRequest},
		{"unknown state", "code=abc&state=bogus", "", http.StatusBadRequest},
		{"missing code", "state=known", "known", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Handlers{cfg: cfg, stateStore: make(map[string]time.Time)}
			if tt.seed != "" {
				h.addOAuthState(tt.seed, time.Now().Add(time.Minute))
			}
			r := httptest.NewRequest(http.MethodGet, "/webhook_subscribe_callback?"+tt.query, nil)
			w := httptest.NewRecorder()
			h.HandleSubscribeCallback(w, r)
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleSubscribeCallbackExpiredState(t *testing.T) {
	h := &Handlers{cfg: subscribeConfig(), stateStore: make(map[string]time.Time)}
	h.addOAuthState("old", time.Now().Add(-time.Minute))
	r := httptest.NewRequest(http.MethodGet, "/webhook_subscribe_callback?code=abc&state=old", nil)
	w := httptest.NewRecorder()
	h.HandleSubscribeCallback(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

// Full callback flow against a mock token endpoint; needs Postgres for token
// persistence.
func TestHandleSubscribeCallbackFlow(t *testing.T) {
	database := testutil.SetupTestDB(t)

	mock := testutil.NewMockTwitchServer(t)
	mock.MockOAuthTokenResponse("user-access-token", 3600)

	cfg := subscribeConfig()
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.TwitchClientID,
		ClientSecret: cfg.TwitchClientSecret,
		RedirectURL:  cfg.AppBaseURL + "/webhook_subscribe_callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  mock.URL + "/oauth2/authorize",
			TokenURL: mock.URL + "/oauth2/token",
		},
	}

	tests := []struct {
		name     string
		subErr   error
		wantBody string
		wantCode int
	}{
		{"subscription created", nil, "Subscription created.", http.StatusOK},
		{"already subscribed", twitchapi.ErrAlreadySubscribed, "Already subscribed.", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubscriber{err: tt.subErr}
			h := &Handlers{
				db:       database,
				cfg:      cfg,
				oauthCfg: oauthCfg,
				eventsub: sub,
				validate: func(ctx context.Context, accessToken string) (*twitchapi.TokenValidation, error) {
					return &twitchapi.TokenValidation{UserID: "111", Login: "streamer"}, nil
				},
				stateStore: make(map[string]time.Time),
			}
			h.addOAuthState("st", time.Now().Add(time.Minute))

			r := httptest.NewRequest(http.MethodGet, "/webhook_subscribe_callback?code=abc&state=st", nil)
			w := httptest.NewRecorder()
			h.HandleSubscribeCallback(w, r)

			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
			if sub.broadcaster != "111" {
				t.Errorf("subscribed broadcaster = %q, want 111", sub.broadcaster)
			}
			if sub.callback != "https://app.example/webhook" {
				t.Errorf("callback = %q", sub.callback)
			}
		})
	}
}
