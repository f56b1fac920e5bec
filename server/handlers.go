// HTTP handler dependencies and wiring.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/onnwee/viewers-leaderboard/config"
	dbpkg "github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/ranking"
	"github.com/onnwee/viewers-leaderboard/scoring"
	"github.com/onnwee/viewers-leaderboard/twitchapi"
	"github.com/onnwee/viewers-leaderboard/webhook"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// chatScorer is the slice of the scoring engine the webhook handler needs.
type chatScorer interface {
	HandleChatMessage(ctx context.Context, ev webhook.ChatMessageEvent, sessionOverride *scoring.StreamSession) error
}

// ranker is the slice of the aggregator the ranking handler needs.
type ranker interface {
	Rank(ctx context.Context, broadcasterID string) ([]ranking.Row, error)
}

// subscriber registers EventSub subscriptions.
type subscriber interface {
	SubscribeChatMessages(ctx context.Context, broadcasterUserID, callbackURL, secret string) error
}

// tokenValidator resolves the identity bound to a user access token.
type tokenValidator func(ctx context.Context, accessToken string) (*twitchapi.TokenValidation, error)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db         *sql.DB
	cfg        *config.Config
	scorer     chatScorer
	ranker     ranker
	eventsub   subscriber
	validate   tokenValidator
	oauthCfg   *oauth2.Config
	overrides  OverrideParser
	stateStore map[string]time.Time
	stateMu    sync.RWMutex
}

// NewHandlers creates a Handlers instance with production wiring: Helix-backed
// stream resolution and enrichment, Postgres-backed scoring, and the dev
// override parser only outside production.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	ts := &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
	helix := &twitchapi.HelixClient{AppTokenSource: ts, ClientID: cfg.TwitchClientID}
	store := &dbpkg.Store{DB: db}

	var overrides OverrideParser = DisabledOverrides{}
	if !cfg.IsProduction() {
		overrides = DevOverrides{}
	}

	return &Handlers{
		db:  db,
		cfg: cfg,
		scorer: &scoring.Engine{
			Store:    store,
			Resolver: &scoring.Resolver{Streams: helix},
		},
		ranker: &ranking.Aggregator{
			Sums:  store,
			Users: helix,
		},
		eventsub: helix,
		validate: func(vctx context.Context, accessToken string) (*twitchapi.TokenValidation, error) {
			return twitchapi.ValidateUserToken(vctx, http.DefaultClient, "", accessToken)
		},
		oauthCfg:   twitchapi.OAuthConfig(cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.AppBaseURL+"/webhook_subscribe_callback", cfg.TwitchScopes),
		overrides:  overrides,
		stateStore: make(map[string]time.Time),
	}
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
func (h *Handlers) addOAuthState(state string, expiry time.Time) {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()

	// Clean expired states periodically to prevent unbounded growth
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}

	// Refusing to add beyond the cap fails the OAuth flow, which beats
	// unbounded memory growth.
	if len(h.stateStore) >= maxOAuthStates {
		return
	}

	h.stateStore[state] = expiry
}

// takeOAuthState validates and consumes a state value; returns false when
// unknown or expired.
func (h *Handlers) takeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	if !ok {
		return false
	}
	delete(h.stateStore, state)
	return !time.Now().After(exp)
}
