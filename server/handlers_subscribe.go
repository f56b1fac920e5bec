package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/viewers-leaderboard/db"
	"github.com/onnwee/viewers-leaderboard/telemetry"
	"github.com/onnwee/viewers-leaderboard/twitchapi"
)

const oauthStateTTL = 10 * time.Minute

// HandleSubscribe begins the user authorization-code flow that lets the
// service register a channel.chat.message subscription on the user's channel.
func (h *Handlers) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.cfg.ValidateWebhookReady(); err != nil {
		http.Error(w, "twitch credentials not configured", http.StatusServiceUnavailable)
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(buf)
	h.addOAuthState(state, time.Now().Add(oauthStateTTL))

	http.Redirect(w, r, h.oauthCfg.AuthCodeURL(state), http.StatusSeeOther)
}

// HandleSubscribeCallback completes the flow: exchanges the code, resolves the
// authorizing user, persists the token, and registers the EventSub
// subscription pointing at our /webhook.
func (h *Handlers) HandleSubscribeCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	log := telemetry.LoggerWithCorr(ctx)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.Warn("oauth authorization denied", slog.String("error", errParam))
		http.Error(w, "authorization denied", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || !h.takeOAuthState(state) {
		http.Error(w, "invalid or expired state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	tok, err := h.oauthCfg.Exchange(ctx, code)
	if err != nil {
		log.Error("oauth code exchange failed", slog.Any("err", err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	identity, err := h.validate(ctx, tok.AccessToken)
	if err != nil {
		log.Error("token validation failed", slog.Any("err", err))
		http.Error(w, "token validation failed", http.StatusBadGateway)
		return
	}

	scope := strings.Join(twitchapi.ScopesFromToken(tok), " ")
	if err := db.UpsertOAuthToken(ctx, h.db, "twitch", tok.AccessToken, tok.RefreshToken, tok.Expiry, scope); err != nil {
		log.Error("persist oauth token failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	callbackURL := h.cfg.AppBaseURL + "/webhook"
	err = h.eventsub.SubscribeChatMessages(ctx, identity.UserID, callbackURL, h.cfg.WebhookSecret)
	if err != nil {
		if errors.Is(err, twitchapi.ErrAlreadySubscribed) {
			log.Info("eventsub subscription already exists",
				slog.String("broadcaster_id", identity.UserID),
				slog.String("login", identity.Login))
			w.Header().Set("Content-Type", "text/plain")
			_, _ = fmt.Fprintln(w, "Already subscribed.")
			return
		}
		log.Error("eventsub subscribe failed", slog.Any("err", err),
			slog.String("broadcaster_id", identity.UserID))
		http.Error(w, "subscription failed", http.StatusBadGateway)
		return
	}

	telemetry.CountSubscriptionCreated()
	if err := db.SetKV(ctx, h.db, "eventsub_broadcaster_"+identity.UserID, identity.Login); err != nil {
		log.Warn("record subscription failed", slog.Any("err", err))
	}
	log.Info("eventsub subscription created",
		slog.String("broadcaster_id", identity.UserID),
		slog.String("login", identity.Login))

	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintln(w, "Subscription created.")
}
