package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrAlreadySubscribed is returned when Twitch reports an existing EventSub
// subscription for the same type/condition (HTTP 409). Callers present this
// as an idempotent "already set up" outcome, not a failure.
var ErrAlreadySubscribed = errors.New("eventsub subscription already exists")

// SubscribeChatMessages registers a webhook EventSub subscription for
// channel.chat.message events on the broadcaster's channel. The shared secret
// is the one the /webhook handler verifies signatures against. Any non-2xx
// response other than 409 is a fatal, non-retried failure.
func (hc *HelixClient) SubscribeChatMessages(ctx context.Context, broadcasterUserID, callbackURL, secret string) error {
	if broadcasterUserID == "" || callbackURL == "" || secret == "" {
		return fmt.Errorf("missing broadcaster id, callback URL, or secret")
	}
	payload := map[string]any{
		"type":    "channel.chat.message",
		"version": "1",
		"condition": map[string]string{
			"broadcaster_user_id": broadcasterUserID,
			"user_id":             broadcasterUserID,
		},
		"transport": map[string]string{
			"method":   "webhook",
			"callback": callbackURL,
			"secret":   secret,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitch.tv/helix/eventsub/subscriptions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	switch {
	case resp.StatusCode == http.StatusConflict:
		return ErrAlreadySubscribed
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("eventsub subscribe failed: %s: %s", resp.Status, string(b))
	}
	return nil
}
