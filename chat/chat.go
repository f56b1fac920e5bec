// Package chat runs an optional IRC presence bot. It keeps the service
// visible in the broadcaster's chat and logs traffic at debug level; scoring
// itself is driven entirely by EventSub deliveries.
package chat

import (
	"context"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/viewers-leaderboard/config"
)

// StartPresenceBot connects to the configured channel and blocks until the
// context is cancelled. The go-twitch-irc client reconnects on its own after
// transient failures.
func StartPresenceBot(ctx context.Context, cfg *config.Config) {
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Info("chat presence bot not configured; skipping", slog.Any("reason", err))
		return
	}

	client := twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken)

	client.OnConnect(func() {
		slog.Info("chat presence bot connected",
			slog.String("channel", cfg.TwitchChannel),
			slog.String("username", cfg.TwitchBotUsername))
	})
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		slog.Debug("chat message observed",
			slog.String("channel", msg.Channel),
			slog.String("user", msg.User.Name))
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		if err := client.Disconnect(); err != nil {
			slog.Debug("chat disconnect", slog.Any("err", err))
		}
		close(done)
	}()

	client.Join(cfg.TwitchChannel)
	if err := client.Connect(); err != nil && ctx.Err() == nil {
		slog.Error("twitch chat connect error", slog.Any("err", err))
	}
	<-done
}
