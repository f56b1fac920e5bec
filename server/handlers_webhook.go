package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/onnwee/viewers-leaderboard/telemetry"
	"github.com/onnwee/viewers-leaderboard/webhook"
)

// maxWebhookBody caps the request body read. EventSub deliveries are small;
// anything larger is not a legitimate delivery.
const maxWebhookBody = 1 << 20

// HandleWebhook ingests EventSub deliveries: the challenge handshake, chat
// message notifications, and revocations. Signature verification happens
// before any payload decoding.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	log := telemetry.LoggerWithCorr(ctx)

	telemetry.TimeFunc(telemetry.WebhookHandleDuration, func() {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		messageID := r.Header.Get(webhook.HeaderMessageID)
		timestamp := r.Header.Get(webhook.HeaderMessageTimestamp)
		signature := r.Header.Get(webhook.HeaderMessageSignature)
		messageType := r.Header.Get(webhook.HeaderMessageType)

		if h.cfg.SignatureValidation {
			if !webhook.VerifySignature(h.cfg.WebhookSecret, messageID, timestamp, signature, body) {
				telemetry.CountSignatureRejection()
				log.Warn("webhook signature rejected",
					slog.String("message_id", messageID),
					slog.String("type", messageType))
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}
		}

		telemetry.CountDelivery(messageType)

		payload, err := webhook.ParsePayload(messageType, body)
		if err != nil {
			log.Warn("webhook payload rejected", slog.Any("err", err), slog.String("type", messageType))
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}

		switch {
		case payload.Challenge != nil:
			log.Info("eventsub challenge answered",
				slog.String("subscription_id", payload.Challenge.Subscription.ID),
				slog.String("subscription_type", payload.Challenge.Subscription.Type))
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(payload.Challenge.Challenge))
			return

		case payload.ChatMessage != nil:
			override, err := h.overrides.Parse(r)
			if err != nil {
				log.Warn("invalid stream override", slog.Any("err", err))
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if err := h.scorer.HandleChatMessage(ctx, payload.ChatMessage.Event, override); err != nil {
				log.Error("chat event scoring failed", slog.Any("err", err),
					slog.String("message_id", messageID))
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

		default:
			// Revocations and unknown subscription types: acknowledge and ignore.
			log.Info("eventsub delivery ignored", slog.String("type", messageType))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
