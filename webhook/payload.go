package webhook

import (
	"encoding/json"
	"fmt"
)

// EventSub delivery headers.
const (
	HeaderMessageID        = "Twitch-Eventsub-Message-Id"
	HeaderMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	HeaderMessageSignature = "Twitch-Eventsub-Message-Signature"
	HeaderMessageType      = "Twitch-Eventsub-Message-Type"
)

// Message type discriminator values.
const (
	MessageTypeVerification = "webhook_callback_verification"
	MessageTypeNotification = "notification"
	MessageTypeRevocation   = "revocation"
)

// Subscription echoes the subscription block Twitch includes in every delivery.
type Subscription struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Cost      int               `json:"cost"`
	Condition map[string]string `json:"condition"`
	CreatedAt string            `json:"created_at"`
}

// ChatMessageEvent is the event body of a channel.chat.message notification.
type ChatMessageEvent struct {
	BroadcasterUserID   string `json:"broadcaster_user_id"`
	BroadcasterUserName string `json:"broadcaster_user_name"`
	ChatterUserID       string `json:"chatter_user_id"`
	ChatterUserName     string `json:"chatter_user_name"`
}

// ChallengePayload is the subscription handshake; its challenge nonce must be
// echoed back verbatim as plain text.
type ChallengePayload struct {
	Subscription Subscription `json:"subscription"`
	Challenge    string       `json:"challenge"`
}

// ChatMessagePayload is a chat-message notification delivery.
type ChatMessagePayload struct {
	Subscription Subscription     `json:"subscription"`
	Event        ChatMessageEvent `json:"event"`
}

// Payload is the tagged variant of the two delivery shapes. Exactly one of
// Challenge/ChatMessage is non-nil after a successful ParsePayload.
type Payload struct {
	Challenge   *ChallengePayload
	ChatMessage *ChatMessagePayload
}

// ParsePayload decodes body according to the message-type header. Unknown
// notification subscription types and revocations decode to an empty Payload
// (both nil) so callers can acknowledge and ignore them.
func ParsePayload(messageType string, body []byte) (Payload, error) {
	switch messageType {
	case MessageTypeVerification:
		var p ChallengePayload
		if err := json.Unmarshal(body, &p); err != nil {
			return Payload{}, fmt.Errorf("decode challenge payload: %w", err)
		}
		if p.Challenge == "" {
			return Payload{}, fmt.Errorf("challenge payload missing challenge")
		}
		return Payload{Challenge: &p}, nil
	case MessageTypeNotification:
		var probe struct {
			Subscription Subscription `json:"subscription"`
		}
		if err := json.Unmarshal(body, &probe); err != nil {
			return Payload{}, fmt.Errorf("decode notification envelope: %w", err)
		}
		if probe.Subscription.Type != "channel.chat.message" {
			return Payload{}, nil
		}
		var p ChatMessagePayload
		if err := json.Unmarshal(body, &p); err != nil {
			return Payload{}, fmt.Errorf("decode chat message payload: %w", err)
		}
		return Payload{ChatMessage: &p}, nil
	case MessageTypeRevocation:
		return Payload{}, nil
	default:
		return Payload{}, fmt.Errorf("unknown eventsub message type %q", messageType)
	}
}
