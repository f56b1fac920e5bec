// Package webhook implements Twitch EventSub webhook authenticity checks and
// payload decoding for the /webhook ingestion endpoint.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignaturePrefix tags the hashing algorithm in the signature header value.
const SignaturePrefix = "sha256="

// Signature computes the expected EventSub signature for a delivery:
// HMAC-SHA256(secret, message_id || timestamp || body), hex-encoded and
// prefixed with the algorithm tag. Pure function of its inputs.
func Signature(secret, messageID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether the provided signature header matches the
// one computed from the shared secret and the delivery headers/body. Any
// missing input yields false; comparison is constant-time.
func VerifySignature(secret, messageID, timestamp, provided string, body []byte) bool {
	if messageID == "" || timestamp == "" || provided == "" {
		return false
	}
	expected := Signature(secret, messageID, timestamp, body)
	return hmac.Equal([]byte(expected), []byte(provided))
}
