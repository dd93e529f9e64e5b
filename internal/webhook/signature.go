package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Sign returns the hex-encoded HMAC-SHA256 of body keyed by secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of payload
// under secret. Both sides are reduced to fixed-size digests before the
// constant-time compare so a length mismatch takes the same path as a
// content mismatch.
func VerifySignature(payload []byte, signature, secret string) bool {
	expected := sha256.Sum256([]byte(Sign(secret, payload)))
	provided := sha256.Sum256([]byte(signature))
	return subtle.ConstantTimeCompare(expected[:], provided[:]) == 1
}
