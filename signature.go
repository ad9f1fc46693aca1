package issuesync

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
)

// verifySignature checks the HMAC-SHA256 signature GitHub sends in the
// X-Hub-Signature-256 header against the raw request body. The body
// must be the exact bytes received; re-encoding it first invalidates
// the signature.
//
// A missing secret fails verification rather than skipping it.
func verifySignature(body []byte, signature, secret string, log *slog.Logger) bool {
	if secret == "" {
		log.Error("webhook secret was not loaded from settings")
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}
