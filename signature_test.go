package issuesync

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	log := discardLogger()
	body := []byte(`{"action":"opened","issue":{"number":5}}`)
	const secret = "It's a Secret to Everybody"

	require.True(t, verifySignature(body, sign(body, secret), secret, log))

	t.Run("MutatedBody", func(t *testing.T) {
		t.Parallel()
		signature := sign(body, secret)
		mutated := append([]byte(nil), body...)
		mutated[0] ^= 0x01
		require.False(t, verifySignature(mutated, signature, secret, log))
	})

	t.Run("MutatedSignature", func(t *testing.T) {
		t.Parallel()
		signature := []byte(sign(body, secret))
		signature[len(signature)-1] ^= 0x01
		require.False(t, verifySignature(body, string(signature), secret, log))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		t.Parallel()
		require.False(t, verifySignature(body, sign(body, "other"), secret, log))
	})

	t.Run("EmptySecretFailsClosed", func(t *testing.T) {
		t.Parallel()
		// No secret must never mean "skip verification", even for a
		// claim that would match an empty key.
		require.False(t, verifySignature(body, sign(body, ""), "", log))
		require.False(t, verifySignature(body, "sha256=", "", log))
	})

	t.Run("ExactBytes", func(t *testing.T) {
		t.Parallel()
		// A pretty-printed rendition of the same JSON has a different
		// signature. The verifier must be given the raw bytes.
		pretty := []byte("{\n  \"action\": \"opened\",\n  \"issue\": {\n    \"number\": 5\n  }\n}")
		require.False(t, verifySignature(pretty, sign(body, secret), secret, log))
	})
}
