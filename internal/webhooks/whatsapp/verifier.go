package whatsappwebhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/bairdservice/baird-backend/pkg/config"
)

const (
	// SignatureHeader carries the Cloud API body signature.
	SignatureHeader = "X-Hub-Signature-256"
	signaturePrefix = "sha256="
	subscribeMode   = "subscribe"
)

// Verifier authenticates inbound webhook calls.
type Verifier struct {
	secret      []byte
	verifyToken string
}

func NewVerifier(cfg config.WhatsAppConfig) *Verifier {
	return &Verifier{
		secret:      []byte(strings.TrimSpace(cfg.WebhookSecret)),
		verifyToken: strings.TrimSpace(cfg.WebhookVerifyToken),
	}
}

// Sign returns the signature header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether header is the HMAC-SHA256 signature of the exact raw
// body. A missing secret or header never verifies.
func (v *Verifier) Verify(rawBody []byte, header string) bool {
	if v == nil || len(v.secret) == 0 || header == "" {
		return false
	}
	expected := Sign(string(v.secret), rawBody)
	return hmac.Equal([]byte(expected), []byte(header))
}

// VerifyHandshake checks a subscription handshake and returns the challenge to echo.
func (v *Verifier) VerifyHandshake(mode, token, challenge string) (string, bool) {
	if v == nil || v.verifyToken == "" || mode != subscribeMode {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(v.verifyToken)) != 1 {
		return "", false
	}
	return challenge, true
}
