package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
)

// AcceptanceTokenBytes is the entropy of an acceptance token; the hex form is twice as long.
const AcceptanceTokenBytes = 16

var acceptanceTokenRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

// NewAcceptanceToken returns an unguessable lowercase hex token.
func NewAcceptanceToken() (string, error) {
	return newAcceptanceToken(rand.Reader)
}

func newAcceptanceToken(r io.Reader) (string, error) {
	buf := make([]byte, AcceptanceTokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generating acceptance token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsAcceptanceToken reports whether value has the shape produced by NewAcceptanceToken.
func IsAcceptanceToken(value string) bool {
	return acceptanceTokenRe.MatchString(value)
}
