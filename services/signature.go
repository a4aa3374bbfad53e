package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrSecretMissing indicates the gateway secret is not configured. Verification
// must fail loudly in that case, never silently accept or reject.
var ErrSecretMissing = errors.New("payment secret not configured")

// SignatureVerifier is the sole authority on whether a payment callback is
// genuine. The client-reported success handler is never trusted on its own.
type SignatureVerifier struct {
	secret string
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: secret}
}

// Verify recomputes HMAC-SHA256 over "<gatewayOrderID>|<gatewayPaymentID>" and
// compares it against the claimed signature in constant time.
func (v *SignatureVerifier) Verify(gatewayOrderID, gatewayPaymentID, claimed string) (bool, error) {
	if v.secret == "" {
		return false, ErrSecretMissing
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(claimed)), nil
}
