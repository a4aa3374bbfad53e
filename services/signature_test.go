package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsGenuineSignature(t *testing.T) {
	v := NewSignatureVerifier("topsecret")

	ok, err := v.Verify("order_abc", "pay_xyz", signPayload("topsecret", "order_abc", "pay_xyz"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	v := NewSignatureVerifier("topsecret")

	ok, err := v.Verify("order_abc", "pay_xyz", signPayload("topsecret", "order_abc", "pay_other"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.Verify("order_abc", "pay_xyz", "not-even-hex")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewSignatureVerifier("topsecret")

	ok, err := v.Verify("order_abc", "pay_xyz", signPayload("othersecret", "order_abc", "pay_xyz"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyFailsLoudlyWithoutSecret(t *testing.T) {
	v := NewSignatureVerifier("")

	ok, err := v.Verify("order_abc", "pay_xyz", signPayload("topsecret", "order_abc", "pay_xyz"))
	assert.ErrorIs(t, err, ErrSecretMissing)
	assert.False(t, ok)
}
