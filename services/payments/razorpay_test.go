package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "test_secret_key"
	orderID := "order_MkWq3r9pZ7aBcD"
	paymentID := "pay_NlXr4s0qA8bCdE"

	signature := signPayload(orderID, paymentID, secret)
	assert.True(t, VerifySignature(orderID, paymentID, signature, secret))
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	secret := "test_secret_key"
	signature := signPayload("order_abc", "pay_def", secret)

	assert.False(t, VerifySignature("order_abc", "pay_other", signature, secret), "different payment id")
	assert.False(t, VerifySignature("order_other", "pay_def", signature, secret), "different order id")
	assert.False(t, VerifySignature("order_abc", "pay_def", signature, "wrong_secret"), "different secret")
	assert.False(t, VerifySignature("order_abc", "pay_def", "deadbeef", secret), "garbage signature")
}

func TestVerifySignatureEmptyInputs(t *testing.T) {
	assert.False(t, VerifySignature("order_abc", "pay_def", "", "secret"))
	assert.False(t, VerifySignature("order_abc", "pay_def", "sig", ""))
}

func TestServiceDisabledWithoutKeys(t *testing.T) {
	s := NewService(nil, "", "")
	assert.False(t, s.Enabled())

	s = NewService(nil, "rzp_test_key", "secret")
	assert.True(t, s.Enabled())
}
