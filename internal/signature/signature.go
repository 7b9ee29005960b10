// Package signature checks the HMAC a payment provider attaches to a
// completed payment.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns hex(HMAC-SHA256(secret, orderRef + "|" + paymentRef)).
func Sign(orderRef, paymentRef, secret string) string {
	return hex.EncodeToString(mac(orderRef, paymentRef, secret))
}

// Verify reports whether sig is exactly the lowercase hex signature of
// orderRef and paymentRef under secret. The comparison is constant time.
func Verify(orderRef, paymentRef, sig, secret string) bool {
	return hmac.Equal([]byte(sig), []byte(Sign(orderRef, paymentRef, secret)))
}

func mac(orderRef, paymentRef, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderRef + "|" + paymentRef))
	return h.Sum(nil)
}

// Verifier binds the provider secret so callers only pass the references.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier for secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Sign signs orderRef and paymentRef with the bound secret.
func (v *Verifier) Sign(orderRef, paymentRef string) string {
	return Sign(orderRef, paymentRef, v.secret)
}

// Verify checks sig against the bound secret.
func (v *Verifier) Verify(orderRef, paymentRef, sig string) bool {
	return Verify(orderRef, paymentRef, sig, v.secret)
}
