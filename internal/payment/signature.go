package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Signer produces and checks the hex HMAC-SHA256 of "order_id|status", with
// order_id exactly as the provider sent it.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) Sign(orderID, status string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s", orderID, status)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time against the lowercase hex digest.
func (s *Signer) Verify(orderID, status, signature string) bool {
	expected := s.Sign(orderID, status)
	return hmac.Equal([]byte(expected), []byte(signature))
}
