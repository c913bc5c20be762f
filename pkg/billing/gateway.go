package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var utrPattern = regexp.MustCompile(`^\d{12}$`)

// Gateway holds the card gateway credentials used to verify checkout signatures
type Gateway struct {
	keyID     string
	keySecret []byte
}

// NewGateway creates a Gateway
func NewGateway(keyID, keySecret string) *Gateway {
	return &Gateway{keyID: keyID, keySecret: []byte(keySecret)}
}

// KeyID is the public key handed to the checkout widget
func (g *Gateway) KeyID() string {
	return g.keyID
}

// Sign computes the hex HMAC-SHA256 of "orderRef|paymentID"
func (g *Gateway) Sign(orderRef, paymentID string) string {
	mac := hmac.New(sha256.New, g.keySecret)
	mac.Write([]byte(orderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the order and payment.
// Missing inputs or an unset secret never verify.
func (g *Gateway) Verify(orderRef, paymentID, signature string) bool {
	if len(g.keySecret) == 0 || orderRef == "" || paymentID == "" || signature == "" {
		return false
	}
	expected := g.Sign(orderRef, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// ValidateUTR checks a UPI transaction reference
func ValidateUTR(utr string) error {
	if !utrPattern.MatchString(strings.TrimSpace(utr)) {
		return ErrInvalidReference
	}
	return nil
}
