// Package scan issues and verifies the barcode tokens printed on picking
// sheets and scanned at delivery.
package scan

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/tulepito/pito-cloud-canteen-sub008/internal/pricing"
)

type Tokenizer struct {
	secret []byte
}

func NewTokenizer(secret string) *Tokenizer {
	return &Tokenizer{secret: []byte(secret)}
}

// Token derives the deterministic barcode for one member's pick on one day.
// The same (plan, member, date) tuple always yields the same token, so
// re-printed sheets stay scannable.
func (t *Tokenizer) Token(ref pricing.MemberRef) string {
	payload := ref.PlanID + ":" + ref.MemberID + ":" + ref.DateKey
	payloadB64 := base64UrlEncode([]byte(payload))
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(payloadB64))
	return payloadB64 + "." + base64UrlEncode(mac.Sum(nil))
}

// Verify checks a scanned token and returns the tuple it encodes.
func (t *Tokenizer) Verify(token string) (pricing.MemberRef, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return pricing.MemberRef{}, false
	}

	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(parts[0]))
	expected := mac.Sum(nil)

	actual, err := base64UrlDecode(parts[1])
	if err != nil || !hmac.Equal(actual, expected) {
		return pricing.MemberRef{}, false
	}

	payload, err := base64UrlDecode(parts[0])
	if err != nil {
		return pricing.MemberRef{}, false
	}
	fields := strings.SplitN(string(payload), ":", 3)
	if len(fields) != 3 {
		return pricing.MemberRef{}, false
	}
	return pricing.MemberRef{PlanID: fields[0], MemberID: fields[1], DateKey: fields[2]}, true
}

func base64UrlEncode(input []byte) string {
	return strings.TrimRight(base64.URLEncoding.EncodeToString(input), "=")
}

func base64UrlDecode(input string) ([]byte, error) {
	padded := input
	if m := len(input) % 4; m != 0 {
		padded += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(padded)
}
