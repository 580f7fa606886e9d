// Package token implements the event token handed to the client collector
// script. Tokens are HMAC-signed over (script_id, expiry, nonce) so intake
// can reject spoofed beacons without a round trip to any auth service.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Token is one issued event token. The short field names (gx/gn/gs) match
// the wire format the collector script submits.
type Token struct {
	Exp   int64  `json:"gx,string"`
	Nonce string `json:"gn"`
	Sig   string `json:"gs"`
}

// Signer issues and verifies event tokens for a shared secret.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL returns the configured token lifetime.
func (s *Signer) TTL() time.Duration {
	return s.ttl
}

// Issue creates a fresh token for the script ID.
func (s *Signer) Issue(scriptID string, now time.Time) (Token, error) {
	nonce, err := newNonce()
	if err != nil {
		return Token{}, fmt.Errorf("generate nonce: %w", err)
	}

	exp := now.Add(s.ttl).Unix()
	return Token{
		Exp:   exp,
		Nonce: nonce,
		Sig:   s.sign(scriptID, exp, nonce),
	}, nil
}

// Verify checks an incoming token. Expiry is parsed from the raw wire value;
// any parse failure, expired token or signature mismatch fails verification.
func (s *Signer) Verify(scriptID, expRaw, nonce, sig string, now time.Time) bool {
	if expRaw == "" || nonce == "" || sig == "" {
		return false
	}

	exp, err := strconv.ParseInt(expRaw, 10, 64)
	if err != nil {
		return false
	}
	if exp < now.Unix() {
		return false
	}

	expected := s.sign(scriptID, exp, nonce)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(scriptID string, exp int64, nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d:%s", scriptID, exp, nonce)
	return hex.EncodeToString(mac.Sum(nil))
}

func newNonce() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
