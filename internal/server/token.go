// token.go - HMAC-signed capability token codec.
//
// Encodes a purpose-tagged payload into URL-safe, expiring tokens and
// verifies them server-side. Tokens are self-contained: nothing is stored
// per link, the signature alone proves authenticity.
package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	errTokenMalformed = errors.New("malformed token")
	errBadSignature   = errors.New("invalid token signature")
	errTokenExpired   = errors.New("token expired")
)

// tokenPurpose scopes a token to exactly one flow. The purpose is part of
// the signed bytes, so a verification token can never be replayed as a
// download token.
type tokenPurpose string

const (
	purposeVerifyEmail  tokenPurpose = "verify-email"
	purposeDownloadFile tokenPurpose = "download-file"
)

func (p tokenPurpose) valid() bool {
	return p == purposeVerifyEmail || p == purposeDownloadFile
}

// tokenPayload is the structure embedded in every signed token. FileID is
// only set for download tokens. IssuedAt is filled in by encodeToken.
type tokenPayload struct {
	Purpose  tokenPurpose `json:"purpose"`
	UserID   string       `json:"user_id"`
	FileID   string       `json:"file_id,omitempty"`
	IssuedAt int64        `json:"iat"` // unix seconds
}

// encodeToken serializes the payload, stamps it with now, and returns a
// compact token: base64url(payload) + "." + base64url(sig) where
// sig = HMAC-SHA256(secret, payloadBytes). The payload is visible to the
// holder; only forgery is prevented.
func encodeToken(p tokenPayload, secret []byte, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("empty signing secret")
	}
	if !p.Purpose.valid() || p.UserID == "" {
		return "", errors.New("incomplete token payload")
	}

	p.IssuedAt = now.Unix()
	payload, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(payload)
	sig := mac.Sum(nil)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(sig), nil
}

// decodeToken verifies structure, signature and age, in that order, and
// returns the embedded payload. The signature check uses hmac.Equal, which
// compares in constant time.
func decodeToken(tok string, secret []byte, now time.Time, maxAge time.Duration) (tokenPayload, error) {
	var p tokenPayload

	if len(secret) == 0 {
		return p, errors.New("empty signing secret")
	}

	dot := strings.IndexByte(tok, '.')
	if dot <= 0 || dot >= len(tok)-1 {
		return p, errTokenMalformed
	}

	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(tok[:dot])
	if err != nil {
		return p, errTokenMalformed
	}
	sig, err := enc.DecodeString(tok[dot+1:])
	if err != nil {
		return p, errTokenMalformed
	}

	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(payload)
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return p, errBadSignature
	}

	if err := json.Unmarshal(payload, &p); err != nil {
		return p, errTokenMalformed
	}
	if !p.Purpose.valid() || p.IssuedAt == 0 {
		return p, errTokenMalformed
	}
	if _, err := uuid.Parse(p.UserID); err != nil {
		return p, errTokenMalformed
	}
	if p.Purpose == purposeDownloadFile {
		if _, err := uuid.Parse(p.FileID); err != nil {
			return p, errTokenMalformed
		}
	}

	if now.Sub(time.Unix(p.IssuedAt, 0)) > maxAge {
		return p, errTokenExpired
	}

	return p, nil
}
