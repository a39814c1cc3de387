// replay.go - Replay policy for redeemed capability tokens.
//
// The codec alone cannot revoke a token, so deployments that want
// single-use download links plug a stricter policy in here. The default
// accepts repeats and lets expiry bound exposure.
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var errLinkAlreadyUsed = errors.New("link already used")

// replayPolicy decides whether a successfully decoded token may still be
// redeemed. Consume is called once per redeem attempt with the full token
// string.
type replayPolicy interface {
	Consume(token string, purpose tokenPurpose) error
}

// allowRepeat accepts every valid token until it expires.
type allowRepeat struct{}

func (allowRepeat) Consume(string, tokenPurpose) error { return nil }

// SingleUsePolicy tracks SHA-256 digests of consumed download tokens in
// memory. Entries live for the token max age; after that the codec rejects
// the token anyway, so the digest can be dropped. Email verification
// tokens pass through untouched since activation is naturally idempotent.
type SingleUsePolicy struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time // digest -> drop-after
	now  func() time.Time
}

func NewSingleUsePolicy(ttl time.Duration) *SingleUsePolicy {
	return &SingleUsePolicy{
		ttl:  ttl,
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (s *SingleUsePolicy) Consume(token string, purpose tokenPurpose) error {
	if purpose != purposeDownloadFile {
		return nil
	}

	sum := sha256.Sum256([]byte(token))
	key := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, dropAfter := range s.seen {
		if now.After(dropAfter) {
			delete(s.seen, k)
		}
	}

	if _, used := s.seen[key]; used {
		return errLinkAlreadyUsed
	}
	s.seen[key] = now.Add(s.ttl)
	return nil
}
