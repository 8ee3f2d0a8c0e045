// Package revocation tracks tokens that were invalidated before their natural
// expiry. Entries are keyed by the SHA-256 of the token string and live only
// as long as the token itself would have.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Store is a concurrent deny-list of token strings.
type Store interface {
	// Revoke marks token as untrusted until expiresAt. Revoking the same token
	// again is a no-op apart from possibly extending the entry.
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Clear drops every entry.
	Clear(ctx context.Context) error
}

// Key returns the storage key for a token. Raw tokens are never stored.
func Key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
