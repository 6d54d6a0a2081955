// Package idgen allocates opaque 128-bit identifiers (§3 ClientId, and
// the server's internal GameId) from a single place. The identifier type
// itself is uuid.UUID, which pkg/server also names directly.
package idgen

import "github.com/google/uuid"

// New returns a fresh random identifier.
func New() uuid.UUID {
	return uuid.New()
}
