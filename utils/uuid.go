package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new unique identifier string. Identifiers are
// time-ordered (UUIDv7) so that sorted iteration over ledger records follows
// creation order.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does; a random v4 still
		// satisfies uniqueness.
		return uuid.NewString()
	}
	return id.String()
}
