package bridge

import (
	"strings"

	"github.com/google/uuid"
)

// IDGenerator produces unique string identifiers.
type IDGenerator func() string

// UUIDv7 returns time-sortable RFC 9562 identifiers. Used for operation ids.
func UUIDv7() IDGenerator {
	return func() string {
		id, err := uuid.NewV7()
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	}
}

// ShortID returns the first n hex characters of a random UUID. Used for the
// suffix of error codes.
func ShortID(n int) IDGenerator {
	if n <= 0 || n > 32 {
		n = 8
	}
	return func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
	}
}

func (g IDGenerator) next() string {
	if g == nil {
		return UUIDv7()()
	}
	return g()
}
