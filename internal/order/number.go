package order

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateNumber produces a fresh order number: a two-letter prefix, the
// four-digit year and a six-digit zero-padded random sequence,
// e.g. CL2024003421. Uniqueness is enforced by the orders table.
func GenerateNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s%04d%06d", prefix, now.Year(), rand.Intn(1000000))
}
