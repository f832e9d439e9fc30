package order_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clovelane/order-service/internal/order"
)

func TestGenerateNumber_Format(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	pattern := regexp.MustCompile(`^CL2024\d{6}$`)
	for i := 0; i < 100; i++ {
		number := order.GenerateNumber("CL", now)
		assert.Regexp(t, pattern, number)
		assert.Len(t, number, 12)
	}
}

func TestGenerateNumber_FreshPerCall(t *testing.T) {
	now := time.Now()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[order.GenerateNumber("CL", now)] = true
	}

	// Collisions over a 6-digit space are possible but 200 identical
	// draws are not: the generator must not cache or reuse numbers.
	assert.Greater(t, len(seen), 1)
}
