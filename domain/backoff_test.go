package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_Delay(t *testing.T) {
	backoff := Backoff{Base: 300 * time.Millisecond, Max: 2 * time.Second, MaxAttempts: 3}

	testData := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 0, expected: 300 * time.Millisecond},
		{attempt: 1, expected: 300 * time.Millisecond},
		{attempt: 2, expected: 600 * time.Millisecond},
		{attempt: 3, expected: 1200 * time.Millisecond},
		{attempt: 4, expected: 2 * time.Second},
		{attempt: 60, expected: 2 * time.Second},
	}
	for _, testRun := range testData {
		assert.Equal(t, testRun.expected, backoff.Delay(testRun.attempt), "attempt %d", testRun.attempt)
		// pure
		assert.Equal(t, backoff.Delay(testRun.attempt), backoff.Delay(testRun.attempt))
	}
}

func TestBackoff_DelayWithoutCap(t *testing.T) {
	backoff := Backoff{Base: time.Second}
	assert.Equal(t, 8*time.Second, backoff.Delay(4))
	assert.Equal(t, 1, backoff.attempts())
}
