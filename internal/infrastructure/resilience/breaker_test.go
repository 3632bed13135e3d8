package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("lookup", 3, 50*time.Millisecond)
	fail := errors.New("boom")

	b.Record(fail)
	b.Record(fail)
	assert.True(t, b.Allow(), "below threshold stays closed")

	b.Record(fail)
	assert.False(t, b.Allow(), "threshold reached opens the circuit")
}

func TestBreakerCoolsDown(t *testing.T) {
	b := NewBreaker("lookup", 1, 20*time.Millisecond)
	b.Record(errors.New("boom"))
	assert.True(t, b.Open())

	time.Sleep(30 * time.Millisecond)
	assert.True(t, b.Allow(), "cooldown expiry closes the circuit")
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := NewBreaker("lookup", 2, time.Second)
	fail := errors.New("boom")

	b.Record(fail)
	b.Record(nil)
	b.Record(fail)
	assert.True(t, b.Allow(), "streak broken by a success")
}
