package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsFreshIP(t *testing.T) {
	rl := NewRateLimiter(5, 15*time.Minute, 30*time.Minute)

	allowed, remaining, retryAfter := rl.Check("203.0.113.10")
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
	assert.Zero(t, retryAfter)
}

func TestRateLimiterCountsFailures(t *testing.T) {
	rl := NewRateLimiter(5, 15*time.Minute, 30*time.Minute)
	ip := "203.0.113.11"

	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, false)

	allowed, remaining, _ := rl.Check(ip)
	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiterLocksAfterMaxAttempts(t *testing.T) {
	rl := NewRateLimiter(3, 15*time.Minute, 30*time.Minute)
	ip := "203.0.113.12"

	for i := 0; i < 3; i++ {
		rl.RecordAttempt(ip, false)
	}

	allowed, remaining, retryAfter := rl.Check(ip)
	assert.False(t, allowed)
	assert.Zero(t, remaining)
	assert.Greater(t, retryAfter, time.Duration(0))
	assert.LessOrEqual(t, retryAfter, 30*time.Minute)
}

func TestRateLimiterSuccessClearsAttempts(t *testing.T) {
	rl := NewRateLimiter(3, 15*time.Minute, 30*time.Minute)
	ip := "203.0.113.13"

	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, true)

	allowed, remaining, _ := rl.Check(ip)
	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	rl := NewRateLimiter(3, 15*time.Minute, 30*time.Minute)

	for i := 0; i < 3; i++ {
		rl.RecordAttempt("203.0.113.14", false)
	}

	allowed, _, _ := rl.Check("203.0.113.14")
	assert.False(t, allowed)

	allowed, remaining, _ := rl.Check("203.0.113.15")
	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiterWindowExpiryResets(t *testing.T) {
	rl := NewRateLimiter(3, 50*time.Millisecond, 30*time.Minute)
	ip := "203.0.113.16"

	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, false)
	time.Sleep(60 * time.Millisecond)

	allowed, remaining, _ := rl.Check(ip)
	assert.True(t, allowed)
	assert.Equal(t, 3, remaining)
}

func TestRateLimiterLockExpiry(t *testing.T) {
	rl := NewRateLimiter(2, 15*time.Minute, 50*time.Millisecond)
	ip := "203.0.113.17"

	rl.RecordAttempt(ip, false)
	rl.RecordAttempt(ip, false)

	allowed, _, _ := rl.Check(ip)
	assert.False(t, allowed)

	time.Sleep(60 * time.Millisecond)

	allowed, remaining, _ := rl.Check(ip)
	assert.True(t, allowed)
	assert.Equal(t, 2, remaining)
}

func TestGetRemainingAttempts(t *testing.T) {
	rl := NewRateLimiter(5, 15*time.Minute, 30*time.Minute)
	ip := "203.0.113.18"

	assert.Equal(t, 5, rl.GetRemainingAttempts(ip))
	rl.RecordAttempt(ip, false)
	assert.Equal(t, 4, rl.GetRemainingAttempts(ip))
}
