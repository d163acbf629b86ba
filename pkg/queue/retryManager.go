package queue

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// RetryManager manages retry logic for failed deliveries
type RetryManager struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewRetryManager creates a new RetryManager
func NewRetryManager(maxRetries int, baseDelay time.Duration) *RetryManager {
	return &RetryManager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   baseDelay * 16, // Maximum 16x base delay
	}
}

func (r *RetryManager) MaxRetries() int {
	return r.maxRetries
}

// ShouldRetry determines if a message should be retried and returns the delay
func (r *RetryManager) ShouldRetry(msg *Message, err error) (bool, time.Duration) {
	if msg.Attempts >= msg.MaxRetries {
		return false, 0
	}

	if !r.isRetryableError(err) {
		return false, 0
	}

	return true, r.calculateBackoff(msg.Attempts)
}

// isRetryableError determines if an error is retryable
func (r *RetryManager) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	nonRetryableErrors := []string{
		"invalid",
		"is required",
		"permission denied",
		"failed to marshal",
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range nonRetryableErrors {
		if strings.Contains(errStr, pattern) {
			return false
		}
	}

	return true
}

// calculateBackoff calculates exponential backoff delay with jitter
func (r *RetryManager) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 || r.baseDelay <= 0 {
		return r.baseDelay
	}

	// Exponential backoff: base * 2^(attempt-1)
	backoff := r.baseDelay * time.Duration(1<<(attempt-1))

	// Apply jitter (±25%)
	if half := int64(backoff / 2); half > 0 {
		jitter := time.Duration(rand.Int63n(half))
		if rand.Intn(2) == 0 {
			backoff += jitter / 2
		} else {
			backoff -= jitter / 2
		}
	}

	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}

	return backoff
}
