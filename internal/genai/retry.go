// ABOUTME: Jittered exponential backoff for generative service calls
// ABOUTME: Retries only transient errors and fails fast on permanent ones
package genai

import (
	"context"
	"log"
	"math/rand/v2"
	"time"
)

// RetryPolicy controls Retry
type RetryPolicy struct {
	// Retries is the number of retries after the first attempt
	Retries int

	// BaseDelay is the first backoff, doubled on every retry
	BaseDelay time.Duration

	// MaxJitter is the upper bound of random delay added to each backoff
	MaxJitter time.Duration
}

// DefaultPolicy is used for text and JSON calls
var DefaultPolicy = RetryPolicy{Retries: 5, BaseDelay: 3 * time.Second, MaxJitter: time.Second}

// SpeechPolicy is used for text-to-speech calls
var SpeechPolicy = RetryPolicy{Retries: 3, BaseDelay: 2 * time.Second, MaxJitter: time.Second}

// Retry runs op until it succeeds, fails permanently, exhausts retries or ctx ends.
// Errors returned by op are classified before the retry decision.
func Retry(ctx context.Context, policy RetryPolicy, op func(ctx context.Context) error) error {
	delay := policy.BaseDelay

	for attempt := 0; ; attempt++ {
		err := Classify(op(ctx))
		if err == nil {
			return nil
		}
		if !IsTransient(err) || attempt >= policy.Retries {
			return err
		}

		wait := delay
		if policy.MaxJitter > 0 {
			wait += rand.N(policy.MaxJitter)
		}
		log.Printf("Transient service error, retrying in %v (%d retries left): %v", wait.Round(time.Millisecond), policy.Retries-attempt, err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
