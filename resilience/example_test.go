package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sheetmcp/sheetcore/resilience"
)

func ExampleNewRetry() {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Strategy:     resilience.BackoffExponential,
		Jitter:       false, // Disabled for predictable example
	})

	ctx := context.Background()
	attempts := 0

	err := retry.Execute(ctx, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary failure")
		}
		return nil // Success on third attempt
	})

	if err == nil {
		fmt.Printf("Succeeded after %d attempts\n", attempts)
	}
	// Output:
	// Succeeded after 3 attempts
}

func ExampleNewRetry_withCallback() {
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Jitter:       false,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			fmt.Printf("Attempt %d failed, retrying\n", attempt)
		},
	})

	ctx := context.Background()
	attempts := 0

	_ = retry.Execute(ctx, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary")
		}
		return nil
	})

	fmt.Println("Completed")
	// Output:
	// Attempt 1 failed, retrying
	// Attempt 2 failed, retrying
	// Completed
}

func ExampleNewRateLimiter() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Rate:  100, // 100 requests per second
		Burst: 5,   // Allow burst of 5
	})

	// Check if request is allowed
	if rl.Allow() {
		fmt.Println("Request 1 allowed")
	}

	// AllowN for batch operations
	if rl.AllowN(3) {
		fmt.Println("Batch of 3 allowed")
	}
	// Output:
	// Request 1 allowed
	// Batch of 3 allowed
}

func ExampleRateLimiter_Execute() {
	rl := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Rate:        10,
		Burst:       2,
		WaitOnLimit: false,
	})

	ctx := context.Background()
	successCount := 0

	// Execute multiple operations
	for i := 0; i < 3; i++ {
		err := rl.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
		if err == nil {
			successCount++
		}
	}

	fmt.Printf("Successful executions: %d\n", successCount)
	// Output:
	// Successful executions: 2
}
