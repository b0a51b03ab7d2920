// Package netx holds helpers for calls to remote systems.
package netx

import (
	"context"
	"fmt"
	"time"
)

// Call runs fn with a context bounded by timeout and returns no later than
// the deadline, even when fn ignores its context. A panic in fn is returned
// as an error. timeout <= 0 leaves ctx's own deadline in place.
func Call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("remote call panic: %v", p)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
