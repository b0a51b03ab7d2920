package netx

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCall_ReturnsResult(t *testing.T) {
	want := errors.New("remote said no")
	if err := Call(context.Background(), time.Second, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
	if err := Call(context.Background(), time.Second, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCall_DeadlineWhenCalleeIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := Call(context.Background(), 30*time.Millisecond, func(context.Context) error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Call did not return at the deadline")
	}
}

func TestCall_PassesBoundedContext(t *testing.T) {
	err := Call(context.Background(), time.Minute, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCall_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Call(ctx, time.Second, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
}

func TestCall_Panic(t *testing.T) {
	err := Call(context.Background(), time.Second, func(context.Context) error { panic("boom") })
	if err == nil {
		t.Fatal("expected error from panicking callee")
	}
}
