package reliability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	want := errors.New("down")
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Do() error = %v, want %v", err, want)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDoHonorsContextBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	want := errors.New("down")
	calls := 0
	err := Do(ctx, 5, time.Hour, func(context.Context) error {
		calls++
		cancel()
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("Do() error = %v, want %v", err, want)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
