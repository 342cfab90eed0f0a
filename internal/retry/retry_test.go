package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       0.25,
	}
}

func TestComputeDelay(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 0},
		{attempt: 0, want: 0},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 16 * time.Second},
		{attempt: 5, want: 32 * time.Second},
		{attempt: 6, want: 5 * time.Minute},
		{attempt: 100, want: 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := p.ComputeDelay(tt.attempt); got != tt.want {
			t.Errorf("ComputeDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestComputeDelay_BoundedAndMonotonic(t *testing.T) {
	p := Policy{MaxAttempts: 20, InitialDelay: time.Second, MaxDelay: time.Minute, Multiplier: 3}

	prev := time.Duration(0)
	for attempt := 0; attempt <= 25; attempt++ {
		got := p.ComputeDelay(attempt)
		if got > p.MaxDelay {
			t.Fatalf("ComputeDelay(%d) = %v exceeds MaxDelay %v", attempt, got, p.MaxDelay)
		}
		if got < prev {
			t.Fatalf("ComputeDelay(%d) = %v is less than previous %v", attempt, got, prev)
		}
		prev = got
	}
}

func TestWithJitter_StaysInBounds(t *testing.T) {
	p := DefaultPolicy()
	base := p.ComputeDelay(3)

	for i := 0; i < 1000; i++ {
		got := p.withJitter(base)
		if got < time.Duration(float64(base)*0.75) || got > time.Duration(float64(base)*1.25) {
			t.Fatalf("withJitter(%v) = %v, outside ±25%%", base, got)
		}
	}

	capped := p.withJitter(p.MaxDelay)
	if capped > p.MaxDelay {
		t.Errorf("withJitter(MaxDelay) = %v, exceeds MaxDelay", capped)
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), "send", func(context.Context) (string, error) {
		calls++
		return "id-1", nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != "id-1" || calls != 1 {
		t.Errorf("Do() = %q after %d calls, want id-1 after 1", got, calls)
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(), "send", func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("Do() = %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestDo_Exhausted(t *testing.T) {
	sendErr := errors.New("smtp 451")
	calls := 0
	_, err := Do(context.Background(), fastPolicy(), "send", func(context.Context) (struct{}, error) {
		calls++
		return struct{}{}, sendErr
	})

	if calls != 5 {
		t.Errorf("calls = %d, want 5", calls)
	}
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("Do() error = %T, want *ExhaustedError", err)
	}
	if exhausted.Attempts != 5 {
		t.Errorf("Attempts = %d, want 5", exhausted.Attempts)
	}
	if !errors.Is(err, sendErr) {
		t.Errorf("Do() error should unwrap to the last error")
	}
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	p := fastPolicy()
	p.InitialDelay = time.Hour
	p.MaxDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, "send", func(context.Context) (int, error) {
			calls++
			return 0, errors.New("fail")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Do() did not return after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Do(ctx, fastPolicy(), "send", func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 0 {
		t.Errorf("Do() = %v after %d calls, want context.Canceled after 0", err, calls)
	}
}

func TestDo_ErrorFromCancelledOperationIsNotRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(), "send", func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("write: broken pipe")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Errorf("Do() = %v after %d calls, want context.Canceled after 1", err, calls)
	}
}
