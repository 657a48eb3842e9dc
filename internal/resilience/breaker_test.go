package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail() error { return errBoom }
func ok() error   { return nil }

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test", WithMaxFailures(3))

	for i := 0; i < 2; i++ {
		if err := b.Do(fail); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if b.State() != Closed {
		t.Fatalf("state after 2 failures = %v, want closed", b.State())
	}

	if err := b.Do(fail); !errors.Is(err, errBoom) {
		t.Fatalf("tripping call: err = %v", err)
	}
	if b.State() != Open {
		t.Fatalf("state after 3 failures = %v, want open", b.State())
	}

	if err := b.Do(ok); !errors.Is(err, ErrOpen) {
		t.Fatalf("open breaker: err = %v, want ErrOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("test", WithMaxFailures(3))

	b.Do(fail)
	b.Do(fail)
	b.Do(ok)
	b.Do(fail)
	b.Do(fail)

	if b.State() != Closed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreaker_ProbeClosesOnSuccess(t *testing.T) {
	b := NewBreaker("test", WithMaxFailures(1), WithCooldown(time.Millisecond))

	b.Do(fail)
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	time.Sleep(5 * time.Millisecond)
	if b.State() != HalfOpen {
		t.Fatalf("state after cooldown = %v, want half-open", b.State())
	}

	if err := b.Do(ok); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != Closed {
		t.Fatalf("state after probe = %v, want closed", b.State())
	}
}

func TestBreaker_ProbeReopensOnFailure(t *testing.T) {
	b := NewBreaker("test", WithMaxFailures(1), WithCooldown(time.Millisecond))

	b.Do(fail)
	time.Sleep(5 * time.Millisecond)

	if err := b.Do(fail); !errors.Is(err, errBoom) {
		t.Fatalf("probe: err = %v", err)
	}
	if b.State() != Open {
		t.Fatalf("state after failed probe = %v, want open", b.State())
	}
	if err := b.Do(ok); !errors.Is(err, ErrOpen) {
		t.Fatalf("after re-open: err = %v, want ErrOpen", err)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker("test", WithMaxFailures(1))

	b.Do(fail)
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	b.Reset()
	if b.State() != Closed {
		t.Fatalf("state after reset = %v, want closed", b.State())
	}
	if err := b.Do(ok); err != nil {
		t.Fatalf("call after reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		Closed:   "closed",
		Open:     "open",
		HalfOpen: "half-open",
		State(9): "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}
