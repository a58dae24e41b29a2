package remote

import (
	"testing"
	"time"
)

func TestInstanceBreaker_OpensAfterThreshold(t *testing.T) {
	b := newInstanceBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		b.recordFailure()
	}
	if !b.allow() {
		t.Fatal("breaker should stay closed below the threshold")
	}

	b.recordFailure()
	if got := b.currentState(); got != BreakerOpen {
		t.Fatalf("state = %s, want open", got)
	}
	if b.allow() {
		t.Fatal("open breaker should reject calls")
	}
}

func TestInstanceBreaker_HalfOpenProbe(t *testing.T) {
	b := newInstanceBreaker(1, 10*time.Millisecond)

	b.recordFailure()
	if b.allow() {
		t.Fatal("breaker should be open right after tripping")
	}

	time.Sleep(20 * time.Millisecond)
	if !b.allow() {
		t.Fatal("breaker should allow a probe after the recovery timeout")
	}
	if got := b.currentState(); got != BreakerHalfOpen {
		t.Fatalf("state = %s, want half_open", got)
	}

	// A failed probe re-opens immediately.
	b.recordFailure()
	if got := b.currentState(); got != BreakerOpen {
		t.Fatalf("state after failed probe = %s, want open", got)
	}
}

func TestInstanceBreaker_SuccessCloses(t *testing.T) {
	b := newInstanceBreaker(1, 10*time.Millisecond)

	b.recordFailure()
	time.Sleep(20 * time.Millisecond)
	if !b.allow() {
		t.Fatal("probe should be allowed")
	}
	b.recordSuccess()

	if got := b.currentState(); got != BreakerClosed {
		t.Fatalf("state = %s, want closed", got)
	}
	if !b.allow() {
		t.Fatal("closed breaker should allow calls")
	}
}

func TestBreakerSet_IsolatesInstances(t *testing.T) {
	set := newBreakerSet(1, time.Minute)

	set.forInstance(1).recordFailure()

	if set.forInstance(1).allow() {
		t.Fatal("instance 1 should be open")
	}
	if !set.forInstance(2).allow() {
		t.Fatal("instance 2 must not be affected by instance 1's outage")
	}
	if set.forInstance(1) != set.forInstance(1) {
		t.Fatal("breakers must be stable per instance")
	}
}
