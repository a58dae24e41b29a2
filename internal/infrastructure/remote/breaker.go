package remote

import (
	"sync"
	"time"
)

// BreakerState represents the state of an instance circuit breaker.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // Normal operation
	BreakerOpen                         // Failing, reject calls
	BreakerHalfOpen                     // Testing recovery
)

// String returns a human-readable label for the breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// instanceBreaker is a per-instance circuit breaker. When a platform
// instance fails consecutively beyond the threshold, the circuit opens
// and subsequent calls are rejected without hitting the network. After
// a recovery timeout, the circuit transitions to half-open and allows
// one probe call to test recovery.
type instanceBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failureCount     int
	failureThreshold int
	recoveryTimeout  time.Duration
	lastFailureTime  time.Time
}

func newInstanceBreaker(failureThreshold int, recoveryTimeout time.Duration) *instanceBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 30 * time.Second
	}
	return &instanceBreaker{
		state:            BreakerClosed,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

// allow reports whether a call should go through. An open circuit past
// its recovery timeout transitions to half-open and permits one probe.
func (b *instanceBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Since(b.lastFailureTime) >= b.recoveryTimeout {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	}
	return false
}

func (b *instanceBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.state = BreakerClosed
}

func (b *instanceBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = time.Now()

	// Any failure in half-open immediately re-opens
	if b.state == BreakerHalfOpen || b.failureCount >= b.failureThreshold {
		b.state = BreakerOpen
	}
}

func (b *instanceBreaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// breakerSet holds one breaker per platform instance so an outage in
// one tenant's platform never blocks calls to the others.
type breakerSet struct {
	mu               sync.Mutex
	breakers         map[int64]*instanceBreaker
	failureThreshold int
	recoveryTimeout  time.Duration
}

func newBreakerSet(failureThreshold int, recoveryTimeout time.Duration) *breakerSet {
	return &breakerSet{
		breakers:         make(map[int64]*instanceBreaker),
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
	}
}

func (s *breakerSet) forInstance(instanceID int64) *instanceBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[instanceID]
	if !ok {
		b = newInstanceBreaker(s.failureThreshold, s.recoveryTimeout)
		s.breakers[instanceID] = b
	}
	return b
}
