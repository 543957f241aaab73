// Package circuitbreaker guards outbound platform calls against a
// flapping or unreachable API.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

type opState struct {
	state               state
	consecutiveFailures int
	openedAt            time.Time
}

// CircuitBreaker tracks failures per named operation (chat send, list
// fetch, ...). After threshold consecutive failures the operation is
// rejected until the cooldown elapses, then a single probe is allowed.
type CircuitBreaker struct {
	mu        sync.Mutex
	states    map[string]*opState
	threshold int
	cooldown  time.Duration
	clock     func() time.Time
}

func New(threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		states:    make(map[string]*opState),
		threshold: threshold,
		cooldown:  cooldown,
		clock:     time.Now,
	}
}

// Allow reports whether the named operation may proceed.
func (cb *CircuitBreaker) Allow(op string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[op]
	if !ok {
		return nil
	}

	switch s.state {
	case stateClosed:
		return nil
	case stateOpen:
		if cb.clock().Sub(s.openedAt) >= cb.cooldown {
			s.state = stateHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case stateHalfOpen:
		return ErrCircuitOpen
	default:
		return nil
	}
}

func (cb *CircuitBreaker) RecordSuccess(op string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[op]
	if !ok {
		return
	}
	s.state = stateClosed
	s.consecutiveFailures = 0
}

func (cb *CircuitBreaker) RecordFailure(op string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s, ok := cb.states[op]
	if !ok {
		s = &opState{}
		cb.states[op] = s
	}

	s.consecutiveFailures++
	if s.state == stateHalfOpen || s.consecutiveFailures >= cb.threshold {
		s.state = stateOpen
		s.openedAt = cb.clock()
	}
}
