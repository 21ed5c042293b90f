package memory

import (
	"sync"
	"time"

	"contex/contexts/context-routing/notification-dispatcher-service/domain/entities"
)

// CircuitStore tracks one breaker per webhook URL, implementing the
// CLOSED/OPEN/HALF_OPEN hysteresis from the original circuit breaker:
// failure_threshold consecutive failures opens it, a single success in
// HALF_OPEN closes it, a failure in HALF_OPEN reopens it immediately.
type CircuitStore struct {
	mu               sync.Mutex
	circuits         map[string]entities.Circuit
	failureThreshold int
	cooldown         time.Duration
}

func NewCircuitStore(failureThreshold int, cooldown time.Duration) *CircuitStore {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &CircuitStore{
		circuits:         make(map[string]entities.Circuit),
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
	}
}

func (s *CircuitStore) Get(url string) entities.Circuit {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.circuits[url]
	if !ok {
		c = entities.Circuit{URL: url, State: entities.CircuitClosed}
	}
	if c.State == entities.CircuitOpen && time.Since(c.LastFailureAt) >= s.cooldown {
		c.State = entities.CircuitHalfOpen
		c.FailureCount = 0
		c.SuccessCount = 0
		s.circuits[url] = c
	}
	return c
}

func (s *CircuitStore) RecordSuccess(url string, now time.Time) entities.Circuit {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.circuits[url]
	c.URL = url

	switch c.State {
	case entities.CircuitHalfOpen:
		c.State = entities.CircuitClosed
		c.FailureCount = 0
		c.SuccessCount = 0
		c.LastStateChange = now
	default:
		c.State = entities.CircuitClosed
		c.FailureCount = 0
	}
	s.circuits[url] = c
	return c
}

func (s *CircuitStore) RecordFailure(url string, now time.Time) entities.Circuit {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.circuits[url]
	if !ok {
		c.State = entities.CircuitClosed
	}
	c.URL = url
	c.FailureCount++
	c.LastFailureAt = now

	switch c.State {
	case entities.CircuitHalfOpen:
		c.State = entities.CircuitOpen
		c.SuccessCount = 0
		c.LastStateChange = now
	case entities.CircuitClosed:
		if c.FailureCount >= s.failureThreshold {
			c.State = entities.CircuitOpen
			c.LastStateChange = now
		}
	}
	s.circuits[url] = c
	return c
}
