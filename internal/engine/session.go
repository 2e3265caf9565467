package engine

import (
	"fmt"
	"sync"
)

// Session tracks the investigation budget for a single validation run.
// Strategies charge it before every costed query; once the ceiling is
// reached further charges fail and strategies report inconclusive
// instead of querying.
type Session struct {
	mu    sync.Mutex
	limit int
	spent int
}

// NewSession creates a session with the given budget ceiling. A
// non-positive limit means unlimited.
func NewSession(limit int) *Session {
	return &Session{limit: limit}
}

// Remaining implements strategy.Budget.
func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.limit <= 0 {
		return 1 << 30
	}
	return s.limit - s.spent
}

// Charge implements strategy.Budget.
func (s *Session) Charge(units int) error {
	if units < 0 {
		return fmt.Errorf("cannot charge negative units")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && s.spent+units > s.limit {
		return fmt.Errorf("budget exhausted: %d of %d units spent", s.spent, s.limit)
	}
	s.spent += units
	return nil
}

// Spent returns the units consumed so far.
func (s *Session) Spent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spent
}

// Exhausted reports whether no budget remains.
func (s *Session) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit > 0 && s.spent >= s.limit
}
