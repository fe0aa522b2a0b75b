package worker

import "sync"

// Settings is the shared mutable worker state reachable from outside the
// tick loop (the admin API arms the silent flag).
type Settings struct {
	mu           sync.Mutex
	silentRecalc bool
}

// ArmSilentRecalc makes the next tick rebase all stored hashes without
// sending notifications. Used after a hashing or format change to avoid
// notifying every subscriber about a content-identical schedule.
func (s *Settings) ArmSilentRecalc() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silentRecalc = true
}

// TakeSilentRecalc atomically reads and clears the one-shot flag.
func (s *Settings) TakeSilentRecalc() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.silentRecalc
	s.silentRecalc = false
	return v
}
