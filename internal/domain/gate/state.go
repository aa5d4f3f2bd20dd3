package gate

import (
	"sort"
	"sync"
)

// AccessState is the grow-only set of folders a visitor has unlocked
type AccessState struct {
	mu      sync.RWMutex
	folders map[string]struct{}
}

// NewAccessState returns an empty state
func NewAccessState() *AccessState {
	return &AccessState{folders: make(map[string]struct{})}
}

// Unlocked reports whether folder has been unlocked
func (s *AccessState) Unlocked(folder string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.folders[normalize(folder)]
	return ok
}

// add records folder; adding twice keeps a single entry
func (s *AccessState) add(folder string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.folders[normalize(folder)] = struct{}{}
}

// Folders returns the unlocked folders in sorted order
func (s *AccessState) Folders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.folders))
	for f := range s.folders {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of unlocked folders
func (s *AccessState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.folders)
}
