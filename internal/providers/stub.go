package providers

import (
	"context"
	"sync"
)

// Scripted is a Generator that replays canned responses in order. Once the script is
// exhausted the last entry repeats. A non-nil error at a position is returned instead of
// the response. It is used by tests and dry runs.
type Scripted struct {
	Responses []string
	Errors    []error
	ModelID   string

	mu    sync.Mutex
	calls int
}

// Generate returns the next scripted response.
func (s *Scripted) Generate(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	n := len(s.Responses)
	if len(s.Errors) > n {
		n = len(s.Errors)
	}
	if n == 0 {
		return "", nil
	}
	if i >= n {
		i = n - 1
	}
	if i < len(s.Errors) && s.Errors[i] != nil {
		return "", s.Errors[i]
	}
	if i < len(s.Responses) {
		return s.Responses[i], nil
	}
	return "", nil
}

// Model returns ModelID, or "scripted".
func (s *Scripted) Model() string {
	if s.ModelID == "" {
		return "scripted"
	}
	return s.ModelID
}

// Calls returns how many times Generate was called.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
