package artifact

import (
	"context"
	"errors"
	"sync"
)

// ErrRenderFailed is returned by InMemory when configured to fail.
var ErrRenderFailed = errors.New("artifact render failed")

// InMemory records rendered artifacts without touching disk.
type InMemory struct {
	mu       sync.Mutex
	files    map[string]string
	failNext bool
}

func NewInMemory() *InMemory {
	return &InMemory{files: make(map[string]string)}
}

func (s *InMemory) Render(ctx context.Context, name, payload string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return "", ErrRenderFailed
	}
	path := "mem://" + name + ".png"
	s.files[path] = payload
	return path, nil
}

func (s *InMemory) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, path)
	return nil
}

// FailNext makes the next Render fail.
func (s *InMemory) FailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// Len reports how many artifacts exist.
func (s *InMemory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// Payload returns the payload rendered at path.
func (s *InMemory) Payload(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.files[path]
	return p, ok
}
