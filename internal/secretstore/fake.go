package secretstore

import (
	"context"
	"sync"
)

// Fake is an in-memory Store for tests that records writes.
type Fake struct {
	mu         sync.Mutex
	Parameters map[string]string
	Puts       []string
	PutErr     error
}

// NewFake returns an empty Fake.
func NewFake() *Fake {
	return &Fake{Parameters: map[string]string{}}
}

func (f *Fake) Put(_ context.Context, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutErr != nil {
		return f.PutErr
	}
	f.Parameters[name] = value
	f.Puts = append(f.Puts, name)
	return nil
}

func (f *Fake) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Parameters[name]
	return ok, nil
}

// PutCount returns how many writes were made.
func (f *Fake) PutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Puts)
}

var _ Store = (*Fake)(nil)
