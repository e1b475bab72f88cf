package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.CycleLocker = (*Lock)(nil)

// Lock is the single-process CycleLocker used when Redis is not configured.
type Lock struct {
	mu sync.Mutex
}

func (l *Lock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	if !l.mu.TryLock() {
		return nil, repo.ErrLocked
	}
	var once sync.Once
	return func(context.Context) error {
		once.Do(l.mu.Unlock)
		return nil
	}, nil
}
