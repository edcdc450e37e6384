package scheduling

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LockKey names the mutual-exclusion key of one user-week.
func LockKey(userID uuid.UUID, weekStart time.Time) string {
	return fmt.Sprintf("schedule-lock:%s:%s", userID, weekStart.Format(DateLayout))
}

// MemoryLocker is a process-local Locker. The ttl is ignored because a
// holder that dies takes the whole process with it.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]chan struct{})}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			ch = make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()

			var once sync.Once
			return func(context.Context) error {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(ch)
				})
				return nil
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrLockHeld, key, ctx.Err())
		}
	}
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
