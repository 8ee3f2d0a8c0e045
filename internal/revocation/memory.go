package revocation

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// Memory is a process-local Store. Expired entries are dropped lazily on
// lookup and in bulk by Sweep.
type Memory struct {
	entries *xsync.MapOf[string, time.Time]
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		entries: xsync.NewMapOf[string, time.Time](),
		now:     time.Now,
	}
}

func (m *Memory) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(m.now()) {
		return nil
	}
	m.entries.Compute(Key(token), func(old time.Time, loaded bool) (time.Time, bool) {
		if loaded && old.After(expiresAt) {
			return old, false
		}
		return expiresAt, false
	})
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, token string) (bool, error) {
	key := Key(token)
	expiresAt, ok := m.entries.Load(key)
	if !ok {
		return false, nil
	}
	now := m.now()
	if now.Before(expiresAt) {
		return true, nil
	}
	m.evictIfExpired(key, now)
	return false, nil
}

func (m *Memory) Clear(context.Context) error {
	m.entries.Clear()
	return nil
}

// Sweep removes every entry that expired at or before now and reports how
// many were removed.
func (m *Memory) Sweep(now time.Time) int {
	removed := 0
	m.entries.Range(func(key string, expiresAt time.Time) bool {
		if !now.Before(expiresAt) && m.evictIfExpired(key, now) {
			removed++
		}
		return true
	})
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(m.now()); removed > 0 {
				logger.Debug("revocation entries swept", zap.Int("removed", removed), zap.Int("remaining", m.Len()))
			}
		}
	}
}

func (m *Memory) Len() int {
	return m.entries.Size()
}

// evictIfExpired deletes key unless a concurrent Revoke extended it past now.
func (m *Memory) evictIfExpired(key string, now time.Time) bool {
	evicted := false
	m.entries.Compute(key, func(old time.Time, loaded bool) (time.Time, bool) {
		if !loaded {
			return old, true
		}
		if now.Before(old) {
			return old, false
		}
		evicted = true
		return old, true
	})
	return evicted
}
