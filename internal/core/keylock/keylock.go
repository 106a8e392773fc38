// Package keylock serializes work per string key, within one process (Local)
// or across processes (Redis). Locks are an optimization layered over
// database constraints; callers must stay correct when locking fails.
package keylock

import (
	"context"
	"errors"
	"slices"
)

var ErrNotAcquired = errors.New("keylock: not acquired")

type Unlock func()

type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// LockAll acquires keys in sorted order, skipping duplicates and empty keys,
// so two callers sharing a subset of keys cannot deadlock. On failure every
// lock already taken is released.
func LockAll(ctx context.Context, l Locker, keys ...string) (Unlock, error) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]Unlock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i]()
		}
	}
	for _, k := range sorted {
		if k == "" {
			continue
		}
		u, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		held = append(held, u)
	}
	return release, nil
}
