package keylock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SerializesSameKey(t *testing.T) {
	l := NewLocal()
	var inside, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "email:a@x.com")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, peak)
	assert.Zero(t, l.size())
}

func TestLocal_IndependentKeys(t *testing.T) {
	l := NewLocal()
	u1, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer u1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	u2, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	u2()
}

func TestLocal_ContextCancelWhileWaiting(t *testing.T) {
	l := NewLocal()
	u, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	u()
	u() // double unlock is harmless
	assert.Zero(t, l.size())
}

type recordingLocker struct {
	mu       sync.Mutex
	order    []string
	released []string
	failOn   string
}

func (r *recordingLocker) Lock(_ context.Context, key string) (Unlock, error) {
	if key == r.failOn {
		return nil, errors.New("boom")
	}
	r.mu.Lock()
	r.order = append(r.order, key)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.released = append(r.released, key)
		r.mu.Unlock()
	}, nil
}

func TestLockAll_SortedDedupedAndReleasedInReverse(t *testing.T) {
	r := &recordingLocker{}
	unlock, err := LockAll(context.Background(), r, "subject:google:g1", "email:a@x.com", "", "email:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"email:a@x.com", "subject:google:g1"}, r.order)

	unlock()
	assert.Equal(t, []string{"subject:google:g1", "email:a@x.com"}, r.released)
}

func TestLockAll_ReleasesOnFailure(t *testing.T) {
	r := &recordingLocker{failOn: "b"}
	_, err := LockAll(context.Background(), r, "c", "b", "a")
	require.Error(t, err)
	assert.Equal(t, []string{"a"}, r.order)
	assert.Equal(t, []string{"a"}, r.released)
}
