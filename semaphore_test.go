package carpal_test

import (
	"context"
	"testing"
	"time"

	"github.com/rlupsa/carpal"
	"github.com/stretchr/testify/require"
)

func TestBoundedResourceTryAcquireAndRelease(t *testing.T) {
	r := carpal.NewBoundedResource(2)

	require.True(t, r.TryAcquire(2))
	require.False(t, r.TryAcquire(1))

	r.Release(1)
	require.True(t, r.TryAcquire(1))
}

func TestBoundedResourceAcquireBlocksUntilReleased(t *testing.T) {
	r := carpal.NewBoundedResource(1)
	require.True(t, r.TryAcquire(1))

	f := r.Acquire(context.Background(), 1)

	select {
	case <-acquiredCh(f):
		t.Fatal("Acquire should block while the resource is held")
	case <-time.After(20 * time.Millisecond):
	}

	r.Release(1)

	_, err := f.Get()
	require.NoError(t, err)
}

func TestBoundedResourceAcquireFailsOnContextCancel(t *testing.T) {
	r := carpal.NewBoundedResource(1)
	require.True(t, r.TryAcquire(1))

	ctx, cancel := context.WithCancel(context.Background())
	f := r.Acquire(ctx, 1)
	cancel()

	_, err := f.Get()
	require.Error(t, err)
}

func acquiredCh(f carpal.Future[carpal.Void]) <-chan struct{} {
	ch := make(chan struct{})
	f.AddSyncCallback(func() { close(ch) })
	return ch
}
