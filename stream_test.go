package carpal_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rlupsa/carpal"
	"github.com/stretchr/testify/require"
)

func TestStreamYieldAndNextItem(t *testing.T) {
	source, sink := carpal.NewStream[int, carpal.Void](4)

	sink.Yield(1)
	sink.Yield(2)
	sink.Close(carpal.Void{})

	v, ok, err := source.NextItem()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok, err = source.NextItem()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, v)

	_, ok, err = source.NextItem()
	require.NoError(t, err)
	require.False(t, ok)

	// Eof is sticky.
	_, ok, err = source.NextItem()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStreamFailIsSticky(t *testing.T) {
	source, sink := carpal.NewStream[int, carpal.Void](4)

	boom := errors.New("boom")
	sink.Yield(1)
	sink.Fail(boom)

	v, ok, err := source.NextItem()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok, err = source.NextItem()
	require.ErrorIs(t, err, boom)
	require.False(t, ok)

	_, ok, err = source.NextItem()
	require.ErrorIs(t, err, boom)
	require.False(t, ok)
}

func TestStreamEnqueueBlocksAtCapacity(t *testing.T) {
	source, sink := carpal.NewStream[int, carpal.Void](1)

	sink.Yield(1)

	blocked := make(chan struct{})
	go func() {
		sink.Yield(2)
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("Yield should have blocked at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok, err := source.NextItem()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	select {
	case <-blocked:
	case <-time.After(time.Second):
		t.Fatal("Yield should have unblocked after Dequeue freed a slot")
	}

	v, ok, err = source.NextItem()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestStreamRangeVisitsAllItems(t *testing.T) {
	source, sink := carpal.NewStream[int, carpal.Void](4)

	go func() {
		for i := 1; i <= 3; i++ {
			sink.Yield(i)
		}
		sink.Close(carpal.Void{})
	}()

	var got []int
	err := source.Range(func(v int) bool {
		got = append(got, v)
		return true
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestStreamSeqRangeOverFunc(t *testing.T) {
	source, sink := carpal.NewStream[int, carpal.Void](4)

	go func() {
		sink.Yield(10)
		sink.Yield(20)
		sink.Close(carpal.Void{})
	}()

	var got []int
	for v, err := range source.Seq() {
		require.NoError(t, err)
		got = append(got, v)
	}
	require.Equal(t, []int{10, 20}, got)
}

func TestStreamItemAwaitable(t *testing.T) {
	source, sink := carpal.NewStream[int, carpal.Void](4)
	a := source.Queue().ItemAwaitable()

	require.False(t, a.AwaitReady())

	done := make(chan struct{})
	a.AwaitSuspend(func() { close(done) })

	sink.Yield(5)

	<-done
	require.True(t, a.AwaitReady())

	v, err := a.AwaitResume()
	require.NoError(t, err)
	sv, ok := v.(carpal.StreamValue[int, carpal.Void])
	require.True(t, ok)
	require.True(t, sv.IsItem())
	require.Equal(t, 5, sv.Item())
}
