package carpal_test

import (
	"errors"
	"testing"

	"github.com/rlupsa/carpal"
	"github.com/stretchr/testify/require"
)

func TestThenChainsOnSuccess(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	in := carpal.CompletedFuture(3)
	out := carpal.Then(pool, in, func(v int) (int, error) { return v * 2, nil })

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestThenPropagatesInputFailure(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	boom := errors.New("boom")
	in := carpal.ExceptionFuture[int](boom)
	out := carpal.Then(pool, in, func(v int) (int, error) { return v, nil })

	_, err := out.Get()
	require.ErrorIs(t, err, boom)
}

func TestThenAsyncChainsIntoInnerFuture(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	in := carpal.CompletedFuture(3)
	out := carpal.ThenAsync(pool, in, func(v int) (carpal.Future[int], error) {
		return carpal.RunAsync(pool, func() (int, error) { return v + 1, nil }), nil
	})

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 4, v)
}

func TestCatchAllRecoversFromFailure(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	boom := errors.New("boom")
	in := carpal.ExceptionFuture[int](boom)
	out := carpal.CatchAll(pool, in, func(err error) (int, error) { return -1, nil })

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, -1, v)
}

func TestCatchAllPassesThroughSuccess(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	in := carpal.CompletedFuture(9)
	out := carpal.CatchAll(pool, in, func(err error) (int, error) { return -1, nil })

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 9, v)
}

type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

func TestCatchTypedOnlyHandlesMatchingType(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	in := carpal.ExceptionFuture[int](&customError{msg: "specific"})
	out := carpal.CatchTyped[*customError](pool, in, func(e *customError) (int, error) {
		return 99, nil
	})

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 99, v)
}

func TestCatchTypedLeavesOtherTypesUnhandled(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	other := errors.New("other")
	in := carpal.ExceptionFuture[int](other)
	out := carpal.CatchTyped[*customError](pool, in, func(e *customError) (int, error) {
		return 99, nil
	})

	_, err := out.Get()
	require.ErrorIs(t, err, other)
}

func TestCatchTypedAsyncHandlesMatchingTypeViaInnerFuture(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	in := carpal.ExceptionFuture[int](&customError{msg: "specific"})
	out := carpal.CatchTypedAsync[*customError](pool, in, func(e *customError) (carpal.Future[int], error) {
		return carpal.RunAsync(pool, func() (int, error) { return 42, nil }), nil
	})

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestCatchTypedAsyncLeavesOtherTypesUnhandled(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	other := errors.New("other")
	in := carpal.ExceptionFuture[int](other)
	out := carpal.CatchTypedAsync[*customError](pool, in, func(e *customError) (carpal.Future[int], error) {
		return carpal.RunAsync(pool, func() (int, error) { return 99, nil }), nil
	})

	_, err := out.Get()
	require.ErrorIs(t, err, other)
}

func TestWhenAll2CombinesBothValues(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	fa := carpal.CompletedFuture(2)
	fb := carpal.CompletedFuture(3)
	out := carpal.WhenAll2(pool, fa, fb, func(a, b int) (int, error) { return a + b, nil })

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestWhenAll2PropagatesFirstFailure(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	boom := errors.New("boom")
	fa := carpal.ExceptionFuture[int](boom)
	fb := carpal.CompletedFuture(3)
	out := carpal.WhenAll2(pool, fa, fb, func(a, b int) (int, error) { return a + b, nil })

	_, err := out.Get()
	require.ErrorIs(t, err, boom)
}

func TestWhenAll3CombinesAllValues(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	fa := carpal.CompletedFuture(1)
	fb := carpal.CompletedFuture(2)
	fc := carpal.CompletedFuture(3)
	out := carpal.WhenAll3(pool, fa, fb, fc, func(a, b, c int) (int, error) { return a + b + c, nil })

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestWhenAll4CombinesAllValues(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	fa := carpal.CompletedFuture(1)
	fb := carpal.CompletedFuture(2)
	fc := carpal.CompletedFuture(3)
	fd := carpal.CompletedFuture(4)
	out := carpal.WhenAll4(pool, fa, fb, fc, fd, func(a, b, c, d int) (int, error) { return a + b + c + d, nil })

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 10, v)
}

func TestWhenAllSliceCombinesInOrder(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	futures := []carpal.Future[int]{
		carpal.CompletedFuture(1),
		carpal.CompletedFuture(2),
		carpal.CompletedFuture(3),
	}
	out := carpal.WhenAllSlice(pool, futures, func(vs []int) (int, error) {
		sum := 0
		for _, v := range vs {
			sum += v
		}
		return sum, nil
	})

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestWhenAllSliceEmpty(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	out := carpal.WhenAllSlice(pool, nil, func(vs []int) (int, error) { return len(vs), nil })
	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 0, v)
}

func TestExecuteAsyncLoopRunsUntilConditionFalse(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	out := carpal.ExecuteAsyncLoop(pool,
		func(v int) bool { return v < 5 },
		func(v int) (carpal.Future[int], error) {
			return carpal.RunAsync(pool, func() (int, error) { return v + 1, nil }), nil
		},
		0,
	)

	v, err := out.Get()
	require.NoError(t, err)
	require.Equal(t, 5, v)
}

func TestExecuteAsyncLoopPropagatesBodyFailure(t *testing.T) {
	pool := carpal.NewThreadPool()
	defer pool.Close()

	boom := errors.New("boom")
	out := carpal.ExecuteAsyncLoop(pool,
		func(v int) bool { return v < 5 },
		func(v int) (carpal.Future[int], error) {
			if v == 2 {
				return carpal.Future[int]{}, boom
			}
			return carpal.RunAsync(pool, func() (int, error) { return v + 1, nil }), nil
		},
		0,
	)

	_, err := out.Get()
	require.ErrorIs(t, err, boom)
}
