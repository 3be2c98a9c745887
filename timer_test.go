package carpal_test

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rlupsa/carpal"
	"github.com/stretchr/testify/require"
)

func TestAlarmClockOneShotTimerFires(t *testing.T) {
	mock := clock.NewMock()
	ac := carpal.NewAlarmClock(carpal.WithClock(mock))
	defer ac.Close()

	timer := ac.SetTimerAfter(5 * time.Second)

	time.Sleep(10 * time.Millisecond) // let the driver goroutine arm the mock timer
	mock.Add(5 * time.Second)

	fired, err := timer.Future().Get()
	require.NoError(t, err)
	require.True(t, fired)
}

func TestAlarmClockOneShotTimerCancelBeforeFire(t *testing.T) {
	mock := clock.NewMock()
	ac := carpal.NewAlarmClock(carpal.WithClock(mock))
	defer ac.Close()

	timer := ac.SetTimerAfter(10 * time.Second)
	timer.Cancel()

	fired, err := timer.Future().Get()
	require.NoError(t, err)
	require.False(t, fired)
}

func TestAlarmClockPeriodicTimerTicksAndRearms(t *testing.T) {
	mock := clock.NewMock()
	ac := carpal.NewAlarmClock(carpal.WithClock(mock))
	defer ac.Close()

	pt := ac.SetPeriodicTimerStartAfter(time.Second, time.Second)
	stream := pt.Stream()

	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Second)

	_, ok, err := stream.NextItem()
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Second)

	_, ok, err = stream.NextItem()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAlarmClockPeriodicTimerCancelClosesStream(t *testing.T) {
	mock := clock.NewMock()
	ac := carpal.NewAlarmClock(carpal.WithClock(mock))
	defer ac.Close()

	pt := ac.SetPeriodicTimerStartAfter(time.Second, time.Second)
	pt.Cancel()

	_, ok, err := pt.Stream().NextItem()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAlarmClockPeriodicTimerCancelStopsReArming(t *testing.T) {
	mock := clock.NewMock()
	ac := carpal.NewAlarmClock(carpal.WithClock(mock))
	defer ac.Close()

	pt := ac.SetPeriodicTimerStartAfter(time.Second, time.Second)
	stream := pt.Stream()

	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Second)

	_, ok, err := stream.NextItem()
	require.NoError(t, err)
	require.True(t, ok)

	pt.Cancel()

	// Advancing well past several more periods must not produce any more
	// ticks: a canceled periodic timer must not keep re-arming itself.
	time.Sleep(10 * time.Millisecond)
	mock.Add(5 * time.Second)

	_, ok, err = stream.NextItem()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAlarmClockOneShotCancelAfterFireIsNoopNotPanic(t *testing.T) {
	mock := clock.NewMock()
	ac := carpal.NewAlarmClock(carpal.WithClock(mock))
	defer ac.Close()

	timer := ac.SetTimerAfter(time.Second)

	time.Sleep(10 * time.Millisecond)
	mock.Add(time.Second)

	fired, err := timer.Future().Get()
	require.NoError(t, err)
	require.True(t, fired)

	require.NotPanics(t, func() { timer.Cancel() })

	// The Future's outcome from the actual fire must be unchanged.
	fired, err = timer.Future().Get()
	require.NoError(t, err)
	require.True(t, fired)
}
