package readahead

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leil-io/saunafs-chunkserver-core/clock"
)

func TestBackoff_DoublesAndCapsAtTenSeconds(t *testing.T) {
	assert.Equal(t, time.Millisecond, Backoff(0))
	assert.Equal(t, 2*time.Millisecond, Backoff(1))
	assert.Equal(t, 4*time.Millisecond, Backoff(2))
	assert.Equal(t, 8*time.Millisecond, Backoff(3))
	assert.Equal(t, 10*time.Second, Backoff(20))
}

func TestRetryWithBackoff_StopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), clock.RealClock{}, 5, func(try int) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsMaxRetriesAndReturnsLastError(t *testing.T) {
	wantErr := errors.New("boom")
	calls := 0
	err := RetryWithBackoff(context.Background(), clock.RealClock{}, 2, func(try int) error {
		calls++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls) // the initial attempt plus two retries
}

func TestRetryWithBackoff_ReprepareReceivesTryNumber(t *testing.T) {
	var seen []int
	_ = RetryWithBackoff(context.Background(), clock.RealClock{}, 3, func(try int) error {
		seen = append(seen, try)
		if try < 2 {
			return errors.New("retry me")
		}
		return nil
	})
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestRetryWithBackoff_ContextCancelStopsEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cancel()
	err := RetryWithBackoff(ctx, clock.RealClock{}, 5, func(try int) error {
		calls++
		return errors.New("never succeeds")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}
