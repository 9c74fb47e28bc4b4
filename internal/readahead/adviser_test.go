package readahead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leil-io/saunafs-chunkserver-core/clock"
)

func TestAdviser_SequentialFeeds_WindowGrowsMonotonically(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Now())
	a := NewAdviser(sc, 100, 1<<30, 65536, 4, 0)

	var prev uint32
	offsets := []uint64{0, 65536, 131072, 196608}
	for _, off := range offsets {
		isSeq := a.Feed(off, 65536)
		assert.True(t, isSeq)
		assert.Greater(t, a.Window(), prev)
		prev = a.Window()
	}
}

func TestAdviser_FourOppositeFeeds_WindowHalves(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Now())
	a := NewAdviser(sc, 100, 1<<30, 65536, 4, 0)

	// Build up a large window with sequential feeds first.
	a.Feed(0, 65536)
	a.Feed(65536, 65536)
	a.Feed(131072, 65536)
	beforeRandom := a.Window()

	// Four consecutive far-away (non-sequential) feeds: the fourth pushes
	// random_candidates past the threshold of 3 and triggers a reduce.
	a.Feed(100_000_000, 65536)
	a.Feed(200_000_000, 65536)
	a.Feed(300_000_000, 65536)
	a.Feed(400_000_000, 65536)

	assert.Less(t, a.Window(), beforeRandom)
}

func TestAdviser_ZeroTimeout_DisablesWindow(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Now())
	a := NewAdviser(sc, 0, 1<<20, 65536, 4, 0)
	a.Feed(0, 4096)
	assert.Equal(t, uint32(0), a.Window())
}

func TestAdviser_StickyFlip_RequiresThresholdConsecutiveOpposites(t *testing.T) {
	a := NewAdviser(clock.NewSimulatedClock(time.Now()), 100, 1<<20, 65536, 4, 0)
	assert.False(t, a.ShouldUseReadahead())

	// Three opposite (sequential) feeds are not enough to flip.
	a.UpdateShouldUseReadahead(true)
	a.UpdateShouldUseReadahead(true)
	a.UpdateShouldUseReadahead(true)
	assert.False(t, a.ShouldUseReadahead())

	// The fourth flips it.
	a.UpdateShouldUseReadahead(true)
	assert.True(t, a.ShouldUseReadahead())

	// A same-direction feed resets the opposite-streak counter rather than
	// flipping back immediately.
	a.UpdateShouldUseReadahead(true)
	a.UpdateShouldUseReadahead(false)
	a.UpdateShouldUseReadahead(false)
	a.UpdateShouldUseReadahead(false)
	assert.True(t, a.ShouldUseReadahead(), "three opposites must not flip")
	a.UpdateShouldUseReadahead(false)
	assert.False(t, a.ShouldUseReadahead(), "the fourth opposite flips back")
}

func TestAdviser_Window_NeverExceedsMaxWindowSize(t *testing.T) {
	sc := clock.NewSimulatedClock(time.Now())
	a := NewAdviser(sc, 100, 1<<17, 65536, 4, 0)
	for i := 0; i < 20; i++ {
		a.Feed(uint64(i)*65536, 65536)
	}
	assert.LessOrEqual(t, a.Window(), uint32(1<<17))
}
