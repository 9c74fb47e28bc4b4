package readahead

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpirationController_LowSuccessRateHalvesExpiration(t *testing.T) {
	c := NewExpirationController(1000, 1, 10000, 10)
	for i := 0; i < 10; i++ {
		c.RecordMemoryRequest(i < 2) // 20% success rate, below the 0.3 floor
	}
	assert.Equal(t, MillisDuration(500), c.Current())
}

func TestExpirationController_HighSuccessRateDoublesExpiration(t *testing.T) {
	c := NewExpirationController(1000, 1, 10000, 10)
	for i := 0; i < 10; i++ {
		c.RecordMemoryRequest(i < 9) // 90% success rate, above the 0.8 ceiling
	}
	assert.Equal(t, MillisDuration(2000), c.Current())
}

func TestExpirationController_MiddlingRateLeavesExpirationUnchanged(t *testing.T) {
	c := NewExpirationController(1000, 1, 10000, 10)
	for i := 0; i < 10; i++ {
		c.RecordMemoryRequest(i < 5) // 50% success rate, inside the dead zone
	}
	assert.Equal(t, MillisDuration(1000), c.Current())
}

func TestExpirationController_ClampedToFloorAndCeiling(t *testing.T) {
	low := NewExpirationController(1, 1, 10000, 4)
	for i := 0; i < 4; i++ {
		low.RecordMemoryRequest(false)
	}
	assert.Equal(t, MillisDuration(1), low.Current(), "must not go below the floor")

	high := NewExpirationController(9000, 1, 10000, 4)
	for i := 0; i < 4; i++ {
		high.RecordMemoryRequest(true)
	}
	assert.Equal(t, MillisDuration(10000), high.Current(), "must not exceed the ceiling, clamped from 18000")
}

func TestExpirationController_DoesNotResampleBeforeWindowCompletes(t *testing.T) {
	c := NewExpirationController(1000, 1, 10000, 10)
	for i := 0; i < 9; i++ {
		c.RecordMemoryRequest(false)
	}
	assert.Equal(t, MillisDuration(1000), c.Current())
}
