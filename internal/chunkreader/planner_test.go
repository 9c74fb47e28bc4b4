package chunkreader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_PreferredMediaLabelSortsFirst(t *testing.T) {
	loc := Location{
		ChunkID: 1,
		Replicas: []Replica{
			{Address: "b", MediaLabel: "hdd", Load: 1},
			{Address: "a", MediaLabel: "ssd", Load: 5},
		},
	}
	plan := BuildPlan(loc, "ssd")
	require.Len(t, plan, 1)
	require.Len(t, plan[0].Candidates, 2)
	assert.Equal(t, "a", plan[0].Candidates[0].Address, "the ssd replica must win even with higher load")
}

func TestBuildPlan_TiesOnLabelBrokenByLoad(t *testing.T) {
	loc := Location{
		Replicas: []Replica{
			{Address: "busy", MediaLabel: "hdd", Load: 10},
			{Address: "idle", MediaLabel: "hdd", Load: 1},
		},
	}
	plan := BuildPlan(loc, "hdd")
	assert.Equal(t, "idle", plan[0].Candidates[0].Address)
}
