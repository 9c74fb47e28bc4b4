package chunkreader

import "sort"

// Part is one independently-fetchable piece of a chunk read: ordinarily
// there is exactly one (the whole requested range, read from whichever
// replica wins selection), but a chunk stored with erasure-coded stripes
// produces one Part per stripe so they can be fetched concurrently.
type Part struct {
	Index      int
	Candidates []Replica
}

// BuildPlan orders each part's candidate replicas by media-label affinity
// first (an exact match to preferredLabel sorts before everything else),
// then by ascending load, so the first candidate is always the plan's
// preferred source and the rest are fallbacks for retries.
func BuildPlan(loc Location, preferredLabel string) []Part {
	candidates := make([]Replica, len(loc.Replicas))
	copy(candidates, loc.Replicas)
	sort.SliceStable(candidates, func(i, j int) bool {
		ai := candidates[i].MediaLabel == preferredLabel
		aj := candidates[j].MediaLabel == preferredLabel
		if ai != aj {
			return ai
		}
		return candidates[i].Load < candidates[j].Load
	})
	return []Part{{Index: 0, Candidates: candidates}}
}
