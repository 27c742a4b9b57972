package estimate

import (
	"sort"
)

// BlockInterval returns the average time in seconds between consecutive blocks
// in obs. Only pairs of adjacent block numbers with non-decreasing timestamps
// are counted; if there are none, def is returned.
func BlockInterval(obs []Observation, def float64) float64 {
	sorted := append([]Observation(nil), obs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })

	var (
		sum int64
		n   int
	)
	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]
		if curr.Number-prev.Number != 1 {
			continue
		}
		d := curr.Time - prev.Time
		if d < 0 {
			continue
		}
		sum += d
		n++
	}
	if n == 0 {
		return def
	}
	return float64(sum) / float64(n)
}
