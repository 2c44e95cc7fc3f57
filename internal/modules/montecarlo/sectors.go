package montecarlo

import "github.com/aristath/frontier/internal/modules/universe"

// SectorAggregator rolls asset weights up into sector weights.
type SectorAggregator struct {
	sectors     []string
	assetSector []int
}

// NewSectorAggregator creates an aggregator for the sectors of u.
func NewSectorAggregator(u *universe.Universe) *SectorAggregator {
	a := &SectorAggregator{
		sectors:     u.Sectors(),
		assetSector: make([]int, u.Len()),
	}
	for i := range a.assetSector {
		a.assetSector[i] = u.SectorIndex(i)
	}
	return a
}

// Sectors returns the fixed key set of every aggregate.
func (a *SectorAggregator) Sectors() []string {
	out := make([]string, len(a.sectors))
	copy(out, a.sectors)
	return out
}

// Aggregate sums w per sector. Every sector of the universe is present in the
// result, with 0 when no weight was assigned to it.
func (a *SectorAggregator) Aggregate(w WeightVector) SectorWeights {
	totals := make([]float64, len(a.sectors))
	for i, weight := range w {
		totals[a.assetSector[i]] += weight
	}

	out := make(SectorWeights, len(a.sectors))
	for i, sector := range a.sectors {
		out[sector] = totals[i]
	}
	return out
}
