package estimate

import (
	"sort"
)

// Curve maps a bucketed gas price to the percentage of observed blocks whose
// minimum accepted price was at or below it, i.e. the share of hashpower that
// would have accepted a transaction at that price. The percentage is
// non-decreasing in price, and the highest bucket maps to 100.
type Curve struct {
	buckets []Bucket
	pct     []float64
	blocks  int
}

// NewCurve builds the acceptance curve from window observations. Blocks
// without transactions are ignored.
func NewCurve(obs []Observation) *Curve {
	counts := make(map[Bucket]int)
	var total int
	for _, o := range obs {
		if b, ok := o.Accepted(); ok {
			counts[b]++
			total++
		}
	}

	c := &Curve{
		buckets: make([]Bucket, 0, len(counts)),
		pct:     make([]float64, len(counts)),
		blocks:  total,
	}
	for b := range counts {
		c.buckets = append(c.buckets, b)
	}
	sort.Slice(c.buckets, func(i, j int) bool { return c.buckets[i] < c.buckets[j] })

	var cum int
	for i, b := range c.buckets {
		cum += counts[b]
		c.pct[i] = float64(cum) / float64(total) * 100
	}
	return c
}

// Acceptance returns the percentage of blocks accepting price. Above the
// highest observed bucket it is 100 and below the lowest it is 0; in between
// it is the value at the greatest bucket not exceeding price. An empty curve
// accepts nothing.
func (c *Curve) Acceptance(price Bucket) float64 {
	n := len(c.buckets)
	if n == 0 || price < c.buckets[0] {
		return 0
	}
	if price > c.buckets[n-1] {
		return 100
	}
	i := sort.Search(n, func(i int) bool { return c.buckets[i] > price })
	return c.pct[i-1]
}

// NumBlocks returns the number of blocks that contributed to the curve.
func (c *Curve) NumBlocks() int {
	return c.blocks
}

// Points returns copies of the curve's buckets and their acceptance
// percentages.
func (c *Curve) Points() (x []Bucket, y []float64) {
	x = append([]Bucket(nil), c.buckets...)
	y = append([]float64(nil), c.pct...)
	return
}
