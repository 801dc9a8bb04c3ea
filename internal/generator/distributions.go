package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// categorical samples values in proportion to their (normalized) weights
type categorical struct {
	values []string
	cum    []float64
	last   int // index of the last value with positive weight
}

func newCategorical(values []WeightedValue) *categorical {
	c := &categorical{
		values: make([]string, len(values)),
		cum:    make([]float64, len(values)),
	}
	total := 0.0
	for _, v := range values {
		total += v.Weight
	}
	acc := 0.0
	for i, v := range values {
		acc += v.Weight / total
		c.values[i] = v.Value
		c.cum[i] = acc
		if v.Weight > 0 {
			c.last = i
		}
	}
	return c
}

func (c *categorical) sample(r *rand.Rand) string {
	u := r.Float64()
	// first bound strictly above u; zero-weight slots share their predecessor's bound and are never hit
	i := sort.Search(len(c.cum), func(i int) bool { return c.cum[i] > u })
	if i >= len(c.values) {
		// rounding left the final bound just under u
		i = c.last
	}
	return c.values[i]
}

// uniformInt returns an integer in the half-open range [lo, hi)
func uniformInt(r *rand.Rand, lo, hi int64) int64 {
	return lo + r.Int64N(hi-lo)
}

// uniformIntIncl returns an integer in the closed range [lo, hi]
func uniformIntIncl(r *rand.Rand, lo, hi int64) int64 {
	return lo + r.Int64N(hi-lo+1)
}

func uniformFloat(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func exponential(r *rand.Rand, scale float64) float64 {
	return r.ExpFloat64() * scale
}

// pick returns one element of items chosen uniformly
func pick[T any](r *rand.Rand, items []T) T {
	return items[r.IntN(len(items))]
}

// sampleWithoutReplacement returns k distinct indices from [0, n)
func sampleWithoutReplacement(r *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	perm := r.Perm(n)
	return perm[:k]
}

func randomIP(r *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		uniformIntIncl(r, 1, 223),
		uniformIntIncl(r, 0, 255),
		uniformIntIncl(r, 0, 255),
		uniformIntIncl(r, 1, 254))
}

func round6(x float64) float64 {
	if math.IsInf(x, 0) || math.IsNaN(x) {
		return x
	}
	return math.Round(x*1e6) / 1e6
}

// truncCount mirrors integer truncation of count*ratio
func truncCount(count int, ratio float64) int {
	return int(float64(count) * ratio)
}
