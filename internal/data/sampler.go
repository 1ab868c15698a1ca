package data

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Sampler yields the sample order for one epoch.
type Sampler interface {
	Indices() []int
}

// SequentialSampler visits samples 0..n-1 in order.
type SequentialSampler int

// Indices returns 0..n-1.
func (s SequentialSampler) Indices() []int {
	idx := make([]int, int(s))
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// RandomSampler visits every sample once in a fresh random order each epoch.
type RandomSampler struct {
	n   int
	rng *rand.Rand
}

// NewRandomSampler shuffles n samples with a source seeded by seed.
func NewRandomSampler(n int, seed uint64) *RandomSampler {
	return &RandomSampler{n: n, rng: rand.New(rand.NewSource(seed))}
}

// Indices returns a permutation of 0..n-1.
func (s *RandomSampler) Indices() []int {
	return s.rng.Perm(s.n)
}

// WeightedSampler draws samples with replacement, each with probability
// proportional to its weight.
type WeightedSampler struct {
	weights    []float64
	numSamples int
	src        rand.Source
}

// NewWeightedSampler draws numSamples indices per epoch.
func NewWeightedSampler(weights []float64, numSamples int, seed uint64) *WeightedSampler {
	return &WeightedSampler{weights: weights, numSamples: numSamples, src: rand.NewSource(seed)}
}

// NewClassBalancedSampler weights every sample by the inverse frequency of
// its class, so each class is drawn equally often in expectation. An epoch
// has as many draws as there are samples.
func NewClassBalancedSampler(labels []int32, seed uint64) *WeightedSampler {
	counts := make(map[int32]int)
	for _, l := range labels {
		counts[l]++
	}
	weights := make([]float64, len(labels))
	for i, l := range labels {
		weights[i] = 1 / float64(counts[l])
	}
	return NewWeightedSampler(weights, len(labels), seed)
}

// Weights returns the per-sample weights.
func (s *WeightedSampler) Weights() []float64 {
	return s.weights
}

// Indices draws numSamples indices with replacement.
func (s *WeightedSampler) Indices() []int {
	if len(s.weights) == 0 {
		return nil
	}
	w := sampleuv.NewWeighted(s.weights, s.src)
	idx := make([]int, 0, s.numSamples)
	for len(idx) < s.numSamples {
		i, ok := w.Take()
		if !ok {
			break
		}
		idx = append(idx, i)
		// Put the drawn item back.
		w.Reweight(i, s.weights[i])
	}
	return idx
}
