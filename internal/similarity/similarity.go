// Package similarity computes cosine-similarity edges between node vectors
// and recomputes them in the graph with delete-then-insert semantics.
package similarity

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

const (
	DefaultTopK      = 50
	DefaultThreshold = 0.7
	// Description text is noisier than filings, so its edges use a lower bar.
	DescriptionThreshold = 0.6
)

// Pair is one undirected similarity edge with Left < Right.
type Pair struct {
	Left  string
	Right string
	Score float64
}

// Input is one node and its vector.
type Input struct {
	Key    string
	Vector []float32
}

// Compute L2-normalizes all vectors, scores every row against every column,
// and keeps the per-row top-K above threshold. Pairs proposed from both rows
// are deduplicated keeping the higher score. Inputs with NaN or Inf
// components are rejected up-front.
func Compute(inputs []Input, topK int, threshold float64) ([]Pair, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(inputs) < 2 {
		return nil, nil
	}

	dim := len(inputs[0].Vector)
	normed := make([][]float64, len(inputs))
	for i, in := range inputs {
		if len(in.Vector) != dim {
			return nil, eris.Errorf("similarity: %s has dimension %d, want %d", in.Key, len(in.Vector), dim)
		}
		row, err := normalize(in.Vector)
		if err != nil {
			return nil, eris.Wrapf(err, "similarity: input %s", in.Key)
		}
		normed[i] = row
	}

	type scored struct {
		j     int
		score float64
	}
	best := map[[2]string]float64{}
	for i := range normed {
		var candidates []scored
		for j := range normed {
			if i == j {
				continue
			}
			s := dot(normed[i], normed[j])
			if s > 1 {
				s = 1
			}
			if s < -1 {
				s = -1
			}
			if s >= threshold {
				candidates = append(candidates, scored{j: j, score: s})
			}
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].score != candidates[b].score {
				return candidates[a].score > candidates[b].score
			}
			return inputs[candidates[a].j].Key < inputs[candidates[b].j].Key
		})
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		for _, c := range candidates {
			a, b := inputs[i].Key, inputs[c.j].Key
			if b < a {
				a, b = b, a
			}
			key := [2]string{a, b}
			if prev, ok := best[key]; !ok || c.score > prev {
				best[key] = c.score
			}
		}
	}

	pairs := make([]Pair, 0, len(best))
	for key, score := range best {
		pairs = append(pairs, Pair{Left: key[0], Right: key[1], Score: score})
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].Score != pairs[b].Score {
			return pairs[a].Score > pairs[b].Score
		}
		if pairs[a].Left != pairs[b].Left {
			return pairs[a].Left < pairs[b].Left
		}
		return pairs[a].Right < pairs[b].Right
	})
	return pairs, nil
}

// normalize returns the L2-normalized vector as float64. A zero norm is
// replaced with 1 so the zero vector scores 0 against everything instead of
// producing NaN.
func normalize(vec []float32) ([]float64, error) {
	out := make([]float64, len(vec))
	var sum float64
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, eris.Errorf("non-finite component at %d", i)
		}
		out[i] = f
		sum += f * f
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	for i := range out {
		out[i] /= norm
	}
	return out, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
