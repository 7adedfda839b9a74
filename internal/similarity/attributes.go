package similarity

import (
	"math"
	"sort"
	"strings"
)

// CompanyProfile carries the non-vector attributes the categorical metrics
// score: industry classifiers, size figures, and the technology and keyword
// sets reached through the company's domain.
type CompanyProfile struct {
	Key          string
	SICCode      string
	Industry     string
	MarketCap    float64
	Revenue      float64
	Employees    float64
	Technologies []string
	Keywords     []string
}

// ComputeIndustry scores classification overlap. Tiers, best one wins:
// identical SIC code 1.0, identical industry string 0.9, shared 2-digit SIC
// major group 0.75.
func ComputeIndustry(profiles []CompanyProfile, topK int, threshold float64) []Pair {
	return pairwise(profiles, topK, threshold, func(a, b CompanyProfile) float64 {
		switch {
		case a.SICCode != "" && a.SICCode == b.SICCode:
			return 1.0
		case a.Industry != "" && strings.EqualFold(a.Industry, b.Industry):
			return 0.9
		case len(a.SICCode) >= 2 && len(b.SICCode) >= 2 && a.SICCode[:2] == b.SICCode[:2]:
			return 0.75
		}
		return 0
	})
}

// ComputeTechnology scores the Jaccard overlap of the technology sets.
func ComputeTechnology(profiles []CompanyProfile, topK int, threshold float64) []Pair {
	sets := make([]map[string]struct{}, len(profiles))
	for i, p := range profiles {
		sets[i] = tokenSet(p.Technologies)
	}
	idx := indexOf(profiles)
	return pairwise(profiles, topK, threshold, func(a, b CompanyProfile) float64 {
		return jaccard(sets[idx[a.Key]], sets[idx[b.Key]])
	})
}

// ComputeKeyword scores the Jaccard overlap of the domain keyword sets.
func ComputeKeyword(profiles []CompanyProfile, topK int, threshold float64) []Pair {
	sets := make([]map[string]struct{}, len(profiles))
	for i, p := range profiles {
		sets[i] = tokenSet(p.Keywords)
	}
	idx := indexOf(profiles)
	return pairwise(profiles, topK, threshold, func(a, b CompanyProfile) float64 {
		return jaccard(sets[idx[a.Key]], sets[idx[b.Key]])
	})
}

// sizeSpan is the log10 distance at which a size measure scores zero; three
// orders of magnitude apart means not similar.
const sizeSpan = 3.0

// ComputeSize scores proximity on the log scale of market cap, revenue, and
// headcount, averaged over the measures both companies report.
func ComputeSize(profiles []CompanyProfile, topK int, threshold float64) []Pair {
	return pairwise(profiles, topK, threshold, func(a, b CompanyProfile) float64 {
		var sum float64
		var n int
		for _, m := range [][2]float64{
			{a.MarketCap, b.MarketCap},
			{a.Revenue, b.Revenue},
			{a.Employees, b.Employees},
		} {
			if m[0] <= 0 || m[1] <= 0 {
				continue
			}
			s := 1 - math.Abs(math.Log10(m[0])-math.Log10(m[1]))/sizeSpan
			if s < 0 {
				s = 0
			}
			sum += s
			n++
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	})
}

// pairwise applies score to every ordered pair, keeps the per-key top-K at or
// above threshold, and deduplicates into undirected pairs the same way the
// vector path does.
func pairwise(profiles []CompanyProfile, topK int, threshold float64, score func(a, b CompanyProfile) float64) []Pair {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(profiles) < 2 {
		return nil
	}

	type scored struct {
		j int
		s float64
	}
	best := map[[2]string]float64{}
	for i := range profiles {
		var candidates []scored
		for j := range profiles {
			if i == j {
				continue
			}
			s := score(profiles[i], profiles[j])
			if s > 1 {
				s = 1
			}
			if s >= threshold {
				candidates = append(candidates, scored{j: j, s: s})
			}
		}
		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].s != candidates[b].s {
				return candidates[a].s > candidates[b].s
			}
			return profiles[candidates[a].j].Key < profiles[candidates[b].j].Key
		})
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}
		for _, c := range candidates {
			a, b := profiles[i].Key, profiles[c.j].Key
			if b < a {
				a, b = b, a
			}
			key := [2]string{a, b}
			if prev, ok := best[key]; !ok || c.s > prev {
				best[key] = c.s
			}
		}
	}

	pairs := make([]Pair, 0, len(best))
	for key, s := range best {
		pairs = append(pairs, Pair{Left: key[0], Right: key[1], Score: s})
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
	return pairs
}

func indexOf(profiles []CompanyProfile) map[string]int {
	idx := make(map[string]int, len(profiles))
	for i, p := range profiles {
		idx[p.Key] = i
	}
	return idx
}

func tokenSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		for _, tok := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ';' }) {
			tok = strings.ToLower(strings.TrimSpace(tok))
			if tok != "" {
				set[tok] = struct{}{}
			}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
