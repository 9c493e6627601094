package retrieval

import (
	"math"
	"sort"
	"strings"

	"docqa-assistant/internal/model"
)

// lexicalRank orders chunks by the Ochiai coefficient of their token sets
// against the query's.
func lexicalRank(query string, chunks []model.Chunk, k int) []model.Chunk {
	qset := tokenSet(query)
	scored := make([]ScoredChunk, len(chunks))
	for i, ch := range chunks {
		scored[i] = ScoredChunk{Chunk: ch, Score: float32(ochiai(qset, tokenSet(ch.Text)))}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	out := make([]model.Chunk, 0, k)
	for _, s := range scored {
		if len(out) == k {
			break
		}
		out = append(out, s.Chunk)
	}
	return out
}

func tokenSet(s string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// ochiai is |A∩B| / sqrt(|A||B|).
func ochiai(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(a))*float64(len(b)))
}
