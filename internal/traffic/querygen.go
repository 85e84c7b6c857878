package traffic

import (
	"math/rand"

	"github.com/botarena/botarena/internal/config"
)

var queryAlphabet = []rune("abcdefghijklmnopqrstuvwxyz")

// QueryGenerator produces search queries for a session according to
// the profile's query strategy.
type QueryGenerator struct {
	strategy config.QueryStrategy
	maxEdit  int
	seeds    []string
	rng      *rand.Rand

	idx  int
	last string
}

// NewQueryGenerator creates a generator from a profile's query config.
// A nil rng source gets its own seeded source.
func NewQueryGenerator(cfg config.QueryConfig, rng *rand.Rand) *QueryGenerator {
	seeds := cfg.Seeds
	if len(seeds) == 0 {
		seeds = []string{"widget"}
	}
	maxEdit := cfg.MaxEditDistance
	if maxEdit <= 0 {
		maxEdit = 2
	}
	return &QueryGenerator{
		strategy: cfg.Strategy,
		maxEdit:  maxEdit,
		seeds:    seeds,
		rng:      rng,
	}
}

// Next returns the session's next search query.
func (g *QueryGenerator) Next() string {
	switch g.strategy {
	case config.QueryRandom:
		return g.seeds[g.rng.Intn(len(g.seeds))]
	case config.QueryRefine:
		if g.last == "" {
			g.last = g.seeds[g.rng.Intn(len(g.seeds))]
			return g.last
		}
		g.last = g.refine(g.last)
		return g.last
	default: // sequential
		q := g.seeds[g.idx%len(g.seeds)]
		g.idx++
		return q
	}
}

// refine applies 1..maxEdit random single-character edits to the
// previous query: substitute, insert or delete. The bounded edit
// distance keeps successive queries looking like a narrowing search.
func (g *QueryGenerator) refine(q string) string {
	runes := []rune(q)
	edits := 1 + g.rng.Intn(g.maxEdit)
	for i := 0; i < edits; i++ {
		if len(runes) == 0 {
			runes = []rune{queryAlphabet[g.rng.Intn(len(queryAlphabet))]}
			continue
		}
		pos := g.rng.Intn(len(runes))
		switch g.rng.Intn(3) {
		case 0: // substitute
			runes[pos] = queryAlphabet[g.rng.Intn(len(queryAlphabet))]
		case 1: // insert
			r := queryAlphabet[g.rng.Intn(len(queryAlphabet))]
			runes = append(runes[:pos], append([]rune{r}, runes[pos:]...)...)
		default: // delete
			if len(runes) > 2 {
				runes = append(runes[:pos], runes[pos+1:]...)
			}
		}
	}
	return string(runes)
}
