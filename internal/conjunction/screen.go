package conjunction

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

// Pair names two element sets to analyze against each other.
type Pair struct {
	A, B elements.ElementSet
}

// PairOutcome is one pair's analysis outcome. Exactly one of Result/Err is
// meaningful.
type PairOutcome struct {
	Result Result
	Err    error
}

// AnalyzePairs analyzes independent pairs concurrently, bounded by a
// semaphore sized to the CPU count. Outcomes come back in input order and
// one pair's failure never aborts its siblings.
func (a *Analyzer) AnalyzePairs(ctx context.Context, pairs []Pair, w Window) []PairOutcome {
	outcomes := make([]PairOutcome, len(pairs))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, pair := range pairs {
		wg.Add(1)
		go func(idx int, p Pair) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				outcomes[idx] = PairOutcome{Err: ctx.Err()}
				return
			}

			res, err := a.Analyze(ctx, p.A, p.B, w)
			outcomes[idx] = PairOutcome{Result: res, Err: err}
		}(i, pair)
	}

	wg.Wait()
	return outcomes
}

// Screen analyzes one primary object against every other object in the
// catalog, returning successful results sorted by miss distance along with
// the outcomes that failed. The primary itself is excluded by catalog
// number.
func (a *Analyzer) Screen(ctx context.Context, primary elements.ElementSet, catalog []elements.ElementSet, w Window) ([]Result, []PairOutcome) {
	pairs := make([]Pair, 0, len(catalog))
	for _, other := range catalog {
		if other.CatalogNumber == primary.CatalogNumber {
			continue
		}
		pairs = append(pairs, Pair{A: primary, B: other})
	}

	outcomes := a.AnalyzePairs(ctx, pairs, w)

	var results []Result
	var failed []PairOutcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
			continue
		}
		results = append(results, o.Result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].MinDistanceKm < results[j].MinDistanceKm
	})
	return results, failed
}
