package propagation

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

// FleetEntry is one object's outcome in a fleet snapshot. Exactly one of
// State/Err is meaningful; a failed object never gets a zeroed state.
type FleetEntry struct {
	CatalogNumber int
	Name          string
	State         StateVector
	Err           error
}

// FleetPool propagates many independent objects to a shared epoch on a
// fixed set of goroutines. Propagations are pure, so workers share nothing
// but the channels.
type FleetPool struct {
	workers int
	logger  *slog.Logger
}

// NewFleetPool creates a pool with the given worker count, defaulting to
// the CPU count.
func NewFleetPool(workers int, logger *slog.Logger) *FleetPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &FleetPool{workers: workers, logger: logger}
}

type fleetJob struct {
	idx int
	set elements.ElementSet
}

// Snapshot propagates every element set to the target epoch. Results come
// back in input order regardless of worker scheduling. One object's
// failure (a decayed orbit, a non-converging solve) is recorded in its
// entry and never aborts the rest; the second return value counts
// failures.
func (fp *FleetPool) Snapshot(ctx context.Context, prop *Propagator, sets []elements.ElementSet, at time.Time) ([]FleetEntry, int) {
	if len(sets) == 0 {
		return nil, 0
	}

	results := make([]FleetEntry, len(sets))
	jobs := make(chan fleetJob)

	var wg sync.WaitGroup
	for i := 0; i < fp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				state, err := prop.Propagate(job.set, at)
				results[job.idx] = FleetEntry{
					CatalogNumber: job.set.CatalogNumber,
					Name:          job.set.Name,
					State:         state,
					Err:           err,
				}
			}
		}()
	}

	// Feed jobs; cancellation is honored between objects, not within a
	// single propagation.
	fed := len(sets)
	for i, set := range sets {
		select {
		case jobs <- fleetJob{idx: i, set: set}:
		case <-ctx.Done():
			fed = i
		}
		if fed != len(sets) {
			break
		}
	}
	close(jobs)
	wg.Wait()

	if fed < len(sets) {
		for i := fed; i < len(sets); i++ {
			results[i] = FleetEntry{
				CatalogNumber: sets[i].CatalogNumber,
				Name:          sets[i].Name,
				Err:           ctx.Err(),
			}
		}
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		fp.logger.Warn("fleet snapshot finished with failures",
			"objects", len(sets),
			"failed", failed,
			"epoch", at.UTC().Format(time.RFC3339),
		)
	}
	return results, failed
}
