package propagation

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitwatch/orbitwatch/internal/elements"
)

// TrajectoryPoint is one (epoch, state) sample.
type TrajectoryPoint struct {
	Epoch time.Time   `json:"epoch"`
	State StateVector `json:"state"`
}

// Trajectory is an ordered run of samples over a time span. It is owned by
// the caller that requested it; the core never caches one. Produced may be
// less than Requested when propagation failed partway: the points up to the
// failure remain valid.
type Trajectory struct {
	CatalogNumber int               `json:"catalog_number"`
	Points        []TrajectoryPoint `json:"points"`
	Requested     int               `json:"requested"`
	Produced      int               `json:"produced"`
}

// Sampler walks a trajectory one sample at a time in the manner of
// bufio.Scanner: Next advances, State returns the current sample, Err
// reports why the walk stopped early, Reset rewinds. Each sample is an
// independent propagation; no state flows between samples beyond the
// cursor, so a sampler can be restarted at any point.
type Sampler struct {
	prop     *Propagator
	set      elements.ElementSet
	start    time.Time
	interval time.Duration
	total    int // samples including both endpoints

	k   int
	cur StateVector
	err error
}

// NewSampler prepares a walk over start+k·interval for k = 0..duration/interval,
// endpoints inclusive. Interval and duration must be positive.
func NewSampler(prop *Propagator, set elements.ElementSet, start time.Time, duration, interval time.Duration) (*Sampler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sample interval %v must be positive", interval)
	}
	if duration < 0 {
		return nil, fmt.Errorf("duration %v must not be negative", duration)
	}
	return &Sampler{
		prop:     prop,
		set:      set,
		start:    start,
		interval: interval,
		total:    int(duration/interval) + 1,
	}, nil
}

// Next propagates the next sample. It returns false when the sequence is
// exhausted or a sample failed; Err distinguishes the two.
func (s *Sampler) Next() bool {
	if s.err != nil || s.k >= s.total {
		return false
	}
	at := s.start.Add(time.Duration(s.k) * s.interval)
	state, err := s.prop.Propagate(s.set, at)
	if err != nil {
		s.err = err
		return false
	}
	s.cur = state
	s.k++
	return true
}

// State returns the sample produced by the last successful Next.
func (s *Sampler) State() StateVector { return s.cur }

// Err returns the error that terminated the walk, or nil after a complete
// run.
func (s *Sampler) Err() error { return s.err }

// Produced returns how many samples have been produced so far.
func (s *Sampler) Produced() int { return s.k }

// Requested returns the total number of samples the walk would produce.
func (s *Sampler) Requested() int { return s.total }

// Reset rewinds the sampler to the first sample and clears any error.
func (s *Sampler) Reset() {
	s.k = 0
	s.err = nil
	s.cur = StateVector{}
}

// Track materializes a whole trajectory. The context is checked between
// samples, never inside a single propagation. On a per-sample failure the
// trajectory holds every sample produced before it and the terminating
// error is returned alongside; the caller decides whether a partial track
// is useful.
func Track(ctx context.Context, prop *Propagator, set elements.ElementSet, start time.Time, duration, interval time.Duration) (Trajectory, error) {
	s, err := NewSampler(prop, set, start, duration, interval)
	if err != nil {
		return Trajectory{}, err
	}

	traj := Trajectory{
		CatalogNumber: set.CatalogNumber,
		Points:        make([]TrajectoryPoint, 0, s.Requested()),
		Requested:     s.Requested(),
	}
	for s.Next() {
		if err := ctx.Err(); err != nil {
			traj.Produced = len(traj.Points)
			return traj, err
		}
		st := s.State()
		traj.Points = append(traj.Points, TrajectoryPoint{Epoch: st.Epoch, State: st})
	}
	traj.Produced = len(traj.Points)
	return traj, s.Err()
}
