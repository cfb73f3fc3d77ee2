// Package risk maps close-approach distances to discrete risk levels via
// a monotonic threshold table.
package risk

import "fmt"

// Level is a close-approach risk classification.
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
)

func (l Level) String() string {
	switch l {
	case LevelHigh:
		return "HIGH"
	case LevelMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// MarshalJSON encodes the level as its string form.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// Table holds validated classification thresholds in kilometers. Distances
// below CriticalKm are HIGH, below WarningKm MEDIUM, anything else LOW.
// Construct via NewTable; a Table built there can never fail to classify.
type Table struct {
	CriticalKm float64
	WarningKm  float64
}

// NewTable validates the thresholds at configuration time: both must be
// positive and critical strictly below warning. Violations are rejected
// here, never surfaced mid-classification.
func NewTable(criticalKm, warningKm float64) (Table, error) {
	if criticalKm <= 0 {
		return Table{}, fmt.Errorf("critical threshold %g km must be positive", criticalKm)
	}
	if warningKm <= criticalKm {
		return Table{}, fmt.Errorf("warning threshold %g km must exceed critical threshold %g km", warningKm, criticalKm)
	}
	return Table{CriticalKm: criticalKm, WarningKm: warningKm}, nil
}

// DefaultTable matches the conventional conjunction screening thresholds:
// 1 km critical, 5 km warning.
func DefaultTable() Table {
	return Table{CriticalKm: 1, WarningKm: 5}
}

// Classify maps a separation distance to a risk level. Pure function.
func (t Table) Classify(distanceKm float64) Level {
	switch {
	case distanceKm < t.CriticalKm:
		return LevelHigh
	case distanceKm < t.WarningKm:
		return LevelMedium
	default:
		return LevelLow
	}
}
