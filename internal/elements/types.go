package elements

import (
	"strconv"
	"time"
)

// ElementSet is one object's orbital element record, immutable once parsed.
// Angles are stored in degrees as published; mean motion in revolutions/day.
type ElementSet struct {
	CatalogNumber  int
	Name           string
	Classification byte
	IntlDesignator string

	Epoch time.Time // UTC, sub-second resolution

	InclinationDeg float64
	RAANDeg        float64
	Eccentricity   float64
	ArgPerigeeDeg  float64
	MeanAnomalyDeg float64
	MeanMotion     float64 // rev/day

	// Drag-related perturbation terms. MeanMotionDot and MeanMotionDDot are
	// the full first and second derivatives (rev/day², rev/day³); the record
	// stores ṅ/2 and n̈/6, which the parser doubles and sextuples.
	MeanMotionDot  float64
	MeanMotionDDot float64
	BStar          float64

	ElementSetNumber int
	RevolutionNumber int

	// Raw data lines as received, kept for cross-validation against the
	// full SGP4 reference model.
	Line1 string
	Line2 string
}

// DisplayName returns the object name, falling back to the catalog number.
func (e ElementSet) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return "NORAD " + strconv.Itoa(e.CatalogNumber)
}
