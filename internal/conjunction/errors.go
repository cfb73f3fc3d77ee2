package conjunction

import (
	"fmt"
	"time"
)

// CloseApproachError reports a propagation failure during a pairwise
// search, naming which object and probed epoch failed. The analysis fails
// whole: silently skipping the sample would bias the minimum search.
type CloseApproachError struct {
	CatalogNumber int
	Epoch         time.Time
	Err           error
}

func (e *CloseApproachError) Error() string {
	return fmt.Sprintf("close-approach search: NORAD %d failed at %s: %v",
		e.CatalogNumber, e.Epoch.UTC().Format(time.RFC3339Nano), e.Err)
}

func (e *CloseApproachError) Unwrap() error { return e.Err }
