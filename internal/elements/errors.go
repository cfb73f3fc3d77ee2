package elements

import "fmt"

// ParseError reports a malformed or checksum-failed element record.
// It is fatal to that one record only; catalog parsing continues past it.
type ParseError struct {
	LineNum int    // 1 or 2; 0 when the failure spans the record
	Line    string // offending line as received
	Field   string // field name, empty for structural failures
	Reason  string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parsing element line %d field %s: %s", e.LineNum, e.Field, e.Reason)
	}
	if e.LineNum != 0 {
		return fmt.Sprintf("parsing element line %d: %s", e.LineNum, e.Reason)
	}
	return fmt.Sprintf("parsing element record: %s", e.Reason)
}
