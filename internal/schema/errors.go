package schema

import "fmt"

// CorruptDataError reports a structurally invalid or unparseable document:
// malformed atomic values, invalid schema nodes, or tensor keys missing
// from the store. It aborts the whole load; there is no partial recovery.
type CorruptDataError struct {
	Reason string // what is wrong
	Path   string // location within the structure, when known
	Err    error  // underlying parse error, if any
}

// Error implements the error interface.
func (e *CorruptDataError) Error() string {
	msg := "corrupt data: " + e.Reason
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CorruptDataError) Unwrap() error {
	return e.Err
}
