package indicators

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is matched by every MissingColumnError via errors.Is.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError reports a required input column absent from a table.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing column %q", e.Column)
}

func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

func missing(col string) error {
	return &MissingColumnError{Column: col}
}
