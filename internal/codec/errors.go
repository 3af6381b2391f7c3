package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDocument is wrapped by structural document failures, such as
	// a table namespace without a table type entry.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrTableNotFound is returned when an export names a table the snapshot
	// does not hold.
	ErrTableNotFound = errors.New("table not found")
)

// UnknownTableTypeError is fatal: the table's row grid cannot be sized.
type UnknownTableTypeError struct {
	Table    string
	TypeName string
}

func (e *UnknownTableTypeError) Error() string {
	return fmt.Sprintf("table '%s': unknown table type '%s'", e.Table, e.TypeName)
}

// AmbiguityError reports two enumerations claiming the same command argument.
type AmbiguityError struct {
	Table    string
	Command  string
	Argument int
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("table '%s': command '%s' argument %d has more than one enumeration",
		e.Table, e.Command, e.Argument+1)
}

// AbortError is returned when the continuation policy stops an import.
type AbortError struct {
	Category Category
	Message  string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("import stopped on %s error: %s", e.Category, e.Message)
}

// Warning is a non-fatal export problem reported to the caller.
type Warning struct {
	Table   string `json:"table"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Table, w.Message)
}
