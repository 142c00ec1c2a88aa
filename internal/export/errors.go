package export

import (
	"errors"
	"fmt"
)

// SchemaError reports a required column missing from the export header.
// It is fatal: nothing is imported from an export with an unknown shape.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("export is missing required column %q", e.Column)
}

// DataError reports an empty required field in a specific row.
// It is fatal: a malformed export is not partially importable.
type DataError struct {
	Row    int // 1-based data row number, excluding the header
	Column string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("row %d: required field %q is empty", e.Row, e.Column)
}

// IsSchemaError returns true if err is a SchemaError.
// Uses errors.As to handle wrapped errors.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsDataError returns true if err is a DataError.
// Uses errors.As to handle wrapped errors.
func IsDataError(err error) bool {
	var de *DataError
	return errors.As(err, &de)
}
