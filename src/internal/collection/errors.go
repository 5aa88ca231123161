package collection

import (
	"fmt"
	"strings"
)

// UnsupportedFormatError reports a bibliography file whose extension maps to
// no known loader.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported bibliography format %q: %s", e.Ext, e.Path)
}

// TypeCoercionError reports a field value that could not be converted to the
// requested type during load normalization.
type TypeCoercionError struct {
	Path  string
	Field string
	Value any
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("%s: field %q: cannot coerce %v (%T) to integer", e.Path, e.Field, e.Value, e.Value)
}

// LoadError reports a malformed bibliography source file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// CoverageError reports records the template rendered zero times or more
// than once.
type CoverageError struct {
	Problems []string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("template coverage check failed: %s", strings.Join(e.Problems, "; "))
}
