package mirror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when an id names no menu item or extra option.
var ErrNotFound = errors.New("not found")

// FillAllFieldsMessage is the status shown when an admin form is rejected.
const FillAllFieldsMessage = "請填寫所有欄位 | Please fill all fields"

// ValidationError reports every rejected field of an admin form. Nothing
// is saved when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s %s", name, e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
