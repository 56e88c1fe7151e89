package ledger

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// ErrMalformedSnapshot marks a remote value that failed validated decode.
// The local state must be left untouched when it is returned.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// SchemaError is a single schema violation found in a snapshot.
type SchemaError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Path, e.Message)
	}
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// malformed wraps cause so errors.Is(err, ErrMalformedSnapshot) holds and
// the underlying decode or schema error stays reachable.
func malformed(cause error) error {
	return fmt.Errorf("%w: %w", ErrMalformedSnapshot, cause)
}
