package ledger

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// documentSchema holds the compiled #Document definition. A cue.Context is
// not safe for concurrent use, so validation is serialized.
type documentSchema struct {
	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

var loadSchema = sync.OnceValues(func() (*documentSchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile document schema: %w", formatCUEError(err))
	}
	def := v.LookupPath(cue.ParsePath("#Document"))
	if !def.Exists() {
		return nil, fmt.Errorf("compile document schema: #Document not defined")
	}
	return &documentSchema{ctx: ctx, def: def}, nil
})

// Validate checks raw JSON against the document schema without decoding it.
func Validate(data []byte) error {
	s, err := loadSchema()
	if err != nil {
		return err
	}
	return s.validate(data)
}

func (s *documentSchema) validate(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.CompileBytes(data, cue.Filename("snapshot.json"))
	if err := v.Err(); err != nil {
		return formatCUEError(err)
	}
	if err := s.def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError reduces a CUE error list to its first entry with position
// info attached.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	format, args := first.Msg()
	se := &SchemaError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	if len(errs) > 1 {
		se.Message = fmt.Sprintf("%s (and %d more errors)", se.Message, len(errs)-1)
	}
	return se
}
