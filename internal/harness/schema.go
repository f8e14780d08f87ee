package harness

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

// SchemaError lists every violation found in one scenario document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "schema violation: " + strings.Join(e.Violations, "; ")
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

// scenarioSchema compiles the embedded schema once. A cue.Context is not safe
// for concurrent use, so callers hold schemaMu while using it.
func scenarioSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("failed to compile scenario schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Scenario"))
		if err := schemaDef.Err(); err != nil {
			schemaErr = fmt.Errorf("scenario schema has no #Scenario: %w", err)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

var schemaMu sync.Mutex

// ValidateSchema checks a decoded scenario document (as produced by
// yaml.Unmarshal into any) against the scenario schema. All violations are
// reported, not just the first.
func ValidateSchema(doc any) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, def, err := scenarioSchema()
	if err != nil {
		return err
	}
	if doc == nil {
		return &SchemaError{Violations: []string{"document is empty"}}
	}

	v := ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}

	unified := def.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into a SchemaError.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Violations: []string{err.Error()}}
	}
	out := &SchemaError{}
	seen := make(map[string]bool)
	for _, e := range errs {
		msg := e.Error()
		if seen[msg] {
			continue
		}
		seen[msg] = true
		out.Violations = append(out.Violations, msg)
	}
	return out
}
