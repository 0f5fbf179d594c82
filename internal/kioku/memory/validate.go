package memory

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Compiled once at package init. The schema documents are embedded, so a
// compile failure is a programmer error and panics immediately.
var (
	turnSchema         = mustCompileSchema("turn.schema.json")
	summarySchema      = mustCompileSchema("summary.schema.json")
	conversationSchema = mustCompileSchema("conversation.schema.json")
)

func mustCompileSchema(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("memory: read embedded schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("memory: add schema resource %s: %v", name, err))
	}
	schema, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("memory: compile schema %s: %v", name, err))
	}
	return schema
}

// ValidationError wraps a schema violation on a Turn, Summary, or
// conversation write. It always surfaces to the caller; malformed records
// are never silently dropped.
type ValidationError struct {
	Kind string // "turn", "summary", or "conversation"
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("memory: invalid %s: %v", e.Kind, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// validateAgainst marshals v to JSON and checks the document against the
// given schema. Records are validated in their wire form so the schema is
// the single source of truth for all backends.
func validateAgainst(schema *jsonschema.Schema, kind string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &ValidationError{Kind: kind, Err: err}
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ValidationError{Kind: kind, Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &ValidationError{Kind: kind, Err: err}
	}
	return nil
}

// ValidateTurn checks a fully populated turn (id and timestamp assigned)
// against the Turn schema.
func ValidateTurn(t Turn) error {
	return validateAgainst(turnSchema, "turn", t)
}

// ValidateSummary checks a fully populated summary against the Summary
// schema.
func ValidateSummary(s Summary) error {
	return validateAgainst(summarySchema, "summary", s)
}

// ValidateCreateParams checks conversation creation parameters: a non-empty
// roomId and a known interface type.
func ValidateCreateParams(p CreateParams) error {
	return validateAgainst(conversationSchema, "conversation", p)
}
