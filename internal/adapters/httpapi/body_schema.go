package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	errInvalidJSON  = errors.New("invalid json body")
	createKeySchema = mustCompileSchema("schemas/create_api_key.json")
)

func mustCompileSchema(name string) *santhosh.Schema {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(name)
}

// validateBody checks body against sch. It returns errInvalidJSON for
// malformed input and *domain.ErrSchemaViolation for schema failures.
func validateBody(sch *santhosh.Schema, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return errInvalidJSON
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &domain.ErrSchemaViolation{Errors: collectValidationErrors(ve)}
		}
		return &domain.ErrSchemaViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}
