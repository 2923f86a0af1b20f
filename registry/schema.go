package registry

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// reflector is configured to emit flat, self-contained object schemas of
// the shape tool-calling APIs expect: no $ref indirection, no $defs.
var reflector = jsonschema.Reflector{
	RequiredFromJSONSchemaTags: true,
	ExpandedStruct:             true,
	AllowAdditionalProperties:  true,
	DoNotReference:             true,
}

// SchemaFor derives a JSON schema from the argument struct type T.
// Required fields are marked with the `jsonschema:"required"` struct tag.
func SchemaFor[T any]() (json.RawMessage, error) {
	var zero T
	s := reflector.Reflect(&zero)
	s.Version = "" // tool-calling APIs reject the $schema keyword
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema: %w", err)
	}
	return raw, nil
}

// MustSchemaFor is SchemaFor for statically known types, where a failure
// is a programming error.
func MustSchemaFor[T any]() json.RawMessage {
	raw, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return raw
}
