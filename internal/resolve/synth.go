package resolve

import (
	"encoding/json"

	"github.com/openbank/apitester/internal/swagger"
)

// Body derives a JSON request body for a write operation from its
// declared schema. Every field in the definition's required list is
// pre-filled from a matching configuration attribute (attrs is keyed by
// field name, e.g. "bank_id"), else from the schema's declared example,
// else null. Any structural failure yields an empty body rather than an
// error: synthesis must never abort a listing.
func Body(op *swagger.Operation, doc *swagger.Document, attrs map[string]string) string {
	def, ok := bodyDefinition(op, doc)
	if !ok {
		return ""
	}

	fields := make(map[string]any, len(def.Required))
	for _, name := range def.Required {
		if v, ok := attrs[name]; ok && v != "" {
			fields[name] = v
			continue
		}
		if prop, ok := def.Properties[name]; ok && prop.Example != nil {
			fields[name] = prop.Example
			continue
		}
		fields[name] = nil
	}

	// MarshalIndent sorts map keys, which keeps the output stable.
	encoded, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return ""
	}
	return string(encoded)
}

// bodyDefinition locates the definition referenced by the operation's
// first declared parameter schema.
func bodyDefinition(op *swagger.Operation, doc *swagger.Document) (swagger.Definition, bool) {
	if op == nil || doc == nil || len(op.Parameters) == 0 {
		return swagger.Definition{}, false
	}
	name := op.Parameters[0].Schema.DefinitionName()
	if name == "" {
		return swagger.Definition{}, false
	}
	def, ok := doc.Definitions[name]
	return def, ok
}
