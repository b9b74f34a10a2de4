package catalog

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// DefinitionsSchemaID identifies the generated schema document.
const DefinitionsSchemaID = "https://xcmcp.dev/schemas/definitions.schema.json"

// DefinitionsSchema returns the JSON schema of the definitions file format,
// for editor validation of custom definition files.
func DefinitionsSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Definitions{})
	schema.ID = DefinitionsSchemaID
	schema.Title = "xcmcp tool definitions"
	return json.MarshalIndent(schema, "", "  ")
}
