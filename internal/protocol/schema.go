package protocol

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// requestSchema and responseSchema describe the wire documents for schema
// generation only.
type requestSchema struct {
	Type  string `json:"type" jsonschema:"enum=get,enum=set,enum=delete,enum=exit" jsonschema_description:"Operation to perform."`
	Key   any    `json:"key,omitempty" jsonschema_description:"Member name or list of member names leading to the target. Required except for exit."`
	Value any    `json:"value,omitempty" jsonschema_description:"Value to store. Required for set."`
}

type responseSchema struct {
	Response string `json:"response,omitempty" jsonschema:"enum=OK,enum=ERROR" jsonschema_description:"Outcome of the request."`
	Value    any    `json:"value,omitempty" jsonschema_description:"Value found by a successful get."`
	Reason   string `json:"reason,omitempty" jsonschema_description:"Why the request failed."`
	Key      string `json:"key,omitempty" jsonschema:"enum=OK" jsonschema_description:"Set to OK only in the acknowledgment of exit."`
}

// Schema returns JSON Schemas for request and response payloads.
func Schema() (request, response *jsonschema.Schema) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true}
	request = r.Reflect(&requestSchema{})
	request.Title = "jsondb request"
	if key, ok := request.Properties.Get("key"); ok {
		key.OneOf = []*jsonschema.Schema{
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		}
	}
	response = r.Reflect(&responseSchema{})
	response.Title = "jsondb response"
	return request, response
}

// SchemaJSON returns both schemas as one indented JSON document with
// "request" and "response" members.
func SchemaJSON() ([]byte, error) {
	req, resp := Schema()
	return json.MarshalIndent(map[string]*jsonschema.Schema{"request": req, "response": resp}, "", "  ")
}
