// Package schema builds the declarative configuration-schema surface
// exposed through provider metadata.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// ForStruct derives a JSON schema from a provider options struct. Field
// types, defaults and required fields come from json/jsonschema tags; the
// host uses the result to validate configuration and generate forms.
func ForStruct(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, fmt.Errorf("nil value")
	}
	typeOf := reflect.TypeOf(value)
	if typeOf.Kind() == reflect.Pointer {
		typeOf = typeOf.Elem()
	}
	if typeOf.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct, got %s", typeOf.Kind())
	}

	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	generated := reflector.Reflect(value)
	payload, err := generated.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return payload, nil
}
