package envelope

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const (
	hexQuantityPattern = "^0x(0|[1-9a-fA-F][0-9a-fA-F]*)$"
	hexDataPattern     = "^0x([0-9a-fA-F]{2})*$"
	addressPattern     = "^0x[0-9a-fA-F]{40}$"
)

func stringSchema() map[string]interface{} {
	return map[string]interface{}{"type": "string"}
}

func patternSchema(pattern string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "pattern": pattern}
}

func objectSchema(required []string, properties map[string]interface{}) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func tagEnum[T ~string](tags []T) []string {
	values := make([]string, 0, len(tags))
	for _, tag := range tags {
		values = append(values, string(tag))
	}
	return values
}

var RequestSchema = objectSchema([]string{"type", "requestId"}, map[string]interface{}{
	"type":      map[string]interface{}{"enum": tagEnum(RequestTypes())},
	"requestId": map[string]interface{}{"type": "string", "minLength": 1},
})

var chainIDSchema = objectSchema([]string{"chainId"}, map[string]interface{}{
	"chainId": patternSchema(hexQuantityPattern),
})

var transactionSchema = objectSchema([]string{"transaction"}, map[string]interface{}{
	"transaction": map[string]interface{}{"type": "object"},
})

// RequestTypeSchemas hold the fields each request tag requires on top of RequestSchema.
var RequestTypeSchemas = map[RequestType]map[string]interface{}{
	Connect:     chainIDSchema,
	GetAccount:  objectSchema(nil, map[string]interface{}{}),
	ChangeChain: chainIDSchema,
	SignMessage: objectSchema([]string{"messageHex"}, map[string]interface{}{
		"messageHex": patternSchema(hexDataPattern),
	}),
	SignTypedData: objectSchema([]string{"typedData"}, map[string]interface{}{
		"typedData": map[string]interface{}{"type": []string{"object", "string"}},
	}),
	SignTransaction: transactionSchema,
	SendTransaction: transactionSchema,
}

// ResponseSchema checks the shape of every field a response may carry. Which fields a
// given response must carry is up to the caller waiting for it.
var ResponseSchema = objectSchema([]string{"type", "requestId"}, map[string]interface{}{
	"type":                  map[string]interface{}{"enum": tagEnum(ResponseTypes())},
	"requestId":             map[string]interface{}{"type": "string", "minLength": 1},
	"providerUrl":           stringSchema(),
	"accountAddress":        patternSchema(addressPattern),
	"chainId":               patternSchema(hexQuantityPattern),
	"signature":             patternSchema(hexDataPattern),
	"signedTransactionHash": patternSchema(hexDataPattern),
	"transaction":           map[string]interface{}{"type": "object"},
})

var NotificationSchemas = map[NotificationType]map[string]interface{}{
	ChainSwitched: objectSchema([]string{"type", "chainId", "providerUrl"}, map[string]interface{}{
		"type":        map[string]interface{}{"const": string(ChainSwitched)},
		"chainId":     patternSchema(hexQuantityPattern),
		"providerUrl": map[string]interface{}{"type": "string", "minLength": 1},
	}),
	Disconnected: objectSchema([]string{"type"}, map[string]interface{}{
		"type": map[string]interface{}{"const": string(Disconnected)},
	}),
}

var (
	requestSchema       = mustCompile(RequestSchema)
	requestTypeSchemas  = compileAll(RequestTypeSchemas)
	responseSchema      = mustCompile(ResponseSchema)
	notificationSchemas = compileAll(NotificationSchemas)
)

func mustCompile(schema map[string]interface{}) *gojsonschema.Schema {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid envelope schema: %v", err))
	}
	return compiled
}

func compileAll[T comparable](schemas map[T]map[string]interface{}) map[T]*gojsonschema.Schema {
	compiled := make(map[T]*gojsonschema.Schema, len(schemas))
	for tag, schema := range schemas {
		compiled[tag] = mustCompile(schema)
	}
	return compiled
}

// validate runs schema against data and maps the first violation to an envelope error.
// Violations on the tag win over the others.
func validate(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if result.Valid() {
		return nil
	}

	var first error
	for _, violation := range result.Errors() {
		field := violation.Field()
		if violation.Type() == "required" {
			field = fmt.Sprint(violation.Details()["property"])
		}

		var err error
		switch {
		case field == "type":
			return fmt.Errorf("%w: %s", ErrUnknownType, violation.Description())
		case field == "requestId":
			err = ErrMissingRequestID
		case violation.Type() == "required":
			err = fmt.Errorf("%w: %s", ErrMissingField, field)
		default:
			err = fmt.Errorf("%w: %s", ErrMalformedEnvelope, violation.String())
		}
		if first == nil {
			first = err
		}
	}
	return first
}
