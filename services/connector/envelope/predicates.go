package envelope

import (
	"encoding/json"
)

// Tag extracts the "type" field of an envelope-like value. It accepts raw JSON
// ([]byte, json.RawMessage, string), decoded JSON objects and the envelope structs.
// Anything that is not an object with a string "type" yields false.
func Tag(x interface{}) (string, bool) {
	switch v := x.(type) {
	case nil:
		return "", false
	case *Request:
		if v == nil {
			return "", false
		}
		return string(v.Type), true
	case Request:
		return string(v.Type), true
	case *Response:
		if v == nil {
			return "", false
		}
		return string(v.Type), true
	case Response:
		return string(v.Type), true
	case *Notification:
		if v == nil {
			return "", false
		}
		return string(v.Type), true
	case Notification:
		return string(v.Type), true
	case map[string]interface{}:
		if v == nil {
			return "", false
		}
		tag, ok := v["type"].(string)
		return tag, ok
	case json.RawMessage:
		return tagFromJSON(v)
	case []byte:
		return tagFromJSON(v)
	case string:
		return tagFromJSON([]byte(v))
	}
	return "", false
}

func tagFromJSON(data []byte) (string, bool) {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil || object == nil {
		return "", false
	}
	raw, ok := object["type"]
	if !ok {
		return "", false
	}
	var tag string
	if err := json.Unmarshal(raw, &tag); err != nil {
		return "", false
	}
	return tag, true
}

// IsRequestEnvelope reports whether x is an object carrying a request tag.
func IsRequestEnvelope(x interface{}) bool {
	tag, ok := Tag(x)
	return ok && RequestType(tag).Valid()
}

// IsResponseEnvelope reports whether x is an object carrying a response tag.
// TransactionRejected is always accepted.
func IsResponseEnvelope(x interface{}) bool {
	tag, ok := Tag(x)
	return ok && ResponseType(tag).Valid()
}

// IsNotificationEnvelope reports whether x is a wallet notification.
func IsNotificationEnvelope(x interface{}) bool {
	tag, ok := Tag(x)
	return ok && NotificationType(tag).Valid()
}

// RequestID extracts the "requestId" field, if any.
func RequestID(data []byte) (string, bool) {
	var object struct {
		RequestID *string `json:"requestId"`
	}
	if err := json.Unmarshal(data, &object); err != nil || object.RequestID == nil {
		return "", false
	}
	return *object.RequestID, true
}
