package transport

import "encoding/json"

// Envelope is the JSON object every endpoint answers with. It always carries
// "success" and, when set, "message"; other keys are endpoint specific.
type Envelope map[string]interface{}

// NewSuccess returns a success envelope. An empty message is omitted.
func NewSuccess(message string) Envelope {
	e := Envelope{"success": true}
	if message != "" {
		e["message"] = message
	}
	return e
}

// NewFailure returns {success:false, message}.
func NewFailure(message string) Envelope {
	return Envelope{
		"success": false,
		"message": message,
	}
}

// With sets key and returns the envelope for chaining.
func (e Envelope) With(key string, value interface{}) Envelope {
	e[key] = value
	return e
}

// String returns the JSON representation (best-effort) for logging purposes.
func (e Envelope) String() string {
	out, err := json.Marshal(e)
	if err != nil {
		return "{}"
	}
	return string(out)
}
