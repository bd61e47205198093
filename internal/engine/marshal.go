package engine

import "encoding/json"

// Payload types are all plain structs; a marshal failure here is a
// programming error, not a runtime condition.
func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
