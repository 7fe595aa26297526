package station

import (
	"encoding/json"
	"fmt"
)

// DecodeError describes why a station list payload was rejected. Index is the
// offending element's position, or -1 when the payload as a whole is invalid.
type DecodeError struct {
	Index  int
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decode stations: %s", e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("decode stations: element %d: field %q %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("decode stations: element %d: %s", e.Index, e.Reason)
}

// Encode serializes a station list to its portable JSON form. Element order
// and all three fields are preserved; a nil list encodes as an empty array.
func Encode(stations []Station) string {
	if stations == nil {
		stations = []Station{}
	}
	// Station contains only strings, so marshaling cannot fail.
	data, _ := json.Marshal(stations)
	return string(data)
}

// Decode parses a station list previously produced by Encode, or received
// from another device. It never panics: any malformed payload yields a
// *DecodeError. Unknown fields on elements are dropped.
func Decode(payload string) ([]Station, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		var probe any
		if json.Unmarshal([]byte(payload), &probe) != nil {
			return nil, &DecodeError{Index: -1, Reason: "payload is not valid JSON"}
		}
		return nil, &DecodeError{Index: -1, Reason: "payload is not a JSON array"}
	}

	stations := make([]Station, 0, len(raw))
	for i, elem := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			return nil, &DecodeError{Index: i, Reason: "element is not a JSON object"}
		}

		var s Station
		for _, f := range []struct {
			name string
			dst  *string
		}{
			{"id", &s.ID},
			{"name", &s.Name},
			{"url", &s.URL},
		} {
			val, ok := fields[f.name]
			if !ok {
				return nil, &DecodeError{Index: i, Field: f.name, Reason: "is missing"}
			}
			if err := json.Unmarshal(val, f.dst); err != nil {
				return nil, &DecodeError{Index: i, Field: f.name, Reason: "is not a string"}
			}
		}
		stations = append(stations, s)
	}

	return stations, nil
}
