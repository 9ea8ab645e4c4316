package session

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// EmptyList is the zero value stored in JSON list columns.
var EmptyList = datatypes.JSON([]byte("[]"))

// JSONStrings decodes a JSON list column into strings, tolerating malformed
// or empty payloads.
func JSONStrings(raw datatypes.JSON) []string {
	var out []string
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// JSONInts decodes a JSON list column into ints.
func JSONInts(raw datatypes.JSON) []int {
	var out []int
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// JSONList encodes a value for a JSON list column. Values that fail to
// marshal become an empty list rather than corrupting the row.
func JSONList(value any) datatypes.JSON {
	encoded, err := json.Marshal(value)
	if err != nil {
		return EmptyList
	}
	return datatypes.JSON(encoded)
}
