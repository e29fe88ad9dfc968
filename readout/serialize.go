package readout

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// MarshalResult serialises a Result to JSON.
func MarshalResult(r *Result) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalResult deserialises a Result from JSON.
func UnmarshalResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarshalFailure serialises a Failure to JSON.
func MarshalFailure(f *Failure) ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFailure deserialises a Failure from JSON.
func UnmarshalFailure(data []byte) (*Failure, error) {
	var f Failure
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// HashTable returns the SHA-256 hex digest of a header and its records.
// Field boundaries are part of the digest, so ["ab","c"] and ["a","bc"]
// hash differently.
func HashTable(header []string, records [][]string) string {
	data, _ := json.Marshal(struct {
		H []string   `json:"h"`
		R [][]string `json:"r"`
	}{header, records})
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
