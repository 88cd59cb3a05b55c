package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexID is a record id that clients may send as a JSON number or a JSON string.
type FlexID uint64

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		val, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", s)
		}
		*f = FlexID(val)
		return nil
	}

	return fmt.Errorf("invalid id %s: expected number or string", string(data))
}

// MarshalJSON implements the json.Marshaler interface.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(f))
}

// Uint64 returns the id as a uint64
func (f FlexID) Uint64() uint64 {
	return uint64(f)
}
