package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Categories is the normalized category list of a record: trimmed, non-empty
// labels in their original order. The zero value means "no categories".
type Categories []string

// Normalize trims every label and drops the empty ones.
func Normalize(labels []string) Categories {
	var out Categories
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ParseCategories splits a comma-separated label string.
func ParseCategories(s string) Categories {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return Normalize(strings.Split(s, ","))
}

// FromSources prefers a genuine label sequence and falls back to a delimited
// string when the sequence is empty.
func FromSources(labels []string, delimited string) Categories {
	if c := Normalize(labels); len(c) > 0 {
		return c
	}
	return ParseCategories(delimited)
}

func (c Categories) String() string {
	return strings.Join(c, ", ")
}

func (c Categories) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(c))
}

// UnmarshalJSON accepts either a JSON array of strings or a single
// comma-separated string.
func (c *Categories) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = nil
		return nil
	}

	switch data[0] {
	case '[':
		var labels []string
		if err := json.Unmarshal(data, &labels); err != nil {
			return fmt.Errorf("decoding categories: %w", err)
		}
		*c = Normalize(labels)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decoding categories: %w", err)
		}
		*c = ParseCategories(s)
	default:
		return fmt.Errorf("decoding categories: unexpected %s", data)
	}
	return nil
}
