// Package parse recovers a JSON array of records from free-form model output.
// Responses are not guaranteed to be pure JSON; they may carry an explanatory
// preamble, markdown code fences, or trailing chatter, so the extraction
// scans for the first balanced bracket slice instead of parsing the whole
// string.
package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoArray indicates that no recoverable JSON array exists in the response.
// Callers treat it as a zero-record batch, never as a pipeline-fatal error.
var ErrNoArray = errors.New("no JSON array in response")

// Array extracts the first balanced JSON array from response and returns its
// object elements. Non-object elements are skipped.
func Array(response string) ([]map[string]any, error) {
	slice, ok := balancedSlice(response)
	if !ok {
		return nil, fmt.Errorf("%w: no balanced bracket slice", ErrNoArray)
	}
	var items []any
	if err := json.Unmarshal([]byte(slice), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoArray, err)
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// balancedSlice finds the first '[' and scans forward tracking bracket depth.
// Characters inside double-quoted spans are inert, with escape handling, so
// brackets embedded in field values do not confuse the scan.
func balancedSlice(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
