package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// decodeObjectValues reads one JSON object of string values and returns the
// values in script enumeration order: array-index keys ascending, then every
// other key in first-seen order. A repeated key keeps its first position and
// takes its last value.
func decodeObjectValues(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	type entry struct {
		key   string
		index uint32
		isIdx bool
		value string
	}

	var entries []*entry
	byKey := make(map[string]*entry)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}

		if e, seen := byKey[key]; seen {
			e.value = value
			continue
		}

		e := &entry{key: key, value: value}
		e.index, e.isIdx = arrayIndex(key)
		byKey[key] = e
		entries = append(entries, e)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.isIdx != b.isIdx {
			return a.isIdx
		}
		if a.isIdx {
			return a.index < b.index
		}
		return false
	})

	values := make([]string, len(entries))
	for i, e := range entries {
		values[i] = e.value
	}
	return values, nil
}

// arrayIndex reports whether key is a canonical array index (0 to 2^32-2, no leading zeros)
func arrayIndex(key string) (uint32, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return uint32(n), true
}
