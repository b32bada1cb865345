package aggregate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingKey is returned when an item has no value under the merge key.
var ErrMissingKey = errors.New("item has no merge key")

// ErrNotObject is returned when an item is not a JSON object.
var ErrNotObject = errors.New("item is not a JSON object")

// DefaultKey is the product identifier the catalog exports share.
const DefaultKey = "spuId"

// itemKey returns the compacted JSON value stored under key, so "1" and 1
// stay distinct keys.
func itemKey(item json.RawMessage, key string) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err != nil {
		return "", ErrNotObject
	}
	if obj == nil {
		return "", ErrNotObject
	}
	raw, ok := obj[key]
	if !ok {
		return "", ErrMissingKey
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MergeByKey merges two item lists that share an identifier. Items from
// preferred win: they come first, in the order their key first appears, and a
// later duplicate inside preferred replaces the earlier value in place. Items
// from fallback follow when their key is not present yet; the first
// occurrence wins.
func MergeByKey(fallback, preferred []json.RawMessage, key string) ([]json.RawMessage, error) {
	if key == "" {
		key = DefaultKey
	}
	index := make(map[string]int, len(preferred)+len(fallback))
	out := make([]json.RawMessage, 0, len(preferred)+len(fallback))
	for i, item := range preferred {
		k, err := itemKey(item, key)
		if err != nil {
			return nil, fmt.Errorf("preferred item %d: %w", i, err)
		}
		if pos, ok := index[k]; ok {
			out[pos] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	for i, item := range fallback {
		k, err := itemKey(item, key)
		if err != nil {
			return nil, fmt.Errorf("fallback item %d: %w", i, err)
		}
		if _, ok := index[k]; ok {
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out, nil
}
