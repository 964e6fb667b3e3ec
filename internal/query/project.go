package query

import (
	"github.com/goccy/go-json"
)

// Project reduces each item to the requested fields plus "id". With no
// fields requested items are returned unchanged.
func Project[T any](items []T, fields []string) (any, error) {
	if len(fields) == 0 {
		return items, nil
	}
	keep := map[string]bool{"id": true}
	for _, f := range fields {
		keep[f] = true
	}
	out := make([]map[string]json.RawMessage, 0, len(items))
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		var full map[string]json.RawMessage
		if err := json.Unmarshal(b, &full); err != nil {
			return nil, err
		}
		doc := make(map[string]json.RawMessage, len(keep))
		for k, v := range full {
			if keep[k] {
				doc[k] = v
			}
		}
		out = append(out, doc)
	}
	return out, nil
}
