// Package memory provides in-process implementations of the service
// stores. They evaluate query.Query the same way the SQL stores do
// (filters, sort with id tie-break, page overflow) and back the service
// and handler tests.
package memory

import (
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/query"
)

// fieldsFunc exposes the filterable attributes of an item by public name.
type fieldsFunc[T any] func(T) map[string]any

// run filters, sorts and paginates items according to q.
func run[T any](items []T, q *query.Query, fields fieldsFunc[T]) ([]T, int64, error) {
	type row struct {
		item T
		vals map[string]any
	}
	var rows []row
	for _, it := range items {
		vals := fields(it)
		if matches(vals, q.Filters) {
			rows = append(rows, row{it, vals})
		}
	}
	total := int64(len(rows))
	if err := q.CheckPage(total); err != nil {
		return nil, 0, err
	}

	keys := append(append([]query.Sort{}, q.Sort...), query.Sort{Field: "id"})
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compare(rows[i].vals[k.Field], rows[j].vals[k.Field])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})

	limit, offset := q.LimitArgs()
	out := []T{}
	for i := offset; i < len(rows) && i-offset < limit; i++ {
		out = append(out, rows[i].item)
	}
	return out, total, nil
}

func matches(vals map[string]any, filters []query.Filter) bool {
	for _, f := range filters {
		v := vals[f.Field]
		switch f.Op {
		case query.OpIn:
			found := false
			for _, want := range f.Values {
				if compare(v, want) == 0 {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			c := compare(v, f.Values[0])
			ok := map[query.Op]bool{
				query.OpEq: c == 0, query.OpNe: c != 0,
				query.OpGt: c > 0, query.OpGte: c >= 0,
				query.OpLt: c < 0, query.OpLte: c <= 0,
			}[f.Op]
			if !ok {
				return false
			}
		}
	}
	return true
}

// compare orders two attribute values of the same kind. Numbers are
// compared as float64.
func compare(a, b any) int {
	switch x := a.(type) {
	case nil:
		if b == nil {
			return 0
		}
		return -1
	case float64:
		y := toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		y, _ := b.(string)
		return strings.Compare(x, y)
	case time.Time:
		y, _ := b.(time.Time)
		return x.Compare(y)
	case bool:
		y, _ := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}
