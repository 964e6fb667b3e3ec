// Package query turns flat request parameters into a typed list query:
// filters, sort order, field projection and pagination, in that order.
// Field names are resolved against a per-resource Schema, so only known
// columns ever reach SQL and every value is bound as a parameter.
//
//	GET /api/v1/tours?difficulty=easy&price[lt]=400&sort=-price&fields=name,price&page=2&limit=10
package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/tour-booking-api/internal/apperr"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
)

// reserved parameters never become filters
var reserved = map[string]bool{"page": true, "sort": true, "limit": true, "fields": true}

// Kind selects how a raw parameter value is coerced.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindTime
	KindBool
)

// Field describes one filterable/sortable attribute.
type Field struct {
	Column string
	Kind   Kind
}

// Schema maps public field names to SQL columns for one resource.
type Schema struct {
	Fields      map[string]Field
	IDColumn    string
	DefaultSort []Sort
}

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpNe  Op = "ne"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

var sqlOps = map[Op]string{
	OpEq: "=", OpNe: "<>", OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<=",
}

// Filter is one {field, operator, value} triple.
type Filter struct {
	Field  string
	Op     Op
	Values []any
}

// Sort is one ordering key.
type Sort struct {
	Field string
	Desc  bool
}

// Query is the parsed, validated form of a list request.
type Query struct {
	Filters []Filter
	Sort    []Sort
	Fields  []string
	Page    int
	Limit   int

	schema *Schema
}

// CastError reports a value that cannot be coerced to its field's kind.
type CastError struct {
	Field string
	Value string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("Invalid %s: %s", e.Field, e.Value)
}

// Parse builds a Query for schema s from params.
func Parse(s *Schema, params url.Values) (*Query, error) {
	q := &Query{schema: s}
	if err := q.parseFilters(params); err != nil {
		return nil, err
	}
	if err := q.parseSort(params.Get("sort")); err != nil {
		return nil, err
	}
	q.parseFields(params.Get("fields"))
	q.Page = positiveInt(params.Get("page"), DefaultPage)
	q.Limit = positiveInt(params.Get("limit"), DefaultLimit)
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q, nil
}

func (q *Query) parseFilters(params url.Values) error {
	// sorted keys keep the rendered SQL stable
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}
		name, op, err := splitKey(key)
		if err != nil {
			return err
		}
		raw := params[key]
		if op == OpEq && len(raw) > 1 {
			op = OpIn
		}
		if op == OpIn || op == OpEq {
			if err := q.Where(name, op, raw...); err != nil {
				return err
			}
			continue
		}
		for _, v := range raw {
			if err := q.Where(name, op, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Where appends a filter after resolving and coercing its values. It is
// also used by callers to pin a filter, e.g. the parent tour of a nested
// reviews route.
func (q *Query) Where(name string, op Op, raw ...string) error {
	f, ok := q.schema.Fields[name]
	if !ok {
		return apperr.Newf(400, "Invalid filter field: %s", name)
	}
	vals := make([]any, 0, len(raw))
	for _, r := range raw {
		v, err := coerce(f.Kind, r)
		if err != nil {
			return &CastError{Field: name, Value: r}
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil
	}
	q.Filters = append(q.Filters, Filter{Field: name, Op: op, Values: vals})
	return nil
}

func splitKey(key string) (string, Op, error) {
	i := strings.IndexByte(key, '[')
	if i < 0 {
		return key, OpEq, nil
	}
	if i == 0 || !strings.HasSuffix(key, "]") {
		return "", "", apperr.Newf(400, "Invalid filter: %s", key)
	}
	op := Op(key[i+1 : len(key)-1])
	switch op {
	case OpGt, OpGte, OpLt, OpLte, OpNe:
		return key[:i], op, nil
	default:
		return "", "", apperr.Newf(400, "Invalid filter operator: %s", key)
	}
}

func coerce(k Kind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch k {
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, strconv.ErrSyntax
		}
		return f, nil
	case KindBool:
		return strconv.ParseBool(raw)
	case KindTime:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC(), nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return raw, nil
	}
}

func (q *Query) parseSort(raw string) error {
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		s := Sort{Field: part}
		if strings.HasPrefix(part, "-") {
			s = Sort{Field: part[1:], Desc: true}
		}
		if _, ok := q.schema.Fields[s.Field]; !ok {
			return apperr.Newf(400, "Invalid sort field: %s", s.Field)
		}
		q.Sort = append(q.Sort, s)
	}
	if len(q.Sort) == 0 {
		q.Sort = append(q.Sort, q.schema.DefaultSort...)
	}
	return nil
}

func (q *Query) parseFields(raw string) {
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			q.Fields = append(q.Fields, f)
		}
	}
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// Offset is the number of rows skipped before the current page. It
// saturates at math.MaxInt for pages too large to address.
func (q *Query) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// CheckPage rejects a page that starts past the end of the result set.
// The first page is always valid, even on an empty collection.
func (q *Query) CheckPage(total int64) error {
	if q.Page <= 1 {
		return nil
	}
	// page p starts past the end when (p-1)*limit >= total, compared by
	// division so that huge pages cannot overflow.
	if total <= 0 || int64(q.Page-1) > (total-1)/int64(q.Limit) {
		return apperr.NotFound("This page does not exist")
	}
	return nil
}
