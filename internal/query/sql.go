package query

import (
	"strings"
)

// WhereSQL renders the filters as a conjunction of placeholders. base
// conditions (e.g. visibility rules) are prepended. The result is "1=1"
// when there is nothing to filter.
func (q *Query) WhereSQL(base ...string) (string, []any) {
	conds := append([]string{}, base...)
	var args []any
	for _, f := range q.Filters {
		col := q.schema.Fields[f.Field].Column
		switch f.Op {
		case OpIn:
			marks := strings.TrimSuffix(strings.Repeat("?,", len(f.Values)), ",")
			conds = append(conds, col+" IN ("+marks+")")
			args = append(args, f.Values...)
		default:
			conds = append(conds, col+" "+sqlOps[f.Op]+" ?")
			args = append(args, f.Values[0])
		}
	}
	if len(conds) == 0 {
		return "1=1", nil
	}
	return strings.Join(conds, " AND "), args
}

// OrderSQL renders the sort keys with the identity column appended as a
// tie-break so that pages never overlap.
func (q *Query) OrderSQL() string {
	parts := make([]string, 0, len(q.Sort)+1)
	hasID := false
	for _, s := range q.Sort {
		col := q.schema.Fields[s.Field].Column
		if col == q.schema.IDColumn {
			hasID = true
		}
		dir := " ASC"
		if s.Desc {
			dir = " DESC"
		}
		parts = append(parts, col+dir)
	}
	if !hasID {
		parts = append(parts, q.schema.IDColumn+" ASC")
	}
	return strings.Join(parts, ", ")
}

// LimitArgs returns LIMIT and OFFSET values for the current page.
func (q *Query) LimitArgs() (int, int) {
	return q.Limit, q.Offset()
}
