// Package database builds parameterized SELECT statements for list endpoints.
package database

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Operator is a comparison used by a field condition.
type Operator string

const (
	Equal    Operator = "="
	NotEqual Operator = "!="
	ILike    Operator = "ILIKE"
	In       Operator = "IN"

	unset = -1
)

var placeholderRE = regexp.MustCompile(`\$(\d+)`)

// Condition is one AND-ed predicate of a WHERE clause.
// Field conditions quote the column; raw conditions are emitted as written
// with their $N placeholders renumbered into the enclosing statement.
type Condition struct {
	field  string
	op     Operator
	value  any
	raw    string
	params []any
}

// WhereCond compares a column against a single value, or a slice for In.
func WhereCond(field string, op Operator, value any) Condition {
	return Condition{field: field, op: op, value: value}
}

// WhereRawCond embeds trusted SQL. Placeholders $1..$N refer to params.
func WhereRawCond(raw string, params ...any) Condition {
	return Condition{raw: raw, params: params}
}

// ListQueryOptions describes a single-table SELECT.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	Conditions []Condition
	OrderBy    string
	OrderDir   string
	Limit      int
	Offset     int
	CountOnly  bool
}

type ListQueryOption func(*ListQueryOptions)

func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{Table: table, Limit: unset, Offset: unset}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithOrderBy sets the sort column. Directions other than ASC and DESC are dropped.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = column
		o.OrderDir = strings.ToUpper(direction)
	}
}

// WithLimit ignores negative values; zero is a valid limit.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset ignores negative values.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// statement accumulates SQL text and positional arguments.
type statement struct {
	sb   strings.Builder
	args []any
}

func (s *statement) bind(v any) string {
	s.args = append(s.args, v)
	return "$" + strconv.Itoa(len(s.args))
}

// BuildListQuery renders the options into SQL and its arguments.
func BuildListQuery(o *ListQueryOptions) (string, []any) {
	if o == nil {
		return "", nil
	}
	st := &statement{}

	st.sb.WriteString("SELECT ")
	switch {
	case o.CountOnly:
		st.sb.WriteString("COUNT(*)")
	case len(o.Columns) == 0:
		st.sb.WriteString("*")
	default:
		cols := make([]string, len(o.Columns))
		for i, c := range o.Columns {
			cols[i] = quoteQualified(c)
		}
		st.sb.WriteString(strings.Join(cols, ", "))
	}
	st.sb.WriteString(" FROM ")
	st.sb.WriteString(pgx.Identifier{o.Table}.Sanitize())

	var preds []string
	for _, c := range o.Conditions {
		if p := st.predicate(c); p != "" {
			preds = append(preds, p)
		}
	}
	if len(preds) > 0 {
		st.sb.WriteString(" WHERE ")
		st.sb.WriteString(strings.Join(preds, " AND "))
	}
	if o.CountOnly {
		return st.sb.String(), st.args
	}

	if o.OrderBy != "" {
		st.sb.WriteString(" ORDER BY ")
		st.sb.WriteString(quoteQualified(o.OrderBy))
		if o.OrderDir == "ASC" || o.OrderDir == "DESC" {
			st.sb.WriteString(" " + o.OrderDir)
		}
	}
	if o.Limit != unset {
		st.sb.WriteString(" LIMIT " + st.bind(o.Limit))
	}
	if o.Offset != unset {
		st.sb.WriteString(" OFFSET " + st.bind(o.Offset))
	}
	return st.sb.String(), st.args
}

func (s *statement) predicate(c Condition) string {
	if c.raw != "" {
		return s.renumber(c.raw, c.params)
	}
	if c.field == "" {
		return ""
	}
	col := pgx.Identifier{c.field}.Sanitize()

	switch c.op {
	case In:
		rv := reflect.ValueOf(c.value)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return ""
		}
		marks := make([]string, rv.Len())
		for i := range rv.Len() {
			marks[i] = s.bind(rv.Index(i).Interface())
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(marks, ", "))
	case Equal, NotEqual, ILike:
		return fmt.Sprintf("%s %s %s", col, c.op, s.bind(c.value))
	}
	return ""
}

// renumber rewrites $N in raw to the statement's next free positions.
// Repeated placeholders share one argument; out-of-range ones are left alone.
func (s *statement) renumber(raw string, params []any) string {
	seen := make(map[int]string, len(params))
	return placeholderRE.ReplaceAllStringFunc(raw, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if mark, ok := seen[n]; ok {
			return mark
		}
		seen[n] = s.bind(params[n-1])
		return seen[n]
	})
}

// quoteQualified quotes "table.column" as two identifiers.
func quoteQualified(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}
