// internal/repository/query.go
package repository

import (
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqljson"

	"github.com/gurkanbulca/tasknest/internal/models"
)

const tableTasks = "tasks"

// Columns of the tasks table.
const (
	FieldID          = "id"
	FieldOwnerID     = "owner_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCompleted   = "completed"
	FieldPinned      = "pinned"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
	FieldCompletedAt = "completed_at"
	FieldTags        = "tags"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

var taskColumns = []string{
	FieldID,
	FieldOwnerID,
	FieldTitle,
	FieldDescription,
	FieldCompleted,
	FieldPinned,
	FieldPriority,
	FieldDueDate,
	FieldCompletedAt,
	FieldTags,
	FieldCreatedAt,
	FieldUpdatedAt,
}

// ErrInvalidSortField is returned for a sortBy that names no sortable column.
var ErrInvalidSortField = errors.New("invalid sort field")

// sortColumns accepts both the API field names and the column names.
var sortColumns = map[string]string{
	"createdAt":   FieldCreatedAt,
	"updatedAt":   FieldUpdatedAt,
	"dueDate":     FieldDueDate,
	"completedAt": FieldCompletedAt,
	"title":       FieldTitle,
	"pinned":      FieldPinned,
	"completed":   FieldCompleted,
	"priority":    FieldPriority,

	FieldCreatedAt:   FieldCreatedAt,
	FieldUpdatedAt:   FieldUpdatedAt,
	FieldDueDate:     FieldDueDate,
	FieldCompletedAt: FieldCompletedAt,
}

// ListQuery is a filtered, sorted, paginated listing for one owner. It
// compiles to a page select and a count select that share the same WHERE
// clause, so Total always reflects every match regardless of pagination.
type ListQuery struct {
	Owner     string
	Filter    *models.TaskFilter
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// Page renders the select for the requested page.
func (q ListQuery) Page(dialect string) (string, []any, error) {
	order, err := orderBy(q.SortBy, q.SortOrder)
	if err != nil {
		return "", nil, err
	}

	s := sql.Dialect(dialect).
		Select(taskColumns...).
		From(sql.Table(tableTasks)).
		Where(q.predicate())
	order(s)
	if q.Limit > 0 {
		s.Limit(q.Limit)
	}
	if q.Offset > 0 {
		s.Offset(q.Offset)
	}

	query, args := s.Query()
	return query, args, nil
}

// Count renders the count of all rows matching the filter.
func (q ListQuery) Count(dialect string) (string, []any) {
	return countWhere(dialect, q.predicate())
}

// predicate builds a fresh WHERE clause on every call; ent predicates carry
// builder state and are not reused across statements.
func (q ListQuery) predicate() *sql.Predicate {
	return filterPredicate(q.Owner, q.Filter)
}

// filterPredicate ANDs the owner scope with every constraint set on f.
func filterPredicate(owner string, f *models.TaskFilter) *sql.Predicate {
	preds := []*sql.Predicate{sql.EQ(FieldOwnerID, owner)}
	if f == nil {
		return sql.And(preds...)
	}

	if f.Completed != nil {
		preds = append(preds, sql.EQ(FieldCompleted, *f.Completed))
	}
	if f.Pinned != nil {
		preds = append(preds, sql.EQ(FieldPinned, *f.Pinned))
	}
	if f.Priority != nil {
		if p := strings.ToLower(strings.TrimSpace(*f.Priority)); p != "" {
			preds = append(preds, sql.EQ(FieldPriority, p))
		}
	}
	if f.DateFrom != nil {
		preds = append(preds, sql.GTE(FieldCreatedAt, dbTime(*f.DateFrom)))
	}
	if f.DateTo != nil {
		preds = append(preds, sql.LTE(FieldCreatedAt, dbTime(*f.DateTo)))
	}
	if tags := nonEmpty(f.Tags); len(tags) > 0 {
		preds = append(preds, anyTag(tags))
	}
	if f.Search != nil {
		if text := strings.TrimSpace(*f.Search); text != "" {
			preds = append(preds, sql.Or(
				sql.ContainsFold(FieldTitle, text),
				sql.ContainsFold(FieldDescription, text),
			))
		}
	}

	return sql.And(preds...)
}

// anyTag matches rows whose tags array holds at least one of tags.
func anyTag(tags []string) *sql.Predicate {
	ors := make([]*sql.Predicate, 0, len(tags))
	for _, tag := range tags {
		ors = append(ors, sqljson.ValueContains(FieldTags, tag))
	}
	return sql.Or(ors...)
}

// substringPredicate is the fallback text match used when the search index
// is unavailable: title, description or any tag contains text, ignoring case.
func substringPredicate(owner, text string) *sql.Predicate {
	return sql.And(
		sql.EQ(FieldOwnerID, owner),
		sql.Or(
			sql.ContainsFold(FieldTitle, text),
			sql.ContainsFold(FieldDescription, text),
			tagsContainFold(text),
		),
	)
}

// tagsContainFold matches text against the serialized tags array. Postgres
// stores tags as JSONB, which has no LIKE operator, so it is cast to text.
func tagsContainFold(text string) *sql.Predicate {
	return sql.P(func(b *sql.Builder) {
		b.WriteString("LOWER(").Ident(FieldTags)
		if b.Dialect() == dialect.Postgres {
			b.WriteString("::text")
		}
		b.WriteString(") LIKE ")
		b.Arg("%" + strings.ToLower(text) + "%")
	})
}

func countWhere(dialect string, p *sql.Predicate) (string, []any) {
	return sql.Dialect(dialect).
		Select(sql.Count("*")).
		From(sql.Table(tableTasks)).
		Where(p).
		Query()
}

// orderBy resolves sortBy/sortOrder. ASC (any case) sorts ascending, any
// other order descending. id is appended so pages are stable.
func orderBy(sortBy, sortOrder string) (func(*sql.Selector), error) {
	field := strings.TrimSpace(sortBy)
	if field == "" {
		field = models.DefaultSortBy
	}
	desc := !strings.EqualFold(strings.TrimSpace(sortOrder), "ASC")

	column, ok := sortColumns[field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSortField, sortBy)
	}

	if column == FieldPriority {
		return func(s *sql.Selector) {
			dir := " ASC"
			if desc {
				dir = " DESC"
			}
			s.OrderExpr(sql.ExprP(
				"CASE " + s.C(FieldPriority) + " WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 END" + dir,
			))
			s.OrderBy(direction(s.C(FieldID), desc))
		}, nil
	}

	return func(s *sql.Selector) {
		s.OrderBy(direction(s.C(column), desc), direction(s.C(FieldID), desc))
	}, nil
}

func direction(column string, desc bool) string {
	if desc {
		return sql.Desc(column)
	}
	return sql.Asc(column)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
