// internal/repository/query_test.go
package repository

import (
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/tasknest/internal/models"
	"github.com/gurkanbulca/tasknest/internal/testutil"
)

func TestListQuery_CountSharesPageFilter(t *testing.T) {
	q := ListQuery{
		Owner: "user-1",
		Filter: &models.TaskFilter{
			Completed: testutil.Ptr(false),
			Priority:  testutil.Ptr(" High "),
			Tags:      []string{"work", " ", "home"},
		},
		Limit:  10,
		Offset: 20,
	}

	page, pageArgs, err := q.Page(dialect.Postgres)
	require.NoError(t, err)
	count, countArgs := q.Count(dialect.Postgres)

	assert.Contains(t, page, "LIMIT 10")
	assert.Contains(t, page, "OFFSET 20")
	assert.Contains(t, count, "COUNT(*)")
	assert.NotContains(t, count, "LIMIT")
	assert.NotContains(t, count, "ORDER BY")

	assert.Equal(t, countArgs, pageArgs)
	assert.Contains(t, countArgs, "user-1")
	assert.Contains(t, countArgs, "high")
}

func TestListQuery_Sorting(t *testing.T) {
	tests := []struct {
		name      string
		sortBy    string
		sortOrder string
		want      string
		wantErr   bool
	}{
		{name: "default", want: `ORDER BY "tasks"."created_at" DESC, "tasks"."id" DESC`},
		{name: "api name ascending", sortBy: "dueDate", sortOrder: "asc", want: `ORDER BY "tasks"."due_date" ASC, "tasks"."id" ASC`},
		{name: "column name", sortBy: "updated_at", sortOrder: "DESC", want: `ORDER BY "tasks"."updated_at" DESC`},
		{name: "anything but asc is descending", sortBy: "title", sortOrder: "sideways", want: `ORDER BY "tasks"."title" DESC`},
		{name: "priority rank", sortBy: "priority", sortOrder: "ASC", want: `WHEN 'high' THEN 3 END ASC`},
		{name: "unknown field", sortBy: "owner_id", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _, err := ListQuery{Owner: "u", SortBy: tt.sortBy, SortOrder: tt.sortOrder}.Page(dialect.Postgres)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSortField)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, query, tt.want)
		})
	}
}

func TestFilterPredicate_Dates(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))
	to := from.Add(24 * time.Hour)

	query, args := countWhere(dialect.Postgres, filterPredicate("u", &models.TaskFilter{DateFrom: &from, DateTo: &to}))

	assert.Contains(t, query, `"created_at" >= $2`)
	assert.Contains(t, query, `"created_at" <= $3`)
	require.Len(t, args, 3)
	assert.Equal(t, time.UTC, args[1].(time.Time).Location())
	assert.True(t, from.Equal(args[1].(time.Time)))
}

func TestSubstringPredicate_CastsTagsOnPostgres(t *testing.T) {
	pg, _ := countWhere(dialect.Postgres, substringPredicate("u", "x"))
	assert.Contains(t, pg, `LOWER("tags"::text) LIKE`)

	lite, _ := countWhere(dialect.SQLite, substringPredicate("u", "x"))
	assert.Contains(t, lite, "LOWER(`tags`) LIKE")
}
