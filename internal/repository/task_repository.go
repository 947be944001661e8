// internal/repository/task_repository.go
package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/gurkanbulca/tasknest/internal/database"
	"github.com/gurkanbulca/tasknest/internal/models"
)

// ErrNotFound is returned when a task does not exist or belongs to another owner.
var ErrNotFound = errors.New("task not found")

// TaskRepository is the primary store for tasks. Every method is scoped to
// an owner identity.
type TaskRepository struct {
	db      *sqlx.DB
	dialect string
	now     func() time.Time
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{
		db:      db,
		dialect: database.Dialect(db),
		now:     time.Now,
	}
}

// WithClock replaces the clock used for store-managed timestamps.
func (r *TaskRepository) WithClock(now func() time.Time) *TaskRepository {
	r.now = now
	return r
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Create inserts t, assigning its ID and timestamps.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	now := dbTime(r.now())
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Tags == nil {
		t.Tags = models.Tags{}
	}

	query, args := sql.Dialect(r.dialect).
		Insert(tableTasks).
		Columns(taskColumns...).
		Values(
			t.ID,
			t.OwnerID,
			t.Title,
			t.Description,
			t.Completed,
			t.Pinned,
			t.Priority,
			dbTimePtr(t.DueDate),
			dbTimePtr(t.CompletedAt),
			t.Tags,
			t.CreatedAt,
			t.UpdatedAt,
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// Get returns the owner's task with the given id.
func (r *TaskRepository) Get(ctx context.Context, owner, id string) (*models.Task, error) {
	return r.get(ctx, r.db, owner, id)
}

func (r *TaskRepository) get(ctx context.Context, q sqlx.QueryerContext, owner, id string) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query, args := sql.Dialect(r.dialect).
		Select(taskColumns...).
		From(sql.Table(tableTasks)).
		Where(sql.And(sql.EQ(FieldID, id), sql.EQ(FieldOwnerID, owner))).
		Query()

	var t models.Task
	if err := sqlx.GetContext(ctx, q, &t, query, args...); err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// List runs a filtered listing and returns the page plus the total number of
// matches.
func (r *TaskRepository) List(ctx context.Context, q ListQuery) ([]*models.Task, int, error) {
	countQuery, countArgs := q.Count(r.dialect)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	pageQuery, pageArgs, err := q.Page(r.dialect)
	if err != nil {
		return nil, 0, err
	}
	tasks := []*models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, pageQuery, pageArgs...); err != nil {
		return nil, 0, fmt.Errorf("query tasks: %w", err)
	}

	return tasks, total, nil
}

// ListCreatedBetween returns the owner's tasks created in [from, to),
// pinned first, then newest first.
func (r *TaskRepository) ListCreatedBetween(ctx context.Context, owner string, from, to time.Time) ([]*models.Task, error) {
	s := sql.Dialect(r.dialect).
		Select(taskColumns...).
		From(sql.Table(tableTasks)).
		Where(sql.And(
			sql.EQ(FieldOwnerID, owner),
			sql.GTE(FieldCreatedAt, dbTime(from)),
			sql.LT(FieldCreatedAt, dbTime(to)),
		))
	s.OrderBy(sql.Desc(s.C(FieldPinned)), sql.Desc(s.C(FieldCreatedAt)), sql.Desc(s.C(FieldID)))
	query, args := s.Query()

	tasks := []*models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("query tasks by date: %w", err)
	}
	return tasks, nil
}

// SearchSubstring is the unscored fallback for full-text search.
func (r *TaskRepository) SearchSubstring(ctx context.Context, owner, text string, limit, offset int) ([]*models.Task, int, error) {
	countQuery, countArgs := countWhere(r.dialect, substringPredicate(owner, text))
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count search matches: %w", err)
	}

	s := sql.Dialect(r.dialect).
		Select(taskColumns...).
		From(sql.Table(tableTasks)).
		Where(substringPredicate(owner, text))
	s.OrderBy(sql.Desc(s.C(FieldCreatedAt)), sql.Desc(s.C(FieldID)))
	if limit > 0 {
		s.Limit(limit)
	}
	if offset > 0 {
		s.Offset(offset)
	}
	query, args := s.Query()

	tasks := []*models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search tasks: %w", err)
	}
	return tasks, total, nil
}

// Stats counts the owner's tasks. dayStart/dayEnd bound "today"; a task is
// overdue when its due date is before dayStart and it is not completed.
func (r *TaskRepository) Stats(ctx context.Context, owner string, dayStart, dayEnd time.Time) (*models.TaskStats, error) {
	stats := &models.TaskStats{}
	counts := []struct {
		dst  *int
		pred func() *sql.Predicate
	}{
		{&stats.TotalTasks, func() *sql.Predicate { return sql.EQ(FieldOwnerID, owner) }},
		{&stats.CompletedTasks, func() *sql.Predicate {
			return sql.And(sql.EQ(FieldOwnerID, owner), sql.EQ(FieldCompleted, true))
		}},
		{&stats.PinnedTasks, func() *sql.Predicate {
			return sql.And(sql.EQ(FieldOwnerID, owner), sql.EQ(FieldPinned, true))
		}},
		{&stats.TodayTasks, func() *sql.Predicate {
			return sql.And(
				sql.EQ(FieldOwnerID, owner),
				sql.GTE(FieldCreatedAt, dbTime(dayStart)),
				sql.LT(FieldCreatedAt, dbTime(dayEnd)),
			)
		}},
		{&stats.OverdueTasks, func() *sql.Predicate {
			return sql.And(
				sql.EQ(FieldOwnerID, owner),
				sql.LT(FieldDueDate, dbTime(dayStart)),
				sql.EQ(FieldCompleted, false),
			)
		}},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			query, args := countWhere(r.dialect, c.pred())
			return r.db.GetContext(gctx, c.dst, query, args...)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("count task stats: %w", err)
	}

	stats.PendingTasks = stats.TotalTasks - stats.CompletedTasks
	return stats, nil
}

// Update applies patch to one task and returns the stored result.
func (r *TaskRepository) Update(ctx context.Context, owner, id string, patch *models.TaskPatch) (*models.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	n, err := r.applyPatch(ctx, tx, owner, []string{id}, patch)
	if err != nil {
		return nil, rollback(tx, err)
	}
	if n == 0 {
		return nil, rollback(tx, ErrNotFound)
	}

	t, err := r.get(ctx, tx, owner, id)
	if err != nil {
		return nil, rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return t, nil
}

// BulkUpdate applies the same patch to every listed task the owner holds and
// returns the updated records. Unknown or foreign ids are skipped.
func (r *TaskRepository) BulkUpdate(ctx context.Context, owner string, ids []string, patch *models.TaskPatch) ([]*models.Task, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*models.Task{}, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	if _, err := r.applyPatch(ctx, tx, owner, ids, patch); err != nil {
		return nil, rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk update: %w", err)
	}

	return r.FindByIDs(ctx, owner, ids)
}

// FindByIDs returns the owner's tasks among ids, newest first.
func (r *TaskRepository) FindByIDs(ctx context.Context, owner string, ids []string) ([]*models.Task, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return []*models.Task{}, nil
	}

	s := sql.Dialect(r.dialect).
		Select(taskColumns...).
		From(sql.Table(tableTasks)).
		Where(sql.And(sql.EQ(FieldOwnerID, owner), sql.In(FieldID, toArgs(ids)...)))
	s.OrderBy(sql.Desc(s.C(FieldCreatedAt)), sql.Desc(s.C(FieldID)))
	query, args := s.Query()

	tasks := []*models.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("query tasks by id: %w", err)
	}
	return tasks, nil
}

// Delete removes one task and reports whether a row was removed.
func (r *TaskRepository) Delete(ctx context.Context, owner, id string) (bool, error) {
	n, err := r.BulkDelete(ctx, owner, []string{id})
	return n > 0, err
}

// BulkDelete removes the owner's tasks among ids and returns how many were
// removed.
func (r *TaskRepository) BulkDelete(ctx context.Context, owner string, ids []string) (int64, error) {
	ids = validIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	query, args := sql.Dialect(r.dialect).
		Delete(tableTasks).
		Where(sql.And(sql.EQ(FieldOwnerID, owner), sql.In(FieldID, toArgs(ids)...))).
		Query()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete tasks: %w", err)
	}
	return n, nil
}

// Each walks every task in the store, across owners, in id order and hands
// them to fn in batches.
func (r *TaskRepository) Each(ctx context.Context, batchSize int, fn func([]*models.Task) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	var lastID string
	for {
		s := sql.Dialect(r.dialect).
			Select(taskColumns...).
			From(sql.Table(tableTasks))
		if lastID != "" {
			s.Where(sql.GT(FieldID, lastID))
		}
		s.OrderBy(sql.Asc(s.C(FieldID))).Limit(batchSize)
		query, args := s.Query()

		batch := []*models.Task{}
		if err := r.db.SelectContext(ctx, &batch, query, args...); err != nil {
			return fmt.Errorf("scan tasks: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		lastID = batch[len(batch)-1].ID
	}
}

func (r *TaskRepository) applyPatch(ctx context.Context, tx *sqlx.Tx, owner string, ids []string, patch *models.TaskPatch) (int64, error) {
	scope := func() *sql.Predicate {
		return sql.And(sql.EQ(FieldOwnerID, owner), sql.In(FieldID, toArgs(ids)...))
	}

	u := sql.Dialect(r.dialect).
		Update(tableTasks).
		Set(FieldUpdatedAt, dbTime(r.now()))

	if patch.Title != nil {
		u.Set(FieldTitle, *patch.Title)
	}
	if patch.Description != nil {
		u.Set(FieldDescription, *patch.Description)
	}
	if patch.Completed != nil {
		u.Set(FieldCompleted, *patch.Completed)
	}
	if patch.Pinned != nil {
		u.Set(FieldPinned, *patch.Pinned)
	}
	if patch.Priority != nil {
		u.Set(FieldPriority, *patch.Priority)
	}
	if patch.DueDate != nil {
		u.Set(FieldDueDate, dbTime(*patch.DueDate))
	}
	if patch.Tags != nil {
		u.Set(FieldTags, *patch.Tags)
	}
	switch {
	case patch.CompletedAt != nil:
		u.Set(FieldCompletedAt, dbTime(*patch.CompletedAt))
	case patch.ClearCompletedAt:
		u.SetNull(FieldCompletedAt)
	}

	query, args := u.Where(scope()).Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update tasks: %w", err)
	}

	// Completion time is recorded once, when completion first becomes true.
	if patch.StampCompletedAt != nil && patch.CompletedAt == nil && !patch.ClearCompletedAt && n > 0 {
		query, args := sql.Dialect(r.dialect).
			Update(tableTasks).
			Set(FieldCompletedAt, dbTime(*patch.StampCompletedAt)).
			Where(sql.And(scope(), sql.IsNull(FieldCompletedAt))).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return 0, fmt.Errorf("stamp completion time: %w", err)
		}
	}

	return n, nil
}

// Helper function for transaction rollback
func rollback(tx *sqlx.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = fmt.Errorf("%w: %v", err, rerr)
	}
	return err
}

// dbTime normalizes timestamps to UTC at the precision Postgres keeps.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func dbTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := dbTime(*t)
	return &v
}

// validIDs drops malformed and duplicate ids; they can never match a row.
func validIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
