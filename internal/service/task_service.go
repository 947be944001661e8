// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gurkanbulca/tasknest/internal/middleware"
	"github.com/gurkanbulca/tasknest/internal/models"
	"github.com/gurkanbulca/tasknest/internal/repository"
)

// SearchIndex is the secondary index writes are propagated to.
type SearchIndex interface {
	Upsert(ctx context.Context, t *models.Task) error
	Update(ctx context.Context, t *models.Task) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, owner, text string, limit, offset int) (*models.TaskPage, error)
	BulkIndex(ctx context.Context, tasks []*models.Task) error
}

// Options tunes a TaskService. Zero values select defaults.
type Options struct {
	Location               *time.Location
	StoreTimeout           time.Duration
	PropagationTimeout     time.Duration
	PropagationConcurrency int
	Validation             *ValidationConfig
	Now                    func() time.Time
}

// TaskService commits every write to the primary store first and then
// propagates it to the search index on a best-effort basis.
type TaskService struct {
	repo               *repository.TaskRepository
	index              SearchIndex
	loc                *time.Location
	storeTimeout       time.Duration
	propagationTimeout time.Duration
	concurrency        int
	validation         ValidationConfig
	now                func() time.Time
}

// NewTaskService creates the service. index may be nil, in which case
// propagation is skipped and search always uses the store fallback.
func NewTaskService(repo *repository.TaskRepository, index SearchIndex, opts Options) *TaskService {
	s := &TaskService{
		repo:               repo,
		index:              index,
		loc:                opts.Location,
		storeTimeout:       opts.StoreTimeout,
		propagationTimeout: opts.PropagationTimeout,
		concurrency:        opts.PropagationConcurrency,
		validation:         DefaultValidationConfig(),
		now:                opts.Now,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = 10 * time.Second
	}
	if s.propagationTimeout <= 0 {
		s.propagationTimeout = 5 * time.Second
	}
	if s.concurrency <= 0 {
		s.concurrency = 8
	}
	if opts.Validation != nil {
		s.validation = *opts.Validation
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateTask creates a new task for the caller
func (s *TaskService) CreateTask(ctx context.Context, in models.CreateTaskInput) (*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	task, err := s.validateCreate(in)
	if err != nil {
		return nil, err
	}
	task.OwnerID = owner

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	task, err = s.repo.Create(sctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.propagate(ctx, "index", task.ID, func(ctx context.Context) error {
		return s.index.Upsert(ctx, task)
	})
	return task, nil
}

// GetTask retrieves one of the caller's tasks by ID
func (s *TaskService) GetTask(ctx context.Context, id string) (*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	task, err := s.repo.Get(sctx, owner, id)
	if err != nil {
		return nil, storeError("get task", err)
	}
	return task, nil
}

// GetTasks lists the caller's tasks matching filter.
func (s *TaskService) GetTasks(ctx context.Context, filter *models.TaskFilter, opts models.ListOptions) (*models.TaskPage, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	tasks, total, err := s.repo.List(sctx, repository.ListQuery{
		Owner:     owner,
		Filter:    filter,
		SortBy:    opts.SortBy,
		SortOrder: opts.SortOrder,
		Limit:     opts.Limit,
		Offset:    opts.Offset,
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidSortField) {
			return nil, &ValidationError{Violations: []string{err.Error()}}
		}
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return models.NewTaskPage(tasks, total, opts.Limit, opts.Offset), nil
}

// GetTasksByDate returns the caller's tasks created on the calendar day
// containing date, pinned first and then newest first.
func (s *TaskService) GetTasksByDate(ctx context.Context, date time.Time) ([]*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	start, end := s.dayBounds(date)

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	tasks, err := s.repo.ListCreatedBetween(sctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks by date: %w", err)
	}
	return tasks, nil
}

// SearchTasks queries the search index and falls back to a substring match
// in the primary store when the index is missing or fails.
func (s *TaskService) SearchTasks(ctx context.Context, text string, limit, offset int) (*models.TaskPage, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	text, err = validateSearch(text)
	if err != nil {
		return nil, err
	}
	opts := models.ListOptions{Limit: limit, Offset: offset}.Normalize()

	if s.index != nil {
		page, err := s.index.Search(ctx, owner, text, opts.Limit, opts.Offset)
		if err == nil {
			return page, nil
		}
		log.Printf("[WARN] Search index query failed, falling back to store: %v", err)
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	tasks, total, err := s.repo.SearchSubstring(sctx, owner, text, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}
	return models.NewTaskPage(tasks, total, opts.Limit, opts.Offset), nil
}

// GetTaskStats counts the caller's tasks. "Today" and "overdue" are relative
// to the current calendar day in the configured location.
func (s *TaskService) GetTaskStats(ctx context.Context) (*models.TaskStats, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	start, end := s.dayBounds(s.now())

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	stats, err := s.repo.Stats(sctx, owner, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get task stats: %w", err)
	}
	return stats, nil
}

// UpdateTask applies a partial update to one of the caller's tasks
func (s *TaskService) UpdateTask(ctx context.Context, id string, in models.UpdateTaskInput) (*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, owner, id, patch)
}

// ToggleTaskComplete flips completion, stamping or clearing the completion
// time with it.
func (s *TaskService) ToggleTaskComplete(ctx context.Context, id string) (*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.read(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	completed := !current.Completed
	patch := &models.TaskPatch{Completed: &completed}
	if completed {
		now := s.now()
		patch.CompletedAt = &now
	} else {
		patch.ClearCompletedAt = true
	}
	return s.update(ctx, owner, id, patch)
}

// ToggleTaskPin flips the pinned flag.
func (s *TaskService) ToggleTaskPin(ctx context.Context, id string) (*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.read(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	pinned := !current.Pinned
	return s.update(ctx, owner, id, &models.TaskPatch{Pinned: &pinned})
}

// DeleteTask deletes one of the caller's tasks and reports whether it existed.
func (s *TaskService) DeleteTask(ctx context.Context, id string) (bool, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return false, err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	removed, err := s.repo.Delete(sctx, owner, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task: %w", err)
	}

	if removed {
		s.propagate(ctx, "remove", id, func(ctx context.Context) error {
			return s.index.Remove(ctx, id)
		})
	}
	return removed, nil
}

// BulkDeleteTasks deletes the caller's tasks among ids. It reports whether
// at least one task was removed.
func (s *TaskService) BulkDeleteTasks(ctx context.Context, ids []string) (bool, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return false, err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()

	// Only ids the caller owns are removed from the index; documents are
	// keyed by id alone.
	owned, err := s.repo.FindByIDs(sctx, owner, ids)
	if err != nil {
		return false, fmt.Errorf("failed to delete tasks: %w", err)
	}
	n, err := s.repo.BulkDelete(sctx, owner, ids)
	if err != nil {
		return false, fmt.Errorf("failed to delete tasks: %w", err)
	}

	s.propagateAll(ctx, "remove", owned, func(ctx context.Context, t *models.Task) error {
		return s.index.Remove(ctx, t.ID)
	})
	return n > 0, nil
}

// BulkUpdateTasks applies the same update to the caller's tasks among ids and
// returns the updated records.
func (s *TaskService) BulkUpdateTasks(ctx context.Context, ids []string, in models.UpdateTaskInput) ([]*models.Task, error) {
	owner, err := ownerFrom(ctx)
	if err != nil {
		return nil, err
	}
	patch, err := s.buildPatch(in)
	if err != nil {
		return nil, err
	}

	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	tasks, err := s.repo.BulkUpdate(sctx, owner, ids, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update tasks: %w", err)
	}

	s.propagateAll(ctx, "update", tasks, func(ctx context.Context, t *models.Task) error {
		return s.index.Update(ctx, t)
	})
	return tasks, nil
}

// Reindex copies every task in the primary store into the search index in
// batches and returns how many were written.
func (s *TaskService) Reindex(ctx context.Context, batchSize int) (int, error) {
	if s.index == nil {
		return 0, ErrNoSearchIndex
	}

	var indexed int
	err := s.repo.Each(ctx, batchSize, func(batch []*models.Task) error {
		if err := s.index.BulkIndex(ctx, batch); err != nil {
			return fmt.Errorf("after %d tasks: %w", indexed, err)
		}
		indexed += len(batch)
		log.Printf("[INFO] Reindexed %d tasks", indexed)
		return nil
	})
	if err != nil {
		return indexed, fmt.Errorf("reindex: %w", err)
	}
	return indexed, nil
}

func (s *TaskService) read(ctx context.Context, owner, id string) (*models.Task, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	task, err := s.repo.Get(sctx, owner, id)
	if err != nil {
		return nil, storeError("get task", err)
	}
	return task, nil
}

func (s *TaskService) update(ctx context.Context, owner, id string, patch *models.TaskPatch) (*models.Task, error) {
	sctx, cancel := s.storeContext(ctx)
	defer cancel()
	task, err := s.repo.Update(sctx, owner, id, patch)
	if err != nil {
		return nil, storeError("update task", err)
	}

	s.propagate(ctx, "update", task.ID, func(ctx context.Context) error {
		return s.index.Update(ctx, task)
	})
	return task, nil
}

// propagate runs fn against the search index after a committed write. It is
// detached from request cancellation and its failure is only logged.
func (s *TaskService) propagate(ctx context.Context, action, id string, fn func(context.Context) error) {
	if s.index == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.propagationTimeout)
	defer cancel()

	if err := fn(pctx); err != nil {
		log.Printf("[WARN] Search index %s failed for task %s: %v", action, id, err)
	}
}

// propagateAll propagates each task concurrently; one failure does not stop
// the others.
func (s *TaskService) propagateAll(ctx context.Context, action string, tasks []*models.Task, fn func(context.Context, *models.Task) error) {
	if s.index == nil || len(tasks) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			s.propagate(ctx, action, t.ID, func(ctx context.Context) error {
				return fn(ctx, t)
			})
			return nil
		})
	}
	_ = g.Wait()
}

func (s *TaskService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// dayBounds returns the start of the calendar day containing t in the
// service location and the start of the next day.
func (s *TaskService) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

func ownerFrom(ctx context.Context) (string, error) {
	owner, ok := middleware.OwnerFromContext(ctx)
	if !ok {
		return "", ErrMissingOwner
	}
	return owner, nil
}

func storeError(action string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
