package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Priority is stored lowercase regardless of input case.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes s and reports whether it names a known priority.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (p Priority) String() string { return string(p) }

// Tags is persisted as a JSON array.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan tags: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("scan tags: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*t = out
	return nil
}

type Task struct {
	ID          string     `db:"id"`
	OwnerID     string     `db:"owner_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Completed   bool       `db:"completed"`
	Pinned      bool       `db:"pinned"`
	Priority    Priority   `db:"priority"`
	DueDate     *time.Time `db:"due_date"`
	CompletedAt *time.Time `db:"completed_at"`
	Tags        Tags       `db:"tags"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`

	// Highlight is only populated on results served by the search index.
	Highlight *Highlight `db:"-"`
}

// Highlight holds search-engine excerpts with matched terms marked up.
type Highlight struct {
	Title       []string
	Description []string
}

// TaskFilter is the structured list filter. Nil fields place no constraint.
type TaskFilter struct {
	Completed *bool
	Pinned    *bool
	Priority  *string
	DateFrom  *time.Time
	DateTo    *time.Time
	Tags      []string
	Search    *string
}

// ListOptions carries pagination and ordering for a listing.
type ListOptions struct {
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

const (
	DefaultLimit     = 20
	MaxLimit         = 100
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = "DESC"
)

// Normalize fills defaults and clamps out-of-range values.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	if o.SortBy == "" {
		o.SortBy = DefaultSortBy
	}
	if o.SortOrder == "" {
		o.SortOrder = DefaultSortOrder
	}
	return o
}

// TaskPage is one page of a listing or search.
type TaskPage struct {
	Tasks   []*Task
	Total   int
	HasMore bool
}

func NewTaskPage(tasks []*Task, total, limit, offset int) *TaskPage {
	if tasks == nil {
		tasks = []*Task{}
	}
	return &TaskPage{
		Tasks:   tasks,
		Total:   total,
		HasMore: offset+limit < total,
	}
}

type TaskStats struct {
	TotalTasks     int
	CompletedTasks int
	PendingTasks   int
	PinnedTasks    int
	TodayTasks     int
	OverdueTasks   int
}

// TaskPatch is a partial update. Nil pointers leave the column untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Pinned      *bool
	Priority    *Priority
	DueDate     *time.Time
	Tags        *Tags

	// CompletedAt overwrites completed_at unconditionally.
	CompletedAt *time.Time
	// StampCompletedAt sets completed_at only on rows where it is NULL.
	StampCompletedAt *time.Time
	ClearCompletedAt bool
}

// CreateTaskInput and UpdateTaskInput are the unvalidated caller inputs.
type CreateTaskInput struct {
	Title       string
	Description *string
	Priority    *string
	DueDate     *time.Time
	Tags        []string
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
	Pinned      *bool
	Priority    *string
	DueDate     *time.Time
	CompletedAt *time.Time
	Tags        *[]string
}
