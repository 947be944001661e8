// internal/graph/types.go
package graph

import (
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/gurkanbulca/tasknest/internal/models"
)

// Input objects

// Fields with a schema default are plain values; graphql-go always fills them.
type CreateTaskInput struct {
	Title       string
	Description *string
	Priority    string
	DueDate     *Date
	Tags        []string
}

func (in CreateTaskInput) toModel() models.CreateTaskInput {
	out := models.CreateTaskInput{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     timePtr(in.DueDate),
		Tags:        in.Tags,
	}
	if in.Priority != "" {
		out.Priority = &in.Priority
	}
	return out
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Completed   *bool
	Pinned      *bool
	Priority    *string
	DueDate     *Date
	CompletedAt *Date
	Tags        *[]string
}

func (in UpdateTaskInput) toModel() models.UpdateTaskInput {
	return models.UpdateTaskInput{
		Title:       in.Title,
		Description: in.Description,
		Completed:   in.Completed,
		Pinned:      in.Pinned,
		Priority:    in.Priority,
		DueDate:     timePtr(in.DueDate),
		CompletedAt: timePtr(in.CompletedAt),
		Tags:        in.Tags,
	}
}

type TaskFilterInput struct {
	Completed *bool
	Pinned    *bool
	Priority  *string
	DateFrom  *Date
	DateTo    *Date
	Tags      *[]string
	Search    *string
}

func (in *TaskFilterInput) toModel() *models.TaskFilter {
	if in == nil {
		return nil
	}
	f := &models.TaskFilter{
		Completed: in.Completed,
		Pinned:    in.Pinned,
		Priority:  in.Priority,
		DateFrom:  timePtr(in.DateFrom),
		DateTo:    timePtr(in.DateTo),
		Search:    in.Search,
	}
	if in.Tags != nil {
		f.Tags = *in.Tags
	}
	return f
}

// Output objects

type taskResolver struct {
	t *models.Task
}

func newTaskResolvers(tasks []*models.Task) []*taskResolver {
	out := make([]*taskResolver, len(tasks))
	for i, t := range tasks {
		out[i] = &taskResolver{t: t}
	}
	return out
}

func (r *taskResolver) ID() graphql.ID { return graphql.ID(r.t.ID) }

func (r *taskResolver) Title() string { return r.t.Title }

func (r *taskResolver) Description() *string {
	if r.t.Description == "" {
		return nil
	}
	return &r.t.Description
}

func (r *taskResolver) Completed() bool { return r.t.Completed }

func (r *taskResolver) Pinned() bool { return r.t.Pinned }

func (r *taskResolver) Priority() string { return r.t.Priority.String() }

func (r *taskResolver) DueDate() *Date { return newDatePtr(r.t.DueDate) }

func (r *taskResolver) CreatedAt() Date { return NewDate(r.t.CreatedAt) }

func (r *taskResolver) UpdatedAt() Date { return NewDate(r.t.UpdatedAt) }

func (r *taskResolver) CompletedAt() *Date { return newDatePtr(r.t.CompletedAt) }

func (r *taskResolver) Tags() []string {
	if r.t.Tags == nil {
		return []string{}
	}
	return r.t.Tags
}

func (r *taskResolver) UserID() string { return r.t.OwnerID }

func (r *taskResolver) Highlight() *highlightResolver {
	if r.t.Highlight == nil {
		return nil
	}
	return &highlightResolver{h: r.t.Highlight}
}

type highlightResolver struct {
	h *models.Highlight
}

func (r *highlightResolver) Title() *[]string { return nonEmptyList(r.h.Title) }

func (r *highlightResolver) Description() *[]string { return nonEmptyList(r.h.Description) }

func nonEmptyList(v []string) *[]string {
	if len(v) == 0 {
		return nil
	}
	return &v
}

type tasksResponseResolver struct {
	page *models.TaskPage
}

func (r *tasksResponseResolver) Tasks() []*taskResolver { return newTaskResolvers(r.page.Tasks) }

func (r *tasksResponseResolver) Total() int32 { return int32(r.page.Total) }

func (r *tasksResponseResolver) HasMore() bool { return r.page.HasMore }

type taskStatsResolver struct {
	s *models.TaskStats
}

func (r *taskStatsResolver) TotalTasks() int32 { return int32(r.s.TotalTasks) }

func (r *taskStatsResolver) CompletedTasks() int32 { return int32(r.s.CompletedTasks) }

func (r *taskStatsResolver) PendingTasks() int32 { return int32(r.s.PendingTasks) }

func (r *taskStatsResolver) PinnedTasks() int32 { return int32(r.s.PinnedTasks) }

func (r *taskStatsResolver) TodayTasks() int32 { return int32(r.s.TodayTasks) }

func (r *taskStatsResolver) OverdueTasks() int32 { return int32(r.s.OverdueTasks) }
