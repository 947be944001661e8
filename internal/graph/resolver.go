// internal/graph/resolver.go
package graph

import (
	"context"
	_ "embed"
	"errors"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/gurkanbulca/tasknest/internal/models"
	"github.com/gurkanbulca/tasknest/internal/service"
)

//go:embed schema.graphql
var schemaSDL string

// Resolver is the root resolver for queries and mutations.
type Resolver struct {
	tasks *service.TaskService
}

func NewResolver(tasks *service.TaskService) *Resolver {
	return &Resolver{tasks: tasks}
}

// NewSchema parses the API schema and binds it to r.
func NewSchema(r *Resolver) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, r,
		graphql.UseStringDescriptions(),
		graphql.MaxDepth(10),
	)
}

// Queries

type getTasksArgs struct {
	Filter    *TaskFilterInput
	Limit     int32
	Offset    int32
	SortBy    string
	SortOrder string
}

func (r *Resolver) GetTasks(ctx context.Context, args getTasksArgs) (*tasksResponseResolver, error) {
	opts := models.ListOptions{
		Limit:     int(args.Limit),
		Offset:    int(args.Offset),
		SortBy:    args.SortBy,
		SortOrder: args.SortOrder,
	}

	page, err := r.tasks.GetTasks(ctx, args.Filter.toModel(), opts)
	if err != nil {
		return nil, toGraphQLError("fetch tasks", err)
	}
	return &tasksResponseResolver{page: page}, nil
}

func (r *Resolver) GetTask(ctx context.Context, args struct{ ID graphql.ID }) (*taskResolver, error) {
	task, err := r.tasks.GetTask(ctx, string(args.ID))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return nil, nil
		}
		return nil, toGraphQLError("fetch task", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) GetTasksByDate(ctx context.Context, args struct{ Date Date }) ([]*taskResolver, error) {
	tasks, err := r.tasks.GetTasksByDate(ctx, args.Date.Time)
	if err != nil {
		return nil, toGraphQLError("fetch tasks by date", err)
	}
	return newTaskResolvers(tasks), nil
}

type searchTasksArgs struct {
	Query  string
	Limit  int32
	Offset int32
}

func (r *Resolver) SearchTasks(ctx context.Context, args searchTasksArgs) (*tasksResponseResolver, error) {
	page, err := r.tasks.SearchTasks(ctx, args.Query, int(args.Limit), int(args.Offset))
	if err != nil {
		return nil, toGraphQLError("search tasks", err)
	}
	return &tasksResponseResolver{page: page}, nil
}

func (r *Resolver) GetTaskStats(ctx context.Context) (*taskStatsResolver, error) {
	stats, err := r.tasks.GetTaskStats(ctx)
	if err != nil {
		return nil, toGraphQLError("fetch task stats", err)
	}
	return &taskStatsResolver{s: stats}, nil
}

// Mutations

func (r *Resolver) CreateTask(ctx context.Context, args struct{ Input CreateTaskInput }) (*taskResolver, error) {
	task, err := r.tasks.CreateTask(ctx, args.Input.toModel())
	if err != nil {
		return nil, toGraphQLError("create task", err)
	}
	return &taskResolver{t: task}, nil
}

type updateTaskArgs struct {
	ID    graphql.ID
	Input UpdateTaskInput
}

func (r *Resolver) UpdateTask(ctx context.Context, args updateTaskArgs) (*taskResolver, error) {
	task, err := r.tasks.UpdateTask(ctx, string(args.ID), args.Input.toModel())
	if err != nil {
		return nil, toGraphQLError("update task", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) DeleteTask(ctx context.Context, args struct{ ID graphql.ID }) (bool, error) {
	removed, err := r.tasks.DeleteTask(ctx, string(args.ID))
	if err != nil {
		return false, toGraphQLError("delete task", err)
	}
	return removed, nil
}

func (r *Resolver) ToggleTaskComplete(ctx context.Context, args struct{ ID graphql.ID }) (*taskResolver, error) {
	task, err := r.tasks.ToggleTaskComplete(ctx, string(args.ID))
	if err != nil {
		return nil, toGraphQLError("toggle task completion", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) ToggleTaskPin(ctx context.Context, args struct{ ID graphql.ID }) (*taskResolver, error) {
	task, err := r.tasks.ToggleTaskPin(ctx, string(args.ID))
	if err != nil {
		return nil, toGraphQLError("toggle task pin", err)
	}
	return &taskResolver{t: task}, nil
}

func (r *Resolver) BulkDeleteTasks(ctx context.Context, args struct{ IDs []graphql.ID }) (bool, error) {
	removed, err := r.tasks.BulkDeleteTasks(ctx, idStrings(args.IDs))
	if err != nil {
		return false, toGraphQLError("bulk delete tasks", err)
	}
	return removed, nil
}

type bulkUpdateArgs struct {
	IDs   []graphql.ID
	Input UpdateTaskInput
}

func (r *Resolver) BulkUpdateTasks(ctx context.Context, args bulkUpdateArgs) ([]*taskResolver, error) {
	tasks, err := r.tasks.BulkUpdateTasks(ctx, idStrings(args.IDs), args.Input.toModel())
	if err != nil {
		return nil, toGraphQLError("bulk update tasks", err)
	}
	return newTaskResolvers(tasks), nil
}

func idStrings(ids []graphql.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
