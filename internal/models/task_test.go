// internal/models/task_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListOptions
		want ListOptions
	}{
		{"defaults", ListOptions{}, ListOptions{Limit: DefaultLimit, SortBy: DefaultSortBy, SortOrder: DefaultSortOrder}},
		{"negative values", ListOptions{Limit: -5, Offset: -1}, ListOptions{Limit: DefaultLimit, SortBy: DefaultSortBy, SortOrder: DefaultSortOrder}},
		{"limit above max", ListOptions{Limit: 500, Offset: 10}, ListOptions{Limit: MaxLimit, Offset: 10, SortBy: DefaultSortBy, SortOrder: DefaultSortOrder}},
		{"kept", ListOptions{Limit: 5, Offset: 3, SortBy: "title", SortOrder: "ASC"}, ListOptions{Limit: 5, Offset: 3, SortBy: "title", SortOrder: "ASC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestNewTaskPage_HasMoreAboveLimitCap(t *testing.T) {
	tests := []struct {
		name        string
		limit       int
		offset      int
		total       int
		wantHasMore bool
	}{
		// 150 is clamped to 100: only 100 of 120 rows are returned.
		{"clamped limit leaves rows", 150, 0, 120, true},
		{"clamped limit covers rest", 150, 20, 120, false},
		{"clamped limit exact end", 500, 0, 100, false},
		{"within cap", 50, 0, 120, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ListOptions{Limit: tt.limit, Offset: tt.offset}.Normalize()
			page := NewTaskPage(nil, tt.total, opts.Limit, opts.Offset)

			assert.Equal(t, tt.wantHasMore, page.HasMore)
			assert.Equal(t, tt.total, page.Total)
			assert.NotNil(t, page.Tasks)
		})
	}
}
