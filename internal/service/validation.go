// internal/service/validation.go
package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gurkanbulca/tasknest/internal/models"
)

// ValidationConfig holds validation configuration
type ValidationConfig struct {
	MaxTitleLength       int
	MaxDescriptionLength int
	MaxTags              int
	MaxTagLength         int
}

// DefaultValidationConfig returns default validation configuration
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxTitleLength:       200,
		MaxDescriptionLength: 1000,
		MaxTags:              20,
		MaxTagLength:         50,
	}
}

// ValidationError lists every rule an input broke.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

type validator struct {
	config ValidationConfig
	errors []string
}

func (v *validator) addf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Violations: v.errors}
}

func (v *validator) title(title string, required bool) string {
	title = strings.TrimSpace(title)
	if title == "" {
		if required {
			v.addf("title is required")
		} else {
			v.addf("title cannot be empty")
		}
	} else if utf8.RuneCountInString(title) > v.config.MaxTitleLength {
		v.addf("title too long (max %d characters)", v.config.MaxTitleLength)
	}
	return title
}

func (v *validator) description(desc string) string {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > v.config.MaxDescriptionLength {
		v.addf("description too long (max %d characters)", v.config.MaxDescriptionLength)
	}
	return desc
}

func (v *validator) priority(p string) models.Priority {
	priority, ok := models.ParsePriority(p)
	if !ok {
		v.addf("invalid priority %q (expected low, medium or high)", p)
	}
	return priority
}

func (v *validator) tags(tags []string) models.Tags {
	if len(tags) > v.config.MaxTags {
		v.addf("too many tags (max %d)", v.config.MaxTags)
	}

	out := make(models.Tags, 0, len(tags))
	var empty, long bool
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		switch {
		case tag == "":
			empty = true
		case utf8.RuneCountInString(tag) > v.config.MaxTagLength:
			long = true
		}
		out = append(out, tag)
	}
	if empty {
		v.addf("empty tags are not allowed")
	}
	if long {
		v.addf("tag too long (max %d characters)", v.config.MaxTagLength)
	}
	return out
}

// validateCreate normalizes input into a new task or reports every
// violation at once.
func (s *TaskService) validateCreate(in models.CreateTaskInput) (*models.Task, error) {
	v := &validator{config: s.validation}

	task := &models.Task{
		Title:    v.title(in.Title, true),
		Priority: models.PriorityMedium,
		DueDate:  in.DueDate,
		Tags:     v.tags(in.Tags),
	}
	if in.Description != nil {
		task.Description = v.description(*in.Description)
	}
	if in.Priority != nil {
		task.Priority = v.priority(*in.Priority)
	}

	if err := v.err(); err != nil {
		return nil, err
	}
	return task, nil
}

// buildPatch validates an update input and turns it into a store patch,
// applying the completion-time rules.
func (s *TaskService) buildPatch(in models.UpdateTaskInput) (*models.TaskPatch, error) {
	v := &validator{config: s.validation}
	patch := &models.TaskPatch{
		Completed:   in.Completed,
		Pinned:      in.Pinned,
		DueDate:     in.DueDate,
		CompletedAt: in.CompletedAt,
	}

	if in.Title != nil {
		title := v.title(*in.Title, false)
		patch.Title = &title
	}
	if in.Description != nil {
		desc := v.description(*in.Description)
		patch.Description = &desc
	}
	if in.Priority != nil {
		p := v.priority(*in.Priority)
		patch.Priority = &p
	}
	if in.Tags != nil {
		tags := v.tags(*in.Tags)
		patch.Tags = &tags
	}
	if in.CompletedAt != nil && (in.Completed == nil || !*in.Completed) {
		v.addf("completedAt requires completed to be true")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if in.Completed != nil {
		if *in.Completed {
			if in.CompletedAt == nil {
				now := s.now()
				patch.StampCompletedAt = &now
			}
		} else {
			patch.ClearCompletedAt = true
		}
	}
	return patch, nil
}

func validateSearch(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ValidationError{Violations: []string{"search query is required"}}
	}
	return text, nil
}
