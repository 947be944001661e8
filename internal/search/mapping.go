// internal/search/mapping.go
package search

import (
	"time"

	"github.com/gurkanbulca/tasknest/internal/models"
)

// indexBody is the settings and mappings used when the index is created.
const indexBody = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "custom_task_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "stop"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":          { "type": "keyword" },
      "title":       { "type": "text", "analyzer": "standard", "fields": { "keyword": { "type": "keyword" } } },
      "description": { "type": "text", "analyzer": "standard" },
      "completed":   { "type": "boolean" },
      "pinned":      { "type": "boolean" },
      "priority":    { "type": "keyword" },
      "dueDate":     { "type": "date" },
      "createdAt":   { "type": "date" },
      "updatedAt":   { "type": "date" },
      "completedAt": { "type": "date" },
      "tags":        { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "userId":      { "type": "keyword" }
    }
  }
}`

// Document is the indexed projection of a task.
type Document struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Pinned      bool       `json:"pinned"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Tags        []string   `json:"tags"`
	UserID      string     `json:"userId"`
}

// partialDocument holds the mutable fields sent on update. Owner and id are
// never re-asserted. Nil dates are sent as explicit nulls so a cleared
// completion time is cleared in the index too.
type partialDocument struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Pinned      bool       `json:"pinned"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Tags        []string   `json:"tags"`
}

func NewDocument(t *models.Task) Document {
	return Document{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Pinned:      t.Pinned,
		Priority:    t.Priority.String(),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
		Tags:        tagsOrEmpty(t.Tags),
		UserID:      t.OwnerID,
	}
}

func newPartialDocument(t *models.Task) partialDocument {
	return partialDocument{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Pinned:      t.Pinned,
		Priority:    t.Priority.String(),
		DueDate:     t.DueDate,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
		Tags:        tagsOrEmpty(t.Tags),
	}
}

// Task converts an indexed document back into the task shape returned by
// the API.
func (d Document) Task() *models.Task {
	return &models.Task{
		ID:          d.ID,
		OwnerID:     d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		Pinned:      d.Pinned,
		Priority:    models.Priority(d.Priority),
		DueDate:     d.DueDate,
		CompletedAt: d.CompletedAt,
		Tags:        tagsOrEmpty(d.Tags),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
