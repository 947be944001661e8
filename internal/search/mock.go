// internal/search/mock.go
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gurkanbulca/tasknest/internal/models"
)

// MockIndex records index calls instead of talking to a search engine. It
// is used in tests and is safe for concurrent use.
type MockIndex struct {
	mu    sync.Mutex
	calls []IndexCall
	docs  map[string]*models.Task

	// Err, when set, fails every call.
	Err error
}

// IndexCall represents a call made against MockIndex
type IndexCall struct {
	Action string
	TaskID string
	Task   *models.Task
	At     time.Time
}

func NewMockIndex() *MockIndex {
	return &MockIndex{docs: map[string]*models.Task{}}
}

func (m *MockIndex) record(action, id string, t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snapshot *models.Task
	if t != nil {
		cp := *t
		snapshot = &cp
	}
	m.calls = append(m.calls, IndexCall{Action: action, TaskID: id, Task: snapshot, At: time.Now()})
	if m.Err != nil {
		return m.Err
	}

	switch action {
	case "upsert", "update", "bulk":
		m.docs[id] = snapshot
	case "remove":
		delete(m.docs, id)
	}
	return nil
}

func (m *MockIndex) Upsert(ctx context.Context, t *models.Task) error {
	return m.record("upsert", t.ID, t)
}

func (m *MockIndex) Update(ctx context.Context, t *models.Task) error {
	return m.record("update", t.ID, t)
}

func (m *MockIndex) Remove(ctx context.Context, id string) error {
	return m.record("remove", id, nil)
}

func (m *MockIndex) BulkIndex(ctx context.Context, tasks []*models.Task) error {
	for _, t := range tasks {
		if err := m.record("bulk", t.ID, t); err != nil {
			return err
		}
	}
	return nil
}

// Search returns the owner's indexed documents whose title contains text,
// pinned first.
func (m *MockIndex) Search(ctx context.Context, owner, text string, limit, offset int) (*models.TaskPage, error) {
	if err := m.record("search", "", nil); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var pinned, rest []*models.Task
	for _, t := range m.docs {
		if t.OwnerID != owner || !containsFold(t.Title, text) {
			continue
		}
		cp := *t
		cp.Highlight = &models.Highlight{Title: []string{t.Title}}
		if t.Pinned {
			pinned = append(pinned, &cp)
		} else {
			rest = append(rest, &cp)
		}
	}
	all := append(pinned, rest...)
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return models.NewTaskPage(all, total, limit, offset), nil
}

// Calls returns the recorded calls with the given action, or all of them
// when action is empty.
func (m *MockIndex) Calls(action string) []IndexCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []IndexCall
	for _, c := range m.calls {
		if action == "" || c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Doc returns the indexed copy of a task, if any.
func (m *MockIndex) Doc(id string) (*models.Task, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.docs[id]
	return t, ok
}

// Fail makes every subsequent call return err (nil restores success).
func (m *MockIndex) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Clear clears all recorded calls
func (m *MockIndex) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
