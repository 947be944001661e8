// internal/search/index_test.go
package search

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/tasknest/internal/models"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeEngine answers the handful of REST endpoints the index uses.
type fakeEngine struct {
	t      *testing.T
	mu     sync.Mutex
	reqs   []recordedRequest
	routes map[string]func(w http.ResponseWriter, body string)
}

func newFakeEngine(t *testing.T) (*fakeEngine, *Index) {
	f := &fakeEngine{t: t, routes: map[string]func(http.ResponseWriter, string){}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	idx, err := NewIndex(Config{URL: srv.URL, IndexName: "tasks", RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	return f, idx
}

func (f *fakeEngine) handle(method, path string, h func(w http.ResponseWriter, body string)) {
	f.routes[method+" "+path] = h
}

func (f *fakeEngine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.reqs = append(f.reqs, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"not_found","reason":"no route"},"status":404}`)
		return
	}
	h(w, string(body))
}

func (f *fakeEngine) requests(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.reqs {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func reply(status int, body string) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, _ string) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func sampleTask() *models.Task {
	created := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	return &models.Task{
		ID:          "5f0c6f0e-8a53-4e55-9e36-7b1d1c2f0a11",
		OwnerID:     "user-1",
		Title:       "Buy milk",
		Description: "two liters",
		Priority:    models.PriorityHigh,
		Tags:        models.Tags{"errand"},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestIndex_EnsureIndex(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		f.handle(http.MethodHead, "/tasks", reply(http.StatusOK, ""))

		require.NoError(t, idx.EnsureIndex(context.Background()))
		assert.Empty(t, f.requests(http.MethodPut, "/tasks"))
	})

	t.Run("creates with mapping", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		f.handle(http.MethodHead, "/tasks", reply(http.StatusNotFound, ""))
		f.handle(http.MethodPut, "/tasks", reply(http.StatusOK, `{"acknowledged":true}`))

		require.NoError(t, idx.EnsureIndex(context.Background()))

		creates := f.requests(http.MethodPut, "/tasks")
		require.Len(t, creates, 1)
		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(creates[0].Body), &body))
		props := body["mappings"].(map[string]any)["properties"].(map[string]any)
		assert.Equal(t, "keyword", props["userId"].(map[string]any)["type"])
		assert.Equal(t, "date", props["completedAt"].(map[string]any)["type"])
		assert.Equal(t, "text", props["tags"].(map[string]any)["type"])
	})

	t.Run("lost creation race", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		f.handle(http.MethodHead, "/tasks", reply(http.StatusNotFound, ""))
		f.handle(http.MethodPut, "/tasks", reply(http.StatusBadRequest,
			`{"error":{"type":"resource_already_exists_exception","reason":"index [tasks] already exists"},"status":400}`))

		assert.NoError(t, idx.EnsureIndex(context.Background()))
	})

	t.Run("engine error", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		f.handle(http.MethodHead, "/tasks", reply(http.StatusInternalServerError, ""))

		assert.Error(t, idx.EnsureIndex(context.Background()))
	})
}

func TestIndex_Upsert(t *testing.T) {
	f, idx := newFakeEngine(t)
	task := sampleTask()
	f.handle(http.MethodPut, "/tasks/_doc/"+task.ID, reply(http.StatusCreated, `{"result":"created"}`))

	require.NoError(t, idx.Upsert(context.Background(), task))

	reqs := f.requests(http.MethodPut, "/tasks/_doc/"+task.ID)
	require.Len(t, reqs, 1)
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &doc))
	assert.Equal(t, "user-1", doc.UserID)
	assert.Equal(t, "high", doc.Priority)
	assert.Equal(t, []string{"errand"}, doc.Tags)
	assert.True(t, task.CreatedAt.Equal(doc.CreatedAt))
}

func TestIndex_UpdateSendsPartialDocument(t *testing.T) {
	f, idx := newFakeEngine(t)
	task := sampleTask()
	f.handle(http.MethodPost, "/tasks/_update/"+task.ID, reply(http.StatusOK, `{"result":"updated"}`))

	require.NoError(t, idx.Update(context.Background(), task))

	reqs := f.requests(http.MethodPost, "/tasks/_update/"+task.ID)
	require.Len(t, reqs, 1)
	var body struct {
		Doc map[string]any `json:"doc"`
	}
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	assert.Contains(t, body.Doc, "completedAt")
	assert.Nil(t, body.Doc["completedAt"])
	assert.NotContains(t, body.Doc, "userId")
	assert.NotContains(t, body.Doc, "id")
	assert.NotContains(t, body.Doc, "createdAt")
	assert.Equal(t, "Buy milk", body.Doc["title"])
}

func TestIndex_UpdateMissingDocumentFails(t *testing.T) {
	_, idx := newFakeEngine(t)

	err := idx.Update(context.Background(), sampleTask())
	require.Error(t, err)
	var rerr *ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusNotFound, rerr.Status)
}

func TestIndex_Remove(t *testing.T) {
	f, idx := newFakeEngine(t)
	f.handle(http.MethodDelete, "/tasks/_doc/present", reply(http.StatusOK, `{"result":"deleted"}`))
	f.handle(http.MethodDelete, "/tasks/_doc/broken", reply(http.StatusServiceUnavailable, `{"error":{"type":"unavailable","reason":"down"}}`))

	assert.NoError(t, idx.Remove(context.Background(), "present"))
	assert.NoError(t, idx.Remove(context.Background(), "absent"))
	assert.Error(t, idx.Remove(context.Background(), "broken"))
}

func TestIndex_Search(t *testing.T) {
	f, idx := newFakeEngine(t)
	f.handle(http.MethodPost, "/tasks/_search", reply(http.StatusOK, `{
		"hits": {
			"total": {"value": 3, "relation": "eq"},
			"hits": [
				{
					"_id": "a",
					"_source": {"id": "a", "title": "Buy milk", "description": "", "completed": false, "pinned": true,
						"priority": "high", "dueDate": null, "createdAt": "2024-05-01T08:30:00Z",
						"updatedAt": "2024-05-01T08:30:00Z", "completedAt": null, "tags": ["errand"], "userId": "user-1"},
					"highlight": {"title": ["Buy <em>milk</em>"]}
				},
				{
					"_id": "b",
					"_source": {"id": "b", "title": "Milkshake", "priority": "low", "createdAt": "2024-04-01T08:30:00Z",
						"updatedAt": "2024-04-01T08:30:00Z", "userId": "user-1"}
				}
			]
		}
	}`))

	page, err := idx.Search(context.Background(), "user-1", "milk", 2, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, page.Total)
	assert.True(t, page.HasMore)
	require.Len(t, page.Tasks, 2)
	assert.Equal(t, "a", page.Tasks[0].ID)
	assert.True(t, page.Tasks[0].Pinned)
	assert.Equal(t, models.PriorityHigh, page.Tasks[0].Priority)
	require.NotNil(t, page.Tasks[0].Highlight)
	assert.Equal(t, []string{"Buy <em>milk</em>"}, page.Tasks[0].Highlight.Title)
	assert.Nil(t, page.Tasks[1].Highlight)
	assert.Equal(t, models.Tags{}, page.Tasks[1].Tags)

	reqs := f.requests(http.MethodPost, "/tasks/_search")
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Query, "track_total_hits=true")

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &body))
	must := body["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
	assert.Equal(t, "user-1", must[0].(map[string]any)["term"].(map[string]any)["userId"])
	mm := must[1].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "AUTO", mm["fuzziness"])
	assert.Equal(t, []any{"title^3", "description^2", "tags^2"}, mm["fields"])
	sort := body["sort"].([]any)
	assert.Contains(t, sort[0].(map[string]any), "pinned")
	assert.Contains(t, sort[1].(map[string]any), "_score")
	assert.Contains(t, sort[2].(map[string]any), "createdAt")
	assert.EqualValues(t, 2, body["size"])
	assert.EqualValues(t, 0, body["from"])
}

func TestIndex_SearchError(t *testing.T) {
	f, idx := newFakeEngine(t)
	f.handle(http.MethodPost, "/tasks/_search", reply(http.StatusServiceUnavailable,
		`{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"}}`))

	_, err := idx.Search(context.Background(), "user-1", "milk", 20, 0)
	var rerr *ResponseError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "search_phase_execution_exception", rerr.Type)
}

func TestIndex_BulkIndex(t *testing.T) {
	a := sampleTask()
	b := sampleTask()
	b.ID = "0b8e4d64-4a5c-4d0e-8c8e-6a4b7a1c2d33"

	t.Run("single request", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		f.handle(http.MethodPost, "/tasks/_bulk", reply(http.StatusOK, `{"errors":false,"items":[
			{"index":{"_id":"`+a.ID+`","status":201}},
			{"index":{"_id":"`+b.ID+`","status":201}}
		]}`))

		require.NoError(t, idx.BulkIndex(context.Background(), []*models.Task{a, b}))

		reqs := f.requests(http.MethodPost, "/tasks/_bulk")
		require.Len(t, reqs, 1)

		var lines []string
		sc := bufio.NewScanner(strings.NewReader(reqs[0].Body))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				lines = append(lines, line)
			}
		}
		require.Len(t, lines, 4)
		assert.Contains(t, lines[0], a.ID)
		assert.Contains(t, lines[2], b.ID)
	})

	t.Run("per item failure", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		f.handle(http.MethodPost, "/tasks/_bulk", reply(http.StatusOK, `{"errors":true,"items":[
			{"index":{"_id":"`+a.ID+`","status":201}},
			{"index":{"_id":"`+b.ID+`","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad date"}}}
		]}`))

		err := idx.BulkIndex(context.Background(), []*models.Task{a, b})
		require.Error(t, err)
		assert.Contains(t, err.Error(), b.ID)
		assert.Contains(t, err.Error(), "mapper_parsing_exception")
		assert.NotContains(t, err.Error(), a.ID)
	})

	t.Run("empty batch", func(t *testing.T) {
		f, idx := newFakeEngine(t)
		require.NoError(t, idx.BulkIndex(context.Background(), nil))
		assert.Empty(t, f.requests(http.MethodPost, "/tasks/_bulk"))
	})
}

func TestIndex_Ping(t *testing.T) {
	f, idx := newFakeEngine(t)
	assert.Error(t, idx.Ping(context.Background()))

	f.handle(http.MethodHead, "/", reply(http.StatusOK, ""))
	assert.NoError(t, idx.Ping(context.Background()))
}
