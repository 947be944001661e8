// internal/search/index.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/gurkanbulca/tasknest/internal/models"
)

// Config for the search index client
type Config struct {
	URL            string
	IndexName      string
	RequestTimeout time.Duration
	// Refresh is passed through on writes ("", "true", "false", "wait_for").
	Refresh string
}

// Index is the secondary, eventually-consistent task index. It is safe for
// concurrent use and meant to be created once per process.
type Index struct {
	client  *elasticsearch.Client
	name    string
	timeout time.Duration
	refresh string
}

// ResponseError is a non-2xx answer from the search engine.
type ResponseError struct {
	Status int
	Type   string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("search index: status %d", e.Status)
	}
	return fmt.Sprintf("search index: status %d: %s: %s", e.Status, e.Type, e.Reason)
}

func NewIndex(cfg Config) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
	})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	name := cfg.IndexName
	if name == "" {
		name = "tasks"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Index{
		client:  client,
		name:    name,
		timeout: timeout,
		refresh: cfg.Refresh,
	}, nil
}

func (x *Index) Name() string { return x.name }

// EnsureIndex creates the index with its mapping if it does not exist yet.
// Losing a creation race to another process is not an error.
func (x *Index) EnsureIndex(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	res, err := x.client.Indices.Exists([]string{x.name}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	drain(res)
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("check index: %w", &ResponseError{Status: res.StatusCode})
	}

	res, err = x.client.Indices.Create(x.name,
		x.client.Indices.Create.WithBody(bytes.NewReader([]byte(indexBody))),
		x.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := checkResponse(res); err != nil {
		var rerr *ResponseError
		if errors.As(err, &rerr) && rerr.Type == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert writes the full projection of t, replacing any existing document.
func (x *Index) Upsert(ctx context.Context, t *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	opts := []func(*esapi.IndexRequest){
		x.client.Index.WithDocumentID(t.ID),
		x.client.Index.WithContext(ctx),
	}
	if x.refresh != "" {
		opts = append(opts, x.client.Index.WithRefresh(x.refresh))
	}

	res, err := x.client.Index(x.name, esutil.NewJSONReader(NewDocument(t)), opts...)
	if err != nil {
		return fmt.Errorf("index task %s: %w", t.ID, err)
	}
	if err := checkResponse(res); err != nil {
		return fmt.Errorf("index task %s: %w", t.ID, err)
	}
	return nil
}

// Update sends the mutable fields of t as a partial document.
func (x *Index) Update(ctx context.Context, t *models.Task) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	opts := []func(*esapi.UpdateRequest){
		x.client.Update.WithContext(ctx),
	}
	if x.refresh != "" {
		opts = append(opts, x.client.Update.WithRefresh(x.refresh))
	}

	body := esutil.NewJSONReader(map[string]any{"doc": newPartialDocument(t)})
	res, err := x.client.Update(x.name, t.ID, body, opts...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if err := checkResponse(res); err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return nil
}

// Remove deletes the document for id. A missing document is not an error.
func (x *Index) Remove(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	opts := []func(*esapi.DeleteRequest){
		x.client.Delete.WithContext(ctx),
	}
	if x.refresh != "" {
		opts = append(opts, x.client.Delete.WithRefresh(x.refresh))
	}

	res, err := x.client.Delete(x.name, id, opts...)
	if err != nil {
		return fmt.Errorf("remove task %s: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		drain(res)
		return nil
	}
	if err := checkResponse(res); err != nil {
		return fmt.Errorf("remove task %s: %w", id, err)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source    Document            `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a ranked, typo-tolerant query over the owner's documents.
// Pinned tasks come first, then relevance, then newest.
func (x *Index) Search(ctx context.Context, owner, text string, limit, offset int) (*models.TaskPage, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"userId": owner}},
					map[string]any{"multi_match": map[string]any{
						"query":     text,
						"fields":    []string{"title^3", "description^2", "tags^2"},
						"type":      "best_fields",
						"fuzziness": "AUTO",
					}},
				},
			},
		},
		"sort": []any{
			map[string]any{"pinned": map[string]string{"order": "desc"}},
			map[string]any{"_score": map[string]string{"order": "desc"}},
			map[string]any{"createdAt": map[string]string{"order": "desc"}},
		},
		"from": offset,
		"size": limit,
		"highlight": map[string]any{
			"fields": map[string]any{
				"title":       map[string]any{},
				"description": map[string]any{},
			},
		},
	}

	res, err := x.client.Search(
		x.client.Search.WithIndex(x.name),
		x.client.Search.WithBody(esutil.NewJSONReader(query)),
		x.client.Search.WithTrackTotalHits(true),
		x.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search tasks: %w", decodeError(res))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	tasks := make([]*models.Task, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		t := hit.Source.Task()
		if len(hit.Highlight) > 0 {
			t.Highlight = &models.Highlight{
				Title:       hit.Highlight["title"],
				Description: hit.Highlight["description"],
			}
		}
		tasks = append(tasks, t)
	}

	return models.NewTaskPage(tasks, sr.Hits.Total.Value, limit, offset), nil
}

// BulkIndex writes every task in one batched request. Per-document failures
// are collected into a single error; they do not stop the rest of the batch.
func (x *Index) BulkIndex(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     x.client,
		Index:      x.name,
		NumWorkers: 1,
		Refresh:    x.refresh,
		Timeout:    x.timeout,
		OnError: func(_ context.Context, err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		},
	})
	if err != nil {
		return fmt.Errorf("create bulk indexer: %w", err)
	}
	onFailure := func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", item.DocumentID, err))
			return
		}
		errs = append(errs, fmt.Errorf("task %s: %w", item.DocumentID, &ResponseError{
			Status: res.Status,
			Type:   res.Error.Type,
			Reason: res.Error.Reason,
		}))
	}

	for _, t := range tasks {
		body, err := json.Marshal(NewDocument(t))
		if err != nil {
			return fmt.Errorf("encode task %s: %w", t.ID, err)
		}
		if err := bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: t.ID,
			Body:       bytes.NewReader(body),
			OnFailure:  onFailure,
		}); err != nil {
			return fmt.Errorf("queue task %s: %w", t.ID, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("flush bulk index: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if failed := bi.Stats().NumFailed; failed > 0 || len(errs) > 0 {
		return fmt.Errorf("bulk index: %d of %d failed: %w", failed, len(tasks), errors.Join(errs...))
	}
	return nil
}

// Ping reports whether the search engine answers.
func (x *Index) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	res, err := x.client.Ping(x.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping search index: %w", err)
	}
	return checkResponse(res)
}

// checkResponse consumes res and converts an error status into a
// *ResponseError.
func checkResponse(res *esapi.Response) error {
	defer res.Body.Close()
	if res.IsError() {
		return decodeError(res)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

func decodeError(res *esapi.Response) error {
	var body struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	rerr := &ResponseError{Status: res.StatusCode}
	if err := json.NewDecoder(res.Body).Decode(&body); err == nil {
		rerr.Type = body.Error.Type
		rerr.Reason = body.Error.Reason
	}
	return rerr
}

func drain(res *esapi.Response) {
	if res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
}
