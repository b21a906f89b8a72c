package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	esv8 "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

const (
	requestTimeout = 3 * time.Second
	maxSearchHits  = 1000
)

// statement.raw is an untokenized copy used for substring matching.
const taskMapping = `{
  "mappings": {
    "properties": {
      "id":           {"type": "long"},
      "user_id":      {"type": "long"},
      "statement":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "is_completed": {"type": "boolean"},
      "task_date":    {"type": "date", "format": "yyyy-MM-dd"},
      "sort_order":   {"type": "integer"},
      "created_at":   {"type": "date"},
      "updated_at":   {"type": "date"}
    }
  }
}`

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// TaskDocument is a task as stored in the index.
type TaskDocument struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Statement   string `json:"statement"`
	IsCompleted bool   `json:"is_completed"`
	TaskDate    string `json:"task_date"`
	SortOrder   int    `json:"sort_order"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// NewTaskDocument builds the indexed copy of a stored task.
func NewTaskDocument(t entity.Task) TaskDocument {
	return TaskDocument{
		ID:          t.ID,
		UserID:      t.UserID,
		Statement:   t.Statement,
		IsCompleted: t.IsCompleted,
		TaskDate:    helpers.FormatDate(t.TaskDate),
		SortOrder:   t.SortOrder,
		CreatedAt:   helpers.FormatInstant(t.CreatedAt),
		UpdatedAt:   helpers.FormatInstant(t.UpdatedAt),
	}
}

// version orders writes of the same document by updated_at, in milliseconds.
func (d TaskDocument) version() (int, bool) {
	ts, err := time.Parse(time.RFC3339Nano, d.UpdatedAt)
	if err != nil || ts.IsZero() {
		return 0, false
	}
	return int(ts.UnixMilli()), true
}

func (d TaskDocument) toEntity() (entity.Task, error) {
	date, err := helpers.ParseDate(d.TaskDate)
	if err != nil {
		return entity.Task{}, err
	}
	created, _ := time.Parse(time.RFC3339Nano, d.CreatedAt)
	updated, _ := time.Parse(time.RFC3339Nano, d.UpdatedAt)
	return entity.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Statement:   d.Statement,
		IsCompleted: d.IsCompleted,
		TaskDate:    date,
		SortOrder:   d.SortOrder,
		CreatedAt:   created,
		UpdatedAt:   updated,
	}, nil
}

// TaskIndex keeps a searchable copy of tasks. Postgres stays the source of truth.
type TaskIndex struct {
	ES     *esv8.Client
	Index  string
	Logger *logrus.Logger
}

func NewTaskIndex(es *esv8.Client, index string, logger *logrus.Logger) *TaskIndex {
	return &TaskIndex{ES: es, Index: index, Logger: logger}
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *TaskIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.Index}}.Do(c, x.ES)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: x.Index, Body: strings.NewReader(taskMapping)}.Do(c, x.ES)
	if err != nil {
		return err
	}
	return checkResponse(res)
}

// Put writes doc versioned by its updated_at, so a replayed older copy never
// replaces a newer one. Losing that race is not an error.
func (x *TaskIndex) Put(ctx context.Context, doc TaskDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      x.Index,
		DocumentID: strconv.FormatInt(doc.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	if v, ok := doc.version(); ok {
		req.Version = &v
		req.VersionType = "external_gte"
	}
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusConflict {
		_ = res.Body.Close()
		if x.Logger != nil {
			x.Logger.WithField("task_id", doc.ID).Debug("skip stale task document")
		}
		return nil
	}
	return checkResponse(res)
}

// Delete ignores documents that are already gone.
func (x *TaskIndex) Delete(ctx context.Context, id int64) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.DeleteRequest{Index: x.Index, DocumentID: strconv.FormatInt(id, 10)}.Do(c, x.ES)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		_ = res.Body.Close()
		return nil
	}
	return checkResponse(res)
}

// SetSortOrder patches sort_order on one document. A missing document is
// skipped; the next full write or reindex carries the current sort_order.
func (x *TaskIndex) SetSortOrder(ctx context.Context, id int64, sortOrder int) error {
	body := fmt.Sprintf(`{"doc":{"sort_order":%d}}`, sortOrder)
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.UpdateRequest{Index: x.Index, DocumentID: strconv.FormatInt(id, 10), Body: strings.NewReader(body)}.Do(c, x.ES)
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusNotFound {
		_ = res.Body.Close()
		return nil
	}
	return checkResponse(res)
}

// Search mirrors the Postgres ILIKE search: literal, case-insensitive
// substring on the statement, owner scoped, same ordering.
func (x *TaskIndex) Search(ctx context.Context, ownerID int64, keyword string) ([]entity.Task, error) {
	query := map[string]any{
		"size": maxSearchHits,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": ownerID}},
					map[string]any{"wildcard": map[string]any{
						"statement.raw": map[string]any{
							"value":            "*" + wildcardEscaper.Replace(keyword) + "*",
							"case_insensitive": true,
						},
					}},
				},
			},
		},
		"sort": []any{
			map[string]any{"task_date": "desc"},
			map[string]any{"sort_order": "asc"},
			map[string]any{"id": "asc"},
		},
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, responseError(res)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source TaskDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.Task, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		t, err := h.Source.toEntity()
		if err != nil {
			if x.Logger != nil {
				x.Logger.WithError(err).WithField("task_id", h.Source.ID).Warn("skip malformed task document")
			}
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func checkResponse(res *esapi.Response) error {
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

// ResponseError is a non-2xx answer from Elasticsearch.
type ResponseError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ResponseError) Error() string {
	return "elasticsearch: " + e.Status + " " + e.Body
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *ResponseError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500 && e.StatusCode != http.StatusTooManyRequests
}

// IsPermanent reports whether err is a ResponseError that retrying will not fix.
func IsPermanent(err error) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.Permanent()
}

func responseError(res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return &ResponseError{StatusCode: res.StatusCode, Status: res.Status(), Body: strings.TrimSpace(string(body))}
}

var _ repository.TaskSearcher = (*TaskIndex)(nil)
