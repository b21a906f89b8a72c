package elasticsearch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	esv8 "github.com/elastic/go-elasticsearch/v8"

	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *TaskIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := esv8.NewClient(esv8.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("es client: %v", err)
	}
	return NewTaskIndex(es, "tasks", helpers.NopLogger())
}

func TestSearchBuildsOwnerScopedWildcardQuery(t *testing.T) {
	var body map[string]any
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/tasks/_search") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		_, _ = io.WriteString(w, `{"hits":{"hits":[
			{"_source":{"id":3,"user_id":7,"statement":"Buy milk","is_completed":false,"task_date":"2025-01-09","sort_order":0,"created_at":"2025-01-08T09:30:00.000Z","updated_at":"2025-01-08T09:30:00.000Z"}},
			{"_source":{"id":1,"user_id":7,"statement":"buy MILK twice","is_completed":true,"task_date":"2025-01-08","sort_order":2,"created_at":"2025-01-08T09:30:00.000Z","updated_at":"2025-01-08T09:30:00.000Z"}}
		]}}`)
	})

	tasks, err := idx.Search(context.Background(), 7, "milk*")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != 3 || !tasks[1].IsCompleted {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
	if helpers.FormatDate(tasks[0].TaskDate) != "2025-01-09" {
		t.Fatalf("expected task date 2025-01-09, got %v", tasks[0].TaskDate)
	}

	raw, _ := json.Marshal(body)
	q := string(raw)
	if !strings.Contains(q, `"user_id":7`) {
		t.Fatalf("expected owner filter, got %s", q)
	}
	if !strings.Contains(q, `"value":"*milk\\**"`) || !strings.Contains(q, `"case_insensitive":true`) {
		t.Fatalf("expected escaped case-insensitive wildcard, got %s", q)
	}
	if !strings.Contains(q, `{"task_date":"desc"},{"sort_order":"asc"},{"id":"asc"}`) {
		t.Fatalf("expected list ordering, got %s", q)
	}
}

func TestDeleteIgnoresMissingDocument(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || !strings.HasSuffix(r.URL.Path, "/tasks/_doc/9") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
	})
	if err := idx.Delete(context.Background(), 9); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestPutSurfacesErrors(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"mapper_parsing_exception"}`)
	})
	err := idx.Put(context.Background(), TaskDocument{ID: 1, UserID: 7, Statement: "x", TaskDate: "2025-01-08"})
	if err == nil || !strings.Contains(err.Error(), "mapper_parsing_exception") {
		t.Fatalf("expected mapper error, got %v", err)
	}
}

func TestSetSortOrderSendsPartialDoc(t *testing.T) {
	var got string
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		_, _ = io.WriteString(w, `{"result":"updated"}`)
	})
	if err := idx.SetSortOrder(context.Background(), 4, 2); err != nil {
		t.Fatalf("set sort order: %v", err)
	}
	if got != `{"doc":{"sort_order":2}}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestSetSortOrderSkipsMissingDocument(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"type":"document_missing_exception"},"status":404}`)
	})
	if err := idx.SetSortOrder(context.Background(), 4, 2); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestPutIsVersionedByUpdatedAt(t *testing.T) {
	var query url.Values
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":{"type":"version_conflict_engine_exception"},"status":409}`)
	})

	doc := TaskDocument{ID: 1, UserID: 7, Statement: "x", TaskDate: "2025-01-08", UpdatedAt: "2025-01-08T09:30:00.123Z"}
	if err := idx.Put(context.Background(), doc); err != nil {
		t.Fatalf("expected stale write to be skipped, got %v", err)
	}
	want := strconv.FormatInt(time.Date(2025, 1, 8, 9, 30, 0, 123000000, time.UTC).UnixMilli(), 10)
	if query.Get("version") != want || query.Get("version_type") != "external_gte" {
		t.Fatalf("expected version %s external_gte, got %v", want, query)
	}
}

func TestResponseErrorsCarryStatus(t *testing.T) {
	idx := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"unavailable"}`)
	})
	err := idx.SetSortOrder(context.Background(), 4, 2)
	var re *ResponseError
	if !errors.As(err, &re) || re.StatusCode != http.StatusServiceUnavailable || IsPermanent(err) {
		t.Fatalf("expected retryable 503, got %v", err)
	}
}
