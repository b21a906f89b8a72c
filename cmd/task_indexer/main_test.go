package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	esinfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/elasticsearch"
)

type fakeIndex struct {
	docs  map[int64]esinfra.TaskDocument
	fails bool
}

func (f *fakeIndex) Put(_ context.Context, doc esinfra.TaskDocument) error {
	if f.fails {
		return errors.New("es down")
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeIndex) Delete(_ context.Context, id int64) error {
	delete(f.docs, id)
	return nil
}

func (f *fakeIndex) SetSortOrder(_ context.Context, id int64, sortOrder int) error {
	d := f.docs[id]
	d.SortOrder = sortOrder
	f.docs[id] = d
	return nil
}

func TestHandleAppliesEventStream(t *testing.T) {
	idx := &fakeIndex{docs: map[int64]esinfra.TaskDocument{}}
	ctx := context.Background()

	msgs := []string{
		`{"type":"task.created","owner_id":7,"task_id":1,"task":{"id":1,"statement":"Buy milk","is_completed":false,"task_date":"2025-01-08","sort_order":0}}`,
		`{"type":"task.created","owner_id":7,"task_id":2,"task":{"id":2,"statement":"Walk dog","is_completed":false,"task_date":"2025-01-08","sort_order":1}}`,
		`{"type":"task.reordered","owner_id":7,"order":[{"id":1,"sort_order":1},{"id":2,"sort_order":0}]}`,
		`{"type":"task.deleted","owner_id":7,"task_id":2}`,
	}
	for _, m := range msgs {
		if err := handle(ctx, idx, []byte(m)); err != nil {
			t.Fatalf("handle %s: %v", m, err)
		}
	}

	if len(idx.docs) != 1 {
		t.Fatalf("expected one document, got %d", len(idx.docs))
	}
	doc := idx.docs[1]
	if doc.UserID != 7 || doc.SortOrder != 1 || doc.Statement != "Buy milk" {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestHandleRejectsMalformedEvents(t *testing.T) {
	idx := &fakeIndex{docs: map[int64]esinfra.TaskDocument{}}
	for _, m := range []string{`not json`, `{"type":"task.created","owner_id":7}`, `{"type":"task.exploded"}`} {
		if err := handle(context.Background(), idx, []byte(m)); !errors.Is(err, errBadEvent) {
			t.Fatalf("%s: expected errBadEvent, got %v", m, err)
		}
	}
}

func TestApplyPropagatesIndexErrors(t *testing.T) {
	idx := &fakeIndex{docs: map[int64]esinfra.TaskDocument{}, fails: true}
	ev := application.TaskEvent{Type: application.TaskUpdated, OwnerID: 7, Task: &application.TaskResource{ID: 1}}
	if err := apply(context.Background(), idx, ev); err == nil || errors.Is(err, errBadEvent) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

type staticSource []entity.Task

func (s staticSource) All(context.Context) ([]entity.Task, error) { return s, nil }

func TestReindexWritesEveryStoredTask(t *testing.T) {
	idx := &fakeIndex{docs: map[int64]esinfra.TaskDocument{}}
	d := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	src := staticSource{
		{ID: 1, UserID: 7, Statement: "Buy milk", TaskDate: d, SortOrder: 2},
		{ID: 2, UserID: 8, Statement: "Walk dog", TaskDate: d},
	}

	n, err := reindex(context.Background(), src, idx)
	if err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if n != 2 || len(idx.docs) != 2 {
		t.Fatalf("expected 2 documents, got %d (%d)", len(idx.docs), n)
	}
	if doc := idx.docs[1]; doc.UserID != 7 || doc.TaskDate != "2025-01-08" || doc.SortOrder != 2 {
		t.Fatalf("unexpected document %+v", doc)
	}
}

func TestReindexStopsOnIndexError(t *testing.T) {
	idx := &fakeIndex{docs: map[int64]esinfra.TaskDocument{}, fails: true}
	if _, err := reindex(context.Background(), staticSource{{ID: 1}}, idx); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientErrorsAreNotRequeued(t *testing.T) {
	if !esinfra.IsPermanent(&esinfra.ResponseError{StatusCode: 400}) {
		t.Fatalf("expected 400 to be permanent")
	}
	if esinfra.IsPermanent(&esinfra.ResponseError{StatusCode: 429}) || esinfra.IsPermanent(&esinfra.ResponseError{StatusCode: 503}) {
		t.Fatalf("expected 429 and 503 to be retried")
	}
	if esinfra.IsPermanent(errors.New("dial tcp: refused")) {
		t.Fatalf("expected transport errors to be retried")
	}
}
