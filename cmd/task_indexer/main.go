package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-ddd-task-manager/config"
	"github.com/oksasatya/go-ddd-task-manager/internal/application"
	"github.com/oksasatya/go-ddd-task-manager/internal/domain/entity"
	esinfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/elasticsearch"
	pginfra "github.com/oksasatya/go-ddd-task-manager/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-task-manager/pkg/helpers"
)

// indexWriter is the part of esinfra.TaskIndex the indexer drives.
type indexWriter interface {
	Put(ctx context.Context, doc esinfra.TaskDocument) error
	Delete(ctx context.Context, id int64) error
	SetSortOrder(ctx context.Context, id int64, sortOrder int) error
}

// taskSource lists every stored task for a full rebuild.
type taskSource interface {
	All(ctx context.Context) ([]entity.Task, error)
}

var errBadEvent = errors.New("malformed task event")

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-indexer", cfg.Env)

	if !cfg.EventsEnabled {
		logger.Info("EVENTS_ENABLED=false; task indexer disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQTaskQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.Fatalf("elasticsearch client: %v", err)
	}
	if es == nil {
		logger.Fatal("ELASTICSEARCH_ADDRS not configured")
	}

	ctx := context.Background()
	idx := esinfra.NewTaskIndex(es, cfg.ESTasksIndex, logger)
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Fatalf("ensure index: %v", err)
	}

	// events lost between a write and the queue are repaired here
	if cfg.ESReindexOnStart {
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		n, err := reindex(ctx, pginfra.NewTaskRepository(pool), idx)
		pool.Close()
		if err != nil {
			logger.Fatalf("reindex: %v", err)
		}
		logger.WithField("tasks", n).Info("task index rebuilt")
	}

	conn, ch, err := helpers.DialQueue(cfg.RabbitMQURL, cfg.RabbitMQTaskQueue)
	if err != nil {
		logger.Fatalf("amqp: %v", err)
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch across indexer replicas
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	msgs, err := ch.Consume(cfg.RabbitMQTaskQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			c, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := handle(c, idx, msg.Body)
			cancel()
			switch {
			case errors.Is(err, errBadEvent), esinfra.IsPermanent(err):
				logger.WithError(err).Warn("dropping message")
				_ = msg.Nack(false, false)
			case err != nil:
				logger.WithError(err).Warn("index failed, requeueing")
				_ = msg.Nack(false, true)
			default:
				_ = msg.Ack(false)
			}
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQTaskQueue).Info("task indexer listening")
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// reindex writes every stored task. Versioned puts keep newer documents
// written by concurrent events.
func reindex(ctx context.Context, src taskSource, idx indexWriter) (int, error) {
	tasks, err := src.All(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		if err := idx.Put(ctx, esinfra.NewTaskDocument(t)); err != nil {
			return 0, fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	return len(tasks), nil
}

func handle(ctx context.Context, idx indexWriter, body []byte) error {
	var ev application.TaskEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errBadEvent, err)
	}
	return apply(ctx, idx, ev)
}

func apply(ctx context.Context, idx indexWriter, ev application.TaskEvent) error {
	switch ev.Type {
	case application.TaskCreated, application.TaskUpdated:
		if ev.Task == nil {
			return fmt.Errorf("%w: %s without task", errBadEvent, ev.Type)
		}
		t := ev.Task
		return idx.Put(ctx, esinfra.TaskDocument{
			ID:          t.ID,
			UserID:      ev.OwnerID,
			Statement:   t.Statement,
			IsCompleted: t.IsCompleted,
			TaskDate:    t.TaskDate,
			SortOrder:   t.SortOrder,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	case application.TaskDeleted:
		return idx.Delete(ctx, ev.TaskID)
	case application.TaskReordered:
		for _, it := range ev.Order {
			if err := idx.SetSortOrder(ctx, it.ID, it.SortOrder); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", errBadEvent, ev.Type)
	}
}
