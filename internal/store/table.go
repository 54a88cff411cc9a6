package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/medconsult-api/pkg/logger"
	"github.com/jwalitptl/medconsult-api/pkg/metrics"
)

// Table is a typed view of one collection.
type Table[T any] struct {
	collection Collection
	backend    Backend
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func newTable[T any](c Collection, backend Backend, log *logger.Logger, m *metrics.Metrics) *Table[T] {
	return &Table[T]{
		collection: c,
		backend:    backend,
		logger:     log,
		metrics:    m,
	}
}

func (t *Table[T]) Collection() Collection {
	return t.collection
}

// LoadAll returns every record in insertion order. A missing or unparseable
// collection loads as empty; only backend failures are returned.
func (t *Table[T]) LoadAll(ctx context.Context) ([]T, error) {
	start := time.Now()
	data, err := t.backend.Read(ctx, t.collection)
	if errors.Is(err, ErrNotExist) {
		t.observe("load", start, nil)
		return []T{}, nil
	}
	t.observe("load", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", t.collection, err)
	}

	records := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		t.metrics.StoreCorrupt.WithLabelValues(string(t.collection)).Inc()
		t.logger.Warn("collection is unreadable, treating it as empty",
			"collection", string(t.collection),
			"error", err.Error())
		return []T{}, nil
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// SaveAll replaces the whole collection with records.
func (t *Table[T]) SaveAll(ctx context.Context, records []T) error {
	if records == nil {
		records = []T{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", t.collection, err)
	}

	start := time.Now()
	err = t.backend.Write(ctx, t.collection, data)
	t.observe("save", start, err)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", t.collection, err)
	}
	return nil
}

func (t *Table[T]) observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.StoreOperations.WithLabelValues(string(t.collection), op, status).Inc()
	t.metrics.StoreLatency.WithLabelValues(string(t.collection), op).Observe(time.Since(start).Seconds())
}
