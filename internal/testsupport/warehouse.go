package testsupport

import (
	"context"
	"fmt"
	"sync"

	"auctionload/internal/source"
	"auctionload/internal/warehouse"
)

// LoadCall records one Load invocation on MemoryWarehouse.
type LoadCall struct {
	Table   string
	File    source.File
	Content string
}

// MemoryWarehouse is an in-memory warehouse.Warehouse.
type MemoryWarehouse struct {
	mu     sync.Mutex
	tables map[string]warehouse.Schema
	loads  []LoadCall

	FailCreate error
	FailLoad   error
	FailCheck  error
}

// NewMemoryWarehouse returns an empty warehouse.
func NewMemoryWarehouse() *MemoryWarehouse {
	return &MemoryWarehouse{tables: map[string]warehouse.Schema{}}
}

func (w *MemoryWarehouse) Describe() string { return "memory" }

func (w *MemoryWarehouse) Close() error { return nil }

func (w *MemoryWarehouse) Check(context.Context) error { return w.FailCheck }

func (w *MemoryWarehouse) CreateTable(ctx context.Context, table string, schema warehouse.Schema) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FailCreate != nil {
		return w.FailCreate
	}
	if _, ok := w.tables[table]; !ok {
		w.tables[table] = schema
	}
	return nil
}

func (w *MemoryWarehouse) Load(ctx context.Context, table string, f source.File, content string) (warehouse.LoadResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FailLoad != nil {
		return warehouse.LoadResult{}, w.FailLoad
	}
	if _, ok := w.tables[table]; !ok {
		return warehouse.LoadResult{}, fmt.Errorf("table %s not found", table)
	}
	w.loads = append(w.loads, LoadCall{Table: table, File: f, Content: content})
	return warehouse.LoadResult{JobID: fmt.Sprintf("job-%d", len(w.loads))}, nil
}

// Loads returns a copy of the recorded load calls.
func (w *MemoryWarehouse) Loads() []LoadCall {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]LoadCall, len(w.loads))
	copy(out, w.loads)
	return out
}

// HasTable reports whether table was created.
func (w *MemoryWarehouse) HasTable(table string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.tables[table]
	return ok
}
