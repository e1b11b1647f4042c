package warehouse_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"auctionload/internal/logging"
	"auctionload/internal/services"
	"auctionload/internal/source"
	"auctionload/internal/warehouse"
)

func openSQLite(t *testing.T) *warehouse.SQLite {
	t.Helper()
	wh, err := warehouse.OpenSQLite(filepath.Join(t.TempDir(), "wh", "warehouse.db"), logging.NewNop())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = wh.Close() })
	return wh
}

func TestSQLiteCreateTableIsIdempotent(t *testing.T) {
	wh := openSQLite(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := wh.CreateTable(ctx, "AU_IS_20240101", warehouse.AuctionSchema()); err != nil {
			t.Fatalf("CreateTable pass %d: %v", i+1, err)
		}
	}
	if err := wh.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
}

func TestSQLiteRejectsBadTableName(t *testing.T) {
	wh := openSQLite(t)
	err := wh.CreateTable(context.Background(), "drop table; --", warehouse.AuctionSchema())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSQLiteLoadAppends(t *testing.T) {
	wh := openSQLite(t)
	ctx := context.Background()
	table := warehouse.TableName("AU_IS_", "20240101")
	if err := wh.CreateTable(ctx, table, warehouse.AuctionSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	content := "A,x.com,2024-01-01T00:00:00Z,10,5,3,0\r\n\"B, Inc.\",x.com,2024-01-02T00:00:00Z,1,,3.5,0"
	res, err := wh.Load(ctx, table, source.File{Name: "__AU_20240101.csv"}, content)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Rows != 2 || res.JobID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := wh.Load(ctx, table, source.File{Name: "__AU_20240101_2.csv"}, content); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	n, err := wh.CountRows(ctx, table)
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if n != 4 {
		t.Fatalf("rows = %d, want 4", n)
	}
}

func TestSQLiteLoadRejectsBadRecordAtomically(t *testing.T) {
	wh := openSQLite(t)
	ctx := context.Background()
	table := "AU_IS_20240102"
	if err := wh.CreateTable(ctx, table, warehouse.AuctionSchema()); err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	content := "A,x.com,2024-01-01T00:00:00Z,10,5,3,0\r\nA,x.com,2024-01-01T00:00:00Z,ten,5,3,0"
	_, err := wh.Load(ctx, table, source.File{Name: "bad.csv"}, content)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	n, err := wh.CountRows(ctx, table)
	if err != nil {
		t.Fatalf("CountRows: %v", err)
	}
	if n != 0 {
		t.Fatalf("rows = %d, want 0 after rejected load", n)
	}
}

func TestSQLiteLoadMissingTable(t *testing.T) {
	wh := openSQLite(t)
	_, err := wh.Load(context.Background(), "AU_IS_19990101", source.File{Name: "x.csv"}, "a")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
