package warehouse

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"auctionload/internal/services"
)

func TestBigQuerySchemaMapping(t *testing.T) {
	schema := bigQuerySchema(AuctionSchema())
	if len(schema) != 7 {
		t.Fatalf("fields = %d, want 7", len(schema))
	}
	want := map[string]bigquery.FieldType{
		"account":             bigquery.StringFieldType,
		"domain":              bigquery.StringFieldType,
		"date":                bigquery.TimestampFieldType,
		"position_above_rate": bigquery.FloatFieldType,
	}
	for _, field := range schema {
		if typ, ok := want[field.Name]; ok && field.Type != typ {
			t.Fatalf("%s type = %s, want %s", field.Name, field.Type, typ)
		}
	}
}

func TestIsAlreadyExists(t *testing.T) {
	conflict := fmt.Errorf("create: %w", &googleapi.Error{Code: http.StatusConflict})
	if !isAlreadyExists(conflict) {
		t.Fatal("409 should count as already exists")
	}
	if isAlreadyExists(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Fatal("403 should not count as already exists")
	}
	if isAlreadyExists(nil) {
		t.Fatal("nil is not already exists")
	}
}

func TestWrapBigQueryErrorMarkers(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusForbidden, services.ErrConfiguration},
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusServiceUnavailable, services.ErrTransient},
	}
	for _, tt := range tests {
		err := wrapBigQueryError("load", "x.csv", &googleapi.Error{Code: tt.code})
		if !errors.Is(err, tt.want) {
			t.Fatalf("code %d: got %v, want %v", tt.code, err, tt.want)
		}
	}
}
