package store

import (
	"context"
	"strings"
	"testing"
)

func TestSearchByUsername(t *testing.T) {
	var gotQuery string
	var gotArgs []any
	store := NewUserStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			gotQuery = query
			gotArgs = args
			return nil
		},
	})
	if _, err := store.SearchByUsername(context.Background(), "ali", 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(gotQuery, "ILIKE") || !strings.Contains(gotQuery, "LIMIT") {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "ali" || gotArgs[1] != 20 {
		t.Fatalf("unexpected args: %#v", gotArgs)
	}
}
