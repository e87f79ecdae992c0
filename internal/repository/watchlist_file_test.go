package repository

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileWatchlist_LoadSave(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lists", "watchlist.txt")
	store := NewFileWatchlist(path)

	got, err := store.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("missing file should load empty, got %v, %v", got, err)
	}

	if err := store.Save(ctx, []string{"AAPL", "MSFT"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "AAPL\nMSFT\n" {
		t.Fatalf("file contents = %q", raw)
	}

	if err := os.WriteFile(path, []byte(" aapl \n\n msft\n\ngoog"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := []string{"AAPL", "MSFT", "GOOG"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Load = %v, want %v", got, want)
	}
}
