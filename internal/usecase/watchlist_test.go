package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
	"TradeDash/internal/repository"
	"TradeDash/pkg/logger"
)

type memWatchlist struct{ symbols []string }

func (m *memWatchlist) Load(context.Context) ([]string, error) {
	return append([]string{}, m.symbols...), nil
}

func (m *memWatchlist) Save(_ context.Context, s []string) error {
	m.symbols = append([]string{}, s...)
	return nil
}

type stubValidator struct {
	keyed bool
	known map[string]bool
}

func (v stubValidator) Available() bool { return v.keyed }

func (v stubValidator) Valid(_ context.Context, s string) bool { return v.known[s] }

type stubPositions struct {
	positions []models.Position
	err       error
}

func (p stubPositions) Positions(context.Context) ([]models.Position, error) {
	return p.positions, p.err
}

func TestWatchlist_AddMessages(t *testing.T) {
	ctx := context.Background()
	store := &memWatchlist{symbols: []string{"AAPL"}}
	uc := NewWatchlistUseCase(store, stubValidator{keyed: true, known: map[string]bool{"AAPL": true, "MSFT": true}}, nil, logger.Nop())

	tests := []struct {
		in, msg string
	}{
		{" msft ", "MSFT added to watchlist."},
		{"MSFT", "MSFT is already in watchlist."},
		{"aapl", "AAPL is already in watchlist."},
		{"ZZZZ", "ZZZZ is not a valid stock symbol."},
	}
	for _, tt := range tests {
		resp, err := uc.Add(ctx, tt.in)
		if err != nil {
			t.Fatalf("Add(%q): %v", tt.in, err)
		}
		if resp.Message != tt.msg {
			t.Errorf("Add(%q) message = %q, want %q", tt.in, resp.Message, tt.msg)
		}
	}
	if want := []string{"AAPL", "MSFT"}; !reflect.DeepEqual(store.symbols, want) {
		t.Fatalf("stored %v, want %v", store.symbols, want)
	}

	if _, err := uc.Add(ctx, "  "); !errors.Is(err, ErrEmptySymbol) {
		t.Fatalf("expected ErrEmptySymbol, got %v", err)
	}
}

func TestWatchlist_AddWithoutKey(t *testing.T) {
	store := &memWatchlist{}
	uc := NewWatchlistUseCase(store, stubValidator{known: map[string]bool{"AAPL": true}}, nil, logger.Nop())
	resp, err := uc.Add(context.Background(), "AAPL")
	if err != nil || resp.Message != "API key not found. Cannot validate symbol." || len(store.symbols) != 0 {
		t.Fatalf("Add = %+v, %v; stored %v", resp, err, store.symbols)
	}
}

func TestWatchlist_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := &memWatchlist{symbols: []string{"AAPL", "MSFT", "GOOG"}}
	uc := NewWatchlistUseCase(store, stubValidator{}, nil, logger.Nop())

	resp, err := uc.Remove(ctx, "msft")
	if err != nil || resp.Message != "MSFT removed from watchlist." {
		t.Fatalf("Remove = %+v, %v", resp, err)
	}
	if want := []string{"AAPL", "GOOG"}; !reflect.DeepEqual(resp.Symbols, want) || !reflect.DeepEqual(store.symbols, want) {
		t.Fatalf("symbols = %v / %v, want %v", resp.Symbols, store.symbols, want)
	}

	resp, err = uc.Remove(ctx, "MSFT")
	if err != nil || resp.Message != "MSFT not found in watchlist." {
		t.Fatalf("second Remove = %+v, %v", resp, err)
	}
}

func TestWatchlist_SymbolsUnion(t *testing.T) {
	ctx := context.Background()
	store := &memWatchlist{symbols: []string{"MSFT", "AAPL"}}
	held := stubPositions{positions: []models.Position{{Symbol: "KO"}, {Symbol: "AAPL"}}}

	opts, err := NewWatchlistUseCase(store, stubValidator{}, held, logger.Nop()).Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if want := []string{"AAPL", "KO", "MSFT"}; !reflect.DeepEqual(opts.Options, want) || opts.Default != "AAPL" {
		t.Fatalf("Symbols = %+v", opts)
	}

	broken := stubPositions{err: errors.New("broker down")}
	opts, err = NewWatchlistUseCase(store, stubValidator{}, broken, logger.Nop()).Symbols(ctx)
	if err != nil || len(opts.Options) != 2 {
		t.Fatalf("position failure should degrade to the watchlist, got %+v, %v", opts, err)
	}

	opts, _ = NewWatchlistUseCase(&memWatchlist{}, stubValidator{}, nil, logger.Nop()).Symbols(ctx)
	if len(opts.Options) != 0 || opts.Default != "" {
		t.Fatalf("empty lists should give no options, got %+v", opts)
	}
}

func TestWatchlist_AddRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	stores := map[string]domrepo.WatchlistStore{
		"memory": &memWatchlist{},
		"file":   repository.NewFileWatchlist(filepath.Join(t.TempDir(), "watchlist.txt")),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(ctx, []string{"MSFT", "GOOG"}); err != nil {
				t.Fatalf("seed: %v", err)
			}
			before, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			uc := NewWatchlistUseCase(store, stubValidator{keyed: true, known: map[string]bool{"AAPL": true}}, nil, logger.Nop())

			if resp, err := uc.Add(ctx, "AAPL"); err != nil || resp.Message != "AAPL added to watchlist." {
				t.Fatalf("Add = %+v, %v", resp, err)
			}
			if resp, err := uc.Remove(ctx, "AAPL"); err != nil || resp.Message != "AAPL removed from watchlist." {
				t.Fatalf("Remove = %+v, %v", resp, err)
			}

			after, err := store.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(after, before) {
				t.Fatalf("after add+remove = %v, want %v", after, before)
			}
		})
	}
}
