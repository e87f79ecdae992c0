package repository

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"TradeDash/internal/domain/repository"
	"TradeDash/pkg/cache"
)

// FileWatchlist keeps one uppercase symbol per line in a text file.
type FileWatchlist struct {
	path string
}

func NewFileWatchlist(path string) repository.WatchlistStore {
	return &FileWatchlist{path: path}
}

// Load returns the symbols in file order. A missing file is an empty list.
func (w *FileWatchlist) Load(_ context.Context) ([]string, error) {
	raw, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	symbols := []string{}
	sc := bufio.NewScanner(bytes.NewReader(raw))
	for sc.Scan() {
		if s := strings.ToUpper(strings.TrimSpace(sc.Text())); s != "" {
			symbols = append(symbols, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan watchlist: %w", err)
	}
	return symbols, nil
}

func (w *FileWatchlist) Save(_ context.Context, symbols []string) error {
	var buf bytes.Buffer
	for _, s := range symbols {
		buf.WriteString(s)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create watchlist dir: %w", err)
	}
	if err := cache.WriteFileAtomic(w.path, buf.Bytes()); err != nil {
		return fmt.Errorf("write watchlist: %w", err)
	}
	return nil
}
