package marketdata

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/pkg/cache"
)

var unsafeSymbolChars = regexp.MustCompile(`[^A-Z0-9._-]+`)

// CSVStore keeps one <SYMBOL>.csv per symbol, fresh while younger than ttl.
type CSVStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewCSVStore(dir string, ttl time.Duration) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create price cache dir: %w", err)
	}
	return &CSVStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *CSVStore) path(symbol string) string {
	return filepath.Join(s.dir, unsafeSymbolChars.ReplaceAllString(symbol, "_")+".csv")
}

// Load returns cached bars when the file is fresh and parseable. A stale,
// unreadable or close-less file is a miss.
func (s *CSVStore) Load(symbol string) ([]models.Bar, bool) {
	path := s.path(symbol)
	info, err := os.Stat(path)
	if err != nil || s.now().Sub(info.ModTime()) >= s.ttl {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	bars, err := readBarsCSV(bytes.NewReader(raw))
	if err != nil || len(bars) == 0 {
		return nil, false
	}
	return bars, true
}

// Save replaces the symbol's file atomically.
func (s *CSVStore) Save(symbol string, bars []models.Bar) error {
	var buf bytes.Buffer
	if err := writeBarsCSV(&buf, bars); err != nil {
		return fmt.Errorf("encode %s: %w", symbol, err)
	}
	return cache.WriteFileAtomic(s.path(symbol), buf.Bytes())
}
