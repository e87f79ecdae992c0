package schwab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	apphttp "TradeDash/pkg/http"
)

func writeCreds(t *testing.T, dir, token string) (string, string) {
	t.Helper()
	cfg := filepath.Join(dir, "schwab_config.json")
	tok := filepath.Join(dir, "token.json")
	if err := os.WriteFile(cfg, []byte(`{"api_key":"k","app_secret":"s","redirect_uri":"https://127.0.0.1"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if token != "" {
		if err := os.WriteFile(tok, []byte(token), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return cfg, tok
}

func TestClient_NotConfigured(t *testing.T) {
	dir := t.TempDir()
	c := NewClient(apphttp.NewClient(), "http://unused", filepath.Join(dir, "missing.json"), filepath.Join(dir, "token.json"))
	if c.Configured() {
		t.Fatalf("expected unconfigured client")
	}
	if _, err := c.AccountNumbers(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	cfg, tok := writeCreds(t, dir, "")
	c = NewClient(apphttp.NewClient(), "http://unused", cfg, tok)
	if _, err := c.Positions(context.Background(), "h"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("missing token must be ErrNotConfigured, got %v", err)
	}
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/trader/v1/accounts/accountNumbers":
			fmt.Fprint(w, `[{"accountNumber":"123","hashValue":"H1"}]`)
		case "/trader/v1/accounts/H1":
			if r.URL.Query().Get("fields") != "positions" {
				t.Errorf("fields = %q", r.URL.Query().Get("fields"))
			}
			fmt.Fprint(w, `{"securitiesAccount":{"positions":[
				{"longQuantity":10,"averagePrice":100,"marketValue":1500,"instrument":{"symbol":"AAPL"}},
				{"shortQuantity":5,"averagePrice":20,"marketValue":-90,"instrument":{"symbol":"XYZ"}},
				{"longQuantity":0,"averagePrice":1,"marketValue":0,"instrument":{"symbol":"ZERO"}}]}}`)
		case "/trader/v1/accounts/H1/transactions":
			q := r.URL.Query()
			if q.Get("types") != "TRADE" || q.Get("startDate") != "2024-01-01T00:00:00.000Z" || q.Get("endDate") != "2024-01-31T23:59:59.999Z" {
				t.Errorf("unexpected query %v", q)
			}
			fmt.Fprint(w, `[{"type":"TRADE","description":"Buy","tradeDate":"2024-01-05T14:30:00+0000","netAmount":-1000,
				"transactionItem":{"amount":10,"price":100,"instrument":{"symbol":"AAPL"}}}]`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient_AccountsPositionsTransactions(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()
	cfg, tok := writeCreds(t, t.TempDir(), `{"creation_timestamp":1,"token":{"access_token":"abc"}}`)
	c := NewClient(apphttp.NewClient(), srv.URL+"/", cfg, tok)
	ctx := context.Background()

	accounts, err := c.AccountNumbers(ctx)
	if err != nil || len(accounts) != 1 || accounts[0].HashValue != "H1" {
		t.Fatalf("AccountNumbers = %+v, %v", accounts, err)
	}

	positions, err := c.Positions(ctx, "H1")
	if err != nil || len(positions) != 3 {
		t.Fatalf("Positions = %+v, %v", positions, err)
	}
	if p := positions[0]; p.Quantity != 10 || p.CurrentPrice != 150 || p.AccountID != "H1" {
		t.Errorf("long position = %+v", p)
	}
	if p := positions[1]; p.Quantity != -5 || p.CurrentPrice != 18 {
		t.Errorf("short position = %+v", p)
	}
	if p := positions[2]; p.CurrentPrice != 0 {
		t.Errorf("zero quantity must price at 0, got %+v", p)
	}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	txs, err := c.Transactions(ctx, "H1", from, to)
	if err != nil || len(txs) != 1 {
		t.Fatalf("Transactions = %+v, %v", txs, err)
	}
	if tx := txs[0]; tx.TradeDate != "2024-01-05" || tx.Symbol != "AAPL" || !tx.IsBuy() || tx.Quantity != 10 {
		t.Errorf("transaction = %+v", tx)
	}
}

func TestClient_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "expired", http.StatusUnauthorized)
	}))
	defer srv.Close()
	cfg, tok := writeCreds(t, t.TempDir(), `{"access_token":"abc"}`)

	_, err := NewClient(apphttp.NewClient(), srv.URL, cfg, tok).AccountNumbers(context.Background())
	var se *apphttp.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
}
