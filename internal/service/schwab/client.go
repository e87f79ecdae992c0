// Package schwab reads accounts, positions and trades from the Schwab
// Trader API using a token obtained out of band.
package schwab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"TradeDash/internal/domain/models"
	apphttp "TradeDash/pkg/http"
	"TradeDash/pkg/util"
)

// ErrNotConfigured is returned when credentials or the token file are missing.
var ErrNotConfigured = errors.New("schwab: credentials not configured")

const (
	accountsPath = "/trader/v1/accounts"
	// the API takes ISO-8601 instants with millisecond precision
	instantLayout = "2006-01-02T15:04:05.000Z"
)

// Credentials mirrors schwab_config.json.
type Credentials struct {
	APIKey      string `json:"api_key"`
	AppSecret   string `json:"app_secret"`
	RedirectURI string `json:"redirect_uri"`
}

// Account is one entry of the account numbers listing.
type Account struct {
	AccountNumber string `json:"accountNumber"`
	HashValue     string `json:"hashValue"`
}

// Client talks to the Trader API. Credentials and token are re-read on every
// call so a refreshed token.json is picked up without a restart.
type Client struct {
	http       *apphttp.Client
	baseURL    string
	configFile string
	tokenFile  string
}

func NewClient(httpClient *apphttp.Client, baseURL, configFile, tokenFile string) *Client {
	return &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		configFile: configFile,
		tokenFile:  tokenFile,
	}
}

// Configured reports whether both credential files can be read.
func (c *Client) Configured() bool {
	_, err := c.accessToken()
	return err == nil
}

// LoadCredentials reads schwab_config.json. A missing or incomplete file
// yields ErrNotConfigured.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return creds, ErrNotConfigured
		}
		return creds, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("parse %s: %w", path, err)
	}
	if creds.APIKey == "" || creds.AppSecret == "" {
		return creds, ErrNotConfigured
	}
	return creds, nil
}

// tokenDoc accepts both a bare token object and the wrapped form written
// by the authentication helper ({"creation_timestamp": ..., "token": {...}}).
type tokenDoc struct {
	AccessToken string `json:"access_token"`
	Token       *struct {
		AccessToken string `json:"access_token"`
	} `json:"token"`
}

func (c *Client) accessToken() (string, error) {
	if _, err := LoadCredentials(c.configFile); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(c.tokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotConfigured
		}
		return "", fmt.Errorf("read %s: %w", c.tokenFile, err)
	}
	var tf tokenDoc
	if err := json.Unmarshal(raw, &tf); err != nil {
		return "", fmt.Errorf("parse %s: %w", c.tokenFile, err)
	}
	token := tf.AccessToken
	if tf.Token != nil && tf.Token.AccessToken != "" {
		token = tf.Token.AccessToken
	}
	if token == "" {
		return "", ErrNotConfigured
	}
	return token, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	token, err := c.accessToken()
	if err != nil {
		return err
	}
	err = c.http.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:      apphttp.MethodGet,
		URL:         c.baseURL + path,
		Headers:     map[string]string{"Authorization": "Bearer " + token, "Accept": "application/json"},
		QueryParams: query,
	}, dest)
	if err != nil {
		return fmt.Errorf("schwab GET %s: %w", path, err)
	}
	return nil
}

// AccountNumbers lists the linked accounts and their hash values.
func (c *Client) AccountNumbers(ctx context.Context) ([]Account, error) {
	var accounts []Account
	if err := c.get(ctx, accountsPath+"/accountNumbers", nil, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// AccountIDs returns the hash of every linked account; the API addresses
// accounts by hash, never by number.
func (c *Client) AccountIDs(ctx context.Context) ([]string, error) {
	accounts, err := c.AccountNumbers(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.HashValue)
	}
	return ids, nil
}

type apiPosition struct {
	LongQuantity  *float64 `json:"longQuantity"`
	ShortQuantity float64  `json:"shortQuantity"`
	AveragePrice  float64  `json:"averagePrice"`
	MarketValue   float64  `json:"marketValue"`
	Instrument    struct {
		Symbol string `json:"symbol"`
	} `json:"instrument"`
}

type apiAccount struct {
	SecuritiesAccount struct {
		Positions []apiPosition `json:"positions"`
	} `json:"securitiesAccount"`
}

// Positions returns the holdings of one account. AsOfTimestamp is left for
// the caller so a batch across accounts shares one stamp.
func (c *Client) Positions(ctx context.Context, accountHash string) ([]models.Position, error) {
	var acct apiAccount
	path := accountsPath + "/" + url.PathEscape(accountHash)
	if err := c.get(ctx, path, map[string][]string{"fields": {"positions"}}, &acct); err != nil {
		return nil, err
	}

	out := make([]models.Position, 0, len(acct.SecuritiesAccount.Positions))
	for _, p := range acct.SecuritiesAccount.Positions {
		qty := -p.ShortQuantity
		if p.LongQuantity != nil {
			qty = *p.LongQuantity
		}
		var price float64
		if qty != 0 {
			price = p.MarketValue / qty
		}
		out = append(out, models.Position{
			AccountID:    accountHash,
			Symbol:       p.Instrument.Symbol,
			Quantity:     qty,
			MarketValue:  p.MarketValue,
			AveragePrice: p.AveragePrice,
			CurrentPrice: price,
		})
	}
	return out, nil
}

type apiTransaction struct {
	Type            string  `json:"type"`
	Description     string  `json:"description"`
	TradeDate       string  `json:"tradeDate"`
	NetAmount       float64 `json:"netAmount"`
	TransactionItem struct {
		Amount     float64 `json:"amount"`
		Price      float64 `json:"price"`
		Instrument struct {
			Symbol string `json:"symbol"`
		} `json:"instrument"`
	} `json:"transactionItem"`
}

// Transactions returns TRADE transactions of one account between from and
// to, both inclusive calendar days.
func (c *Client) Transactions(ctx context.Context, accountHash string, from, to time.Time) ([]models.Transaction, error) {
	var raw []apiTransaction
	path := accountsPath + "/" + url.PathEscape(accountHash) + "/transactions"
	query := map[string][]string{
		"types":     {"TRADE"},
		"startDate": {util.Day(from).Format(instantLayout)},
		"endDate":   {util.Day(to).Add(24*time.Hour - time.Millisecond).Format(instantLayout)},
	}
	if err := c.get(ctx, path, query, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Transaction, 0, len(raw))
	for _, t := range raw {
		out = append(out, models.Transaction{
			AccountID:   accountHash,
			Type:        t.Type,
			Description: t.Description,
			Symbol:      t.TransactionItem.Instrument.Symbol,
			Quantity:    t.TransactionItem.Amount,
			Price:       t.TransactionItem.Price,
			TradeDate:   tradeDay(t.TradeDate),
			NetAmount:   t.NetAmount,
		})
	}
	return out, nil
}

// tradeDay trims an API timestamp to YYYY-MM-DD, keeping unparseable input.
func tradeDay(s string) string {
	if d, ok := util.ParseTradeDate(s); ok {
		return util.FormatDate(d)
	}
	if i := strings.IndexByte(s, 'T'); i > 0 {
		return s[:i]
	}
	return s
}
