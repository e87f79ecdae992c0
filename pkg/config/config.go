package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"TradeDash/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     logger.Config    `yaml:"logging"`
	MarketData  MarketDataConfig `yaml:"market_data"`
	Broker      BrokerConfig     `yaml:"broker"`
	Watchlist   WatchlistConfig  `yaml:"watchlist"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
	Redis       RedisConfig      `yaml:"redis"`
	History     HistoryConfig    `yaml:"history"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Pipeline    PipelineConfig   `yaml:"pipeline"`
	Scheduler   SchedulerConfig  `yaml:"scheduler"`
	WebSocket   WebSocketConfig  `yaml:"websocket"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8050" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	AllowOrigins    []string      `yaml:"allow_origins" default:"[\"*\"]"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

type MarketDataConfig struct {
	Providers       []string           `yaml:"providers" default:"[\"alpha_vantage\",\"yahoo\",\"polygon\"]" validate:"dive,oneof=alpha_vantage yahoo polygon"`
	CacheDir        string             `yaml:"cache_dir" default:"cache"`
	CacheTTL        time.Duration      `yaml:"cache_ttl" default:"24h"`
	MemoryCacheSize int                `yaml:"memory_cache_size" default:"256"`
	Timeout         time.Duration      `yaml:"timeout" default:"15s"`
	AlphaVantage    AlphaVantageConfig `yaml:"alpha_vantage"`
	Yahoo           YahooConfig        `yaml:"yahoo"`
	Polygon         PolygonConfig      `yaml:"polygon"`
}

type AlphaVantageConfig struct {
	APIKey            string `yaml:"api_key"`
	KeyFile           string `yaml:"key_file" default:".ALPHA_VANTAGE_KEY.txt"`
	BaseURL           string `yaml:"base_url" default:"https://www.alphavantage.co/query"`
	RequestsPerMinute int    `yaml:"requests_per_minute" default:"5" validate:"gte=1"`
}

type YahooConfig struct {
	Enabled   bool   `yaml:"enabled" default:"true"`
	BaseURL   string `yaml:"base_url" default:"https://query1.finance.yahoo.com/v8/finance/chart"`
	Range     string `yaml:"range" default:"1y"`
	UserAgent string `yaml:"user_agent" default:"Mozilla/5.0"`
}

type PolygonConfig struct {
	APIKey       string `yaml:"api_key"`
	LookbackDays int    `yaml:"lookback_days" default:"365" validate:"gte=1"`
}

type BrokerConfig struct {
	Enabled      bool          `yaml:"enabled" default:"true"`
	ConfigFile   string        `yaml:"config_file" default:"schwab_config.json"`
	TokenFile    string        `yaml:"token_file" default:"token.json"`
	BaseURL      string        `yaml:"base_url" default:"https://api.schwabapi.com"`
	CacheDir     string        `yaml:"cache_dir" default:"schwab_cache"`
	PositionsTTL time.Duration `yaml:"positions_ttl" default:"5m"`
	Timeout      time.Duration `yaml:"timeout" default:"20s"`
}

type WatchlistConfig struct {
	File string `yaml:"file" default:"watchlist.txt"`
}

// AnalysisConfig binds every indicator window and strategy threshold.
type AnalysisConfig struct {
	SMAShort        int     `yaml:"sma_short" default:"20" validate:"gte=1"`
	SMALong         int     `yaml:"sma_long" default:"50" validate:"gtfield=SMAShort"`
	EMAWindow       int     `yaml:"ema_window" default:"20" validate:"gte=1"`
	RSIWindow       int     `yaml:"rsi_window" default:"14" validate:"gte=1"`
	RSIOversold     float64 `yaml:"rsi_oversold" default:"30"`
	RSIOverbought   float64 `yaml:"rsi_overbought" default:"70" validate:"gtfield=RSIOversold"`
	MACDFast        int     `yaml:"macd_fast" default:"12" validate:"gte=1"`
	MACDSlow        int     `yaml:"macd_slow" default:"26" validate:"gtfield=MACDFast"`
	MACDSignal      int     `yaml:"macd_signal" default:"9" validate:"gte=1"`
	BollingerWindow int     `yaml:"bollinger_window" default:"20" validate:"gte=2"`
	BollingerK      float64 `yaml:"bollinger_k" default:"2" validate:"gt=0"`
	StochK          int     `yaml:"stoch_k" default:"14" validate:"gte=1"`
	StochD          int     `yaml:"stoch_d" default:"3" validate:"gte=1"`
	StochOversold   float64 `yaml:"stoch_oversold" default:"20"`
	StochOverbought float64 `yaml:"stoch_overbought" default:"80" validate:"gtfield=StochOversold"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"tradedash"`

	PoolSize     int           `yaml:"pool_size" default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" default:"2"`
	PoolTimeout  time.Duration `yaml:"pool_timeout" default:"4s"`
}

type HistoryConfig struct {
	Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=none sqlite clickhouse"`
	SQLitePath string `yaml:"sqlite_path" default:"data/signals.db"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"tradedash"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers" default:"[\"localhost:9092\"]"`
	SignalTopic  string        `yaml:"signal_topic" default:"tradedash.signals"`
	LogTopic     string        `yaml:"log_topic" default:"tradedash.logs"`
	RequiredAcks int           `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
	Compression  string        `yaml:"compression" default:"snappy"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type PipelineConfig struct {
	BufferSize int           `yaml:"buffer_size" default:"256" validate:"gte=1"`
	MaxRPS     int           `yaml:"max_rps_per_symbol" default:"1"`
	RetryMax   int           `yaml:"retry_max" default:"5"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"10s"`
}

type SchedulerConfig struct {
	Enabled     bool   `yaml:"enabled" default:"true"`
	RefreshCron string `yaml:"refresh_cron" default:"0 30 16 * * MON-FRI"`
	Timezone    string `yaml:"timezone" default:"America/New_York"`
}

type WebSocketConfig struct {
	Enabled      bool          `yaml:"enabled" default:"true"`
	SendBuffer   int           `yaml:"send_buffer" default:"16"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

// Default returns a config populated only from `default` tags.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file over the defaults and validates the result.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.MarketData.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		c.MarketData.Polygon.APIKey = v
	}
	if v := os.Getenv("WATCHLIST_FILE"); v != "" {
		c.Watchlist.File = v
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.History.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// AlphaVantageKey resolves the key: key file first, then env/YAML.
func (c *Config) AlphaVantageKey() string {
	if f := c.MarketData.AlphaVantage.KeyFile; f != "" {
		if b, err := os.ReadFile(f); err == nil {
			if k := strings.TrimSpace(string(b)); k != "" {
				return k
			}
		}
	}
	return c.MarketData.AlphaVantage.APIKey
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}
