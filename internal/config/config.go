package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Gamma     GammaConfig     `mapstructure:"gamma"`
	Clob      ClobConfig      `mapstructure:"clob"`
	ChainGPT  ChainGPTConfig  `mapstructure:"chaingpt"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Turnstile TurnstileConfig `mapstructure:"turnstile"`
	Indexer   IndexerConfig   `mapstructure:"indexer"`
	Scorer    ScorerConfig    `mapstructure:"scorer"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr       string   `mapstructure:"http_addr"`
	OpenAnalyze    bool     `mapstructure:"open_analyze"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type GammaConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ClobConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChainGPTConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GeminiConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type TurnstileConfig struct {
	SecretKey string        `mapstructure:"secret_key"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type IndexerConfig struct {
	PageSize            int           `mapstructure:"page_size"`
	PageDelay           time.Duration `mapstructure:"page_delay"`
	ErrorDelay          time.Duration `mapstructure:"error_delay"`
	IdleDelay           time.Duration `mapstructure:"idle_delay"`
	OverwriteDuplicates bool          `mapstructure:"overwrite_duplicates"`
}

type ScorerConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	FreshnessWindow time.Duration `mapstructure:"freshness_window"`
	BatchDelay      time.Duration `mapstructure:"batch_delay"`
}

type AnalyzerConfig struct {
	PoolSize     int    `mapstructure:"pool_size"`
	AutoEnabled  bool   `mapstructure:"auto_enabled"`
	AutoSchedule string `mapstructure:"auto_schedule"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":3001")
	v.SetDefault("server.open_analyze", false)
	v.SetDefault("server.allowed_origins", []string{"https://nuke.farm", "https://www.nuke.farm", "http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("gamma.base_url", "https://gamma-api.polymarket.com")
	v.SetDefault("gamma.timeout", "15s")
	v.SetDefault("clob.base_url", "https://clob.polymarket.com")
	v.SetDefault("clob.timeout", "15s")
	v.SetDefault("chaingpt.base_url", "https://api.chaingpt.org")
	v.SetDefault("chaingpt.timeout", "60s")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", "120s")
	v.SetDefault("turnstile.base_url", "https://challenges.cloudflare.com")
	v.SetDefault("turnstile.timeout", "10s")
	v.SetDefault("indexer.page_size", 100)
	v.SetDefault("indexer.page_delay", "500ms")
	v.SetDefault("indexer.error_delay", "5s")
	v.SetDefault("indexer.idle_delay", "5m")
	v.SetDefault("indexer.overwrite_duplicates", false)
	v.SetDefault("scorer.batch_size", 25)
	v.SetDefault("scorer.freshness_window", "24h")
	v.SetDefault("scorer.batch_delay", "3s")
	v.SetDefault("analyzer.pool_size", 50)
	v.SetDefault("analyzer.auto_enabled", false)
	v.SetDefault("analyzer.auto_schedule", "@every 1h")
	v.SetDefault("rate_limit.max_requests", 3)
	v.SetDefault("rate_limit.window", "1h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
