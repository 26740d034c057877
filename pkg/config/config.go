// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Search, Analyzer, Corpus, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitPerMinute bounds API requests per client. Zero disables it.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
	// AdminToken guards cache invalidation when set.
	AdminToken string `yaml:"adminToken"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchRequests  string `yaml:"searchRequests"`
	SearchResults   string `yaml:"searchResults"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// SearchConfig controls the corpus scan and result limits.
type SearchConfig struct {
	Workers             int `yaml:"workers"`
	ProgressEvery       int `yaml:"progressEvery"`
	DefaultMinFrequency int `yaml:"defaultMinFrequency"`
	MaxKeywords         int `yaml:"maxKeywords"`
	DefaultLimit        int `yaml:"defaultLimit"`
	MaxResults          int `yaml:"maxResults"`
}

// AnalyzerConfig selects the tokenizer and the stopword list.
type AnalyzerConfig struct {
	Tokenizer         string `yaml:"tokenizer"`
	StopwordsLanguage string `yaml:"stopwordsLanguage"`
	StopwordsPath     string `yaml:"stopwordsPath"`
}

// CorpusConfig describes where documents come from and how they are sampled.
type CorpusConfig struct {
	Source          string `yaml:"source"`
	CSVPath         string `yaml:"csvPath"`
	SampleEvery     int    `yaml:"sampleEvery"`
	RequireFullText bool   `yaml:"requireFullText"`
}

// AnalyticsConfig controls search-event publishing and the snapshot interval
// of the analytics service.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with local development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       60 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			RateLimitPerMinute: 120,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "keywordsearch",
			User:            "keywordsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "keywordsearch-group",
			Topics: KafkaTopics{
				SearchRequests:  "keyword-search-requests",
				SearchResults:   "keyword-search-results",
				AnalyticsEvents: "keyword-search-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Search: SearchConfig{
			Workers:             4,
			ProgressEvery:       100,
			DefaultMinFrequency: 0,
			MaxKeywords:         64,
			DefaultLimit:        10,
			MaxResults:          1000,
		},
		Analyzer: AnalyzerConfig{
			Tokenizer:         "prose",
			StopwordsLanguage: "english",
		},
		Corpus: CorpusConfig{
			Source:          "csv",
			CSVPath:         "corddata/metadata.csv",
			SampleEvery:     100,
			RequireFullText: true,
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    2 * time.Second,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be at least 1, got %d", c.Search.Workers)
	}
	if c.Search.DefaultMinFrequency < 0 {
		return fmt.Errorf("search.defaultMinFrequency must not be negative, got %d", c.Search.DefaultMinFrequency)
	}
	if c.Server.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rateLimitPerMinute must not be negative, got %d", c.Server.RateLimitPerMinute)
	}
	if c.Corpus.SampleEvery < 1 {
		return fmt.Errorf("corpus.sampleEvery must be at least 1, got %d", c.Corpus.SampleEvery)
	}
	switch c.Corpus.Source {
	case "csv", "postgres":
	default:
		return fmt.Errorf("corpus.source must be csv or postgres, got %q", c.Corpus.Source)
	}
	return nil
}

// applyEnvOverrides reads KFS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KFS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KFS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("KFS_SERVER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("KFS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("KFS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("KFS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("KFS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("KFS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("KFS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KFS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KFS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KFS_SEARCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.Workers = n
		}
	}
	if v := os.Getenv("KFS_ANALYZER_TOKENIZER"); v != "" {
		cfg.Analyzer.Tokenizer = v
	}
	if v := os.Getenv("KFS_ANALYZER_STOPWORDS_PATH"); v != "" {
		cfg.Analyzer.StopwordsPath = v
	}
	if v := os.Getenv("KFS_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("KFS_CORPUS_CSV_PATH"); v != "" {
		cfg.Corpus.CSVPath = v
	}
	if v := os.Getenv("KFS_ANALYTICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analytics.Enabled = b
		}
	}
	if v := os.Getenv("KFS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KFS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
