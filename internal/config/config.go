package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Graph      GraphConfig      `yaml:"graph" mapstructure:"graph"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Edgar      EdgarConfig      `yaml:"edgar" mapstructure:"edgar"`
	FilingAPI  FilingAPIConfig  `yaml:"filing_api" mapstructure:"filing_api"`
	Finnhub    FinnhubConfig    `yaml:"finnhub" mapstructure:"finnhub"`
	Embedding  EmbeddingConfig  `yaml:"embedding" mapstructure:"embedding"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Consensus  ConsensusConfig  `yaml:"consensus" mapstructure:"consensus"`
	Similarity SimilarityConfig `yaml:"similarity" mapstructure:"similarity"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GraphConfig configures the Neo4j connection.
type GraphConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`

	NodeBatchSize   int `yaml:"node_batch_size" mapstructure:"node_batch_size"`
	EdgeBatchSize   int `yaml:"edge_batch_size" mapstructure:"edge_batch_size"`
	DeleteBatchSize int `yaml:"delete_batch_size" mapstructure:"delete_batch_size"`
}

// CacheConfig configures the artifact cache backend.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	BusyTimeout int    `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// EdgarConfig configures SEC EDGAR access.
type EdgarConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	Rate        float64 `yaml:"rate" mapstructure:"rate"`
	ArchiveRate float64 `yaml:"archive_rate" mapstructure:"archive_rate"`
}

// FilingAPIConfig configures the commercial filing provider.
type FilingAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FinnhubConfig configures the Finnhub fallback source.
type FinnhubConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmbeddingConfig configures the embedding provider and chunker.
type EmbeddingConfig struct {
	Key               string  `yaml:"key" mapstructure:"key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	Dimension         int     `yaml:"dimension" mapstructure:"dimension"`
	ChunkTokens       int     `yaml:"chunk_tokens" mapstructure:"chunk_tokens"`
	OverlapTokens     int     `yaml:"overlap_tokens" mapstructure:"overlap_tokens"`
	MaxChunksPerBatch int     `yaml:"max_chunks_per_batch" mapstructure:"max_chunks_per_batch"`
	MaxTokensPerBatch int     `yaml:"max_tokens_per_batch" mapstructure:"max_tokens_per_batch"`
	Rate              float64 `yaml:"rate" mapstructure:"rate"`
}

// AnthropicConfig configures optional answer synthesis.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ConsensusConfig configures domain consensus voting.
type ConsensusConfig struct {
	EarlyStop     float64            `yaml:"early_stop" mapstructure:"early_stop"`
	SourceTimeout int                `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	Weights       map[string]float64 `yaml:"weights" mapstructure:"weights"`
}

// SimilarityConfig configures the similarity engine defaults.
type SimilarityConfig struct {
	TopK                 int     `yaml:"top_k" mapstructure:"top_k"`
	Threshold            float64 `yaml:"threshold" mapstructure:"threshold"`
	DescriptionThreshold float64 `yaml:"description_threshold" mapstructure:"description_threshold"`
}

// PipelineConfig configures worker pools.
type PipelineConfig struct {
	Workers     int `yaml:"workers" mapstructure:"workers"`
	PaidWorkers int `yaml:"paid_workers" mapstructure:"paid_workers"`
}

// PathsConfig holds the on-disk layout for pipeline artifacts.
type PathsConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	PortfoliosDir string `yaml:"portfolios_dir" mapstructure:"portfolios_dir"`
	FilingsDir    string `yaml:"filings_dir" mapstructure:"filings_dir"`
	LogsDir       string `yaml:"logs_dir" mapstructure:"logs_dir"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file, and environment.
func Load() (*Config, error) {
	// Best-effort .env load; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EDGAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Canonical external variables shared with the other tooling around the
	// graph. A missing key silently disables the corresponding source.
	_ = v.BindEnv("graph.uri", "NEO4J_URI")
	_ = v.BindEnv("graph.username", "NEO4J_USERNAME")
	_ = v.BindEnv("graph.password", "NEO4J_PASSWORD")
	_ = v.BindEnv("embedding.key", "OPENAI_API_KEY")
	_ = v.BindEnv("filing_api.key", "SEC_API_KEY")
	_ = v.BindEnv("finnhub.key", "FINNHUB_API_KEY")
	_ = v.BindEnv("anthropic.key", "ANTHROPIC_API_KEY")

	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("graph.node_batch_size", 1000)
	v.SetDefault("graph.edge_batch_size", 5000)
	v.SetDefault("graph.delete_batch_size", 10000)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.path", "data/cache/cache.db")
	v.SetDefault("cache.busy_timeout_ms", 30000)
	v.SetDefault("edgar.user_agent", "Sells Group research blake@sellsadvisors.com")
	v.SetDefault("edgar.rate", 10.0)
	v.SetDefault("edgar.archive_rate", 5.0)
	v.SetDefault("filing_api.base_url", "https://api.sec-api.io")
	v.SetDefault("finnhub.base_url", "https://finnhub.io/api/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 1536)
	v.SetDefault("embedding.chunk_tokens", 7000)
	v.SetDefault("embedding.overlap_tokens", 200)
	v.SetDefault("embedding.max_chunks_per_batch", 30)
	v.SetDefault("embedding.max_tokens_per_batch", 250000)
	v.SetDefault("embedding.rate", 100.0)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("consensus.early_stop", 0.75)
	v.SetDefault("consensus.source_timeout_secs", 30)
	v.SetDefault("consensus.weights", map[string]float64{
		"yfinance":  3.0,
		"sec_edgar": 2.5,
		"finviz":    2.0,
		"finnhub":   1.0,
	})
	v.SetDefault("similarity.top_k", 50)
	v.SetDefault("similarity.threshold", 0.7)
	v.SetDefault("similarity.description_threshold", 0.6)
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("pipeline.paid_workers", 16)
	v.SetDefault("paths.data_dir", "data")
	v.SetDefault("paths.portfolios_dir", "data/10k_portfolios")
	v.SetDefault("paths.filings_dir", "data/10k_filings")
	v.SetDefault("paths.logs_dir", "logs")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Workers returns the worker-pool size. Paid provider access supports a
// larger pool since it is not bound by the free-tier rate limits.
func (c *Config) Workers() int {
	if c.FilingAPI.Key != "" {
		return c.Pipeline.PaidWorkers
	}
	return c.Pipeline.Workers
}
