package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"brfsspulse/pkg/contracts/domain"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Pipeline  PipelineConfig  `yaml:"pipeline" envconfig:"PIPELINE"`
	Ingest    IngestConfig    `yaml:"ingest" envconfig:"INGEST"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	DataDir       string `yaml:"data_dir" envconfig:"DATA_DIR"`
	RawDir        string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	OutputDir     string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	WebDir        string `yaml:"web_dir" envconfig:"WEB_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// PipelineConfig contains the tunable stage parameters for a run
type PipelineConfig struct {
	MinYear              int           `yaml:"min_year" envconfig:"MIN_YEAR"`
	MaxYear              int           `yaml:"max_year" envconfig:"MAX_YEAR"`
	OutlierMultiplier    float64       `yaml:"outlier_multiplier" envconfig:"OUTLIER_MULTIPLIER"`
	OutlierMinGroup      int           `yaml:"outlier_min_group" envconfig:"OUTLIER_MIN_GROUP"`
	MaxRejectionRate     float64       `yaml:"max_rejection_rate" envconfig:"MAX_REJECTION_RATE"`
	PrimaryMetric        string        `yaml:"primary_metric" envconfig:"PRIMARY_METRIC"`
	CorrelationUseLatest bool          `yaml:"correlation_use_latest" envconfig:"CORRELATION_USE_LATEST"`
	MinCorrelationPoints int           `yaml:"min_correlation_points" envconfig:"MIN_CORRELATION_POINTS"`
	Timeout              time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// IngestConfig contains input source configuration
type IngestConfig struct {
	Source string `yaml:"source" envconfig:"SOURCE"`
	Format string `yaml:"format" envconfig:"FORMAT"` // csv|xlsx|auto
	Sheet  string `yaml:"sheet" envconfig:"SHEET"`   // xlsx worksheet, first when empty
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins).
func Load() (*Config, error) {
	cfg := *Default()

	configFile := getConfigFilePath()
	if configFile != "" {
		if err := overlayFromFile(configFile, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// envconfig only assigns fields whose variables are actually set, so
	// defaults and file values survive.
	if err := envconfig.Process("BRFSS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// overlayFromFile merges YAML file values over the current configuration
func overlayFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid yaml in %s: %w", filePath, err)
	}

	return nil
}

// resolvePaths fills in the executable directory from the centralized paths
// system when not configured explicitly
func (c *Config) resolvePaths() error {
	if c.Paths.ExecutableDir != "" {
		return nil
	}

	paths, err := GetPaths()
	if err != nil {
		return fmt.Errorf("failed to get paths: %w", err)
	}
	c.Paths.ExecutableDir = paths.ExecutableDir

	return nil
}

// validate checks the configuration for usable values
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Pipeline.MinYear > c.Pipeline.MaxYear {
		return fmt.Errorf("pipeline min year %d after max year %d", c.Pipeline.MinYear, c.Pipeline.MaxYear)
	}
	if c.Pipeline.OutlierMultiplier <= 0 {
		return fmt.Errorf("outlier multiplier must be positive")
	}
	if c.Pipeline.MaxRejectionRate < 0 || c.Pipeline.MaxRejectionRate >= 1 {
		return fmt.Errorf("max rejection rate must be in [0, 1)")
	}
	if !domain.Metric(c.Pipeline.PrimaryMetric).IsValid() {
		return fmt.Errorf("unknown primary metric: %s", c.Pipeline.PrimaryMetric)
	}

	switch c.Ingest.Format {
	case "csv", "xlsx", "auto":
	default:
		return fmt.Errorf("unknown ingest format: %s", c.Ingest.Format)
	}

	// Structured logs are always JSON with file output available.
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output != "both" && c.Logging.Output != "file" && c.Logging.Output != "console" {
		c.Logging.Output = "both"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "app.log")
	}

	return nil
}

// getConfigFilePath returns the first config file found in common locations
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   "both",
			FilePath: filepath.Join(DefaultLogsDir, "app.log"),
		},
		Paths: PathsConfig{
			DataDir:   DefaultDataDir,
			RawDir:    DefaultRawDir,
			OutputDir: DefaultOutputDir,
			WebDir:    DefaultWebDir,
			LogsDir:   DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  WebSocketReadBufferSize,
			WriteBufferSize: WebSocketWriteBufferSize,
			PingPeriod:      WebSocketPingPeriod,
			PongWait:        WebSocketPongWait,
		},
		Pipeline: PipelineConfig{
			MinYear:              2015,
			MaxYear:              2024,
			OutlierMultiplier:    1.5,
			OutlierMinGroup:      4,
			MaxRejectionRate:     0.05,
			PrimaryMetric:        string(domain.MetricDiabetes),
			CorrelationUseLatest: false,
			MinCorrelationPoints: 3,
			Timeout:              DefaultPipelineTimeout,
		},
		Ingest: IngestConfig{
			Source: filepath.Join(DefaultRawDir, "brfss_health_data.csv"),
			Format: "auto",
		},
	}
}
