package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backtest struct {
		Symbol          string  `yaml:"symbol"`
		Timeframe       string  `yaml:"timeframe"`
		InitialCapital  float64 `yaml:"initial_capital"`
		CommissionRate  float64 `yaml:"commission_rate"`
		DataPercentage  float64 `yaml:"data_percentage"`
		BankruptcyFloor float64 `yaml:"bankruptcy_floor"`
	} `yaml:"backtest"`
	Optimizer struct {
		Policy         string        `yaml:"policy"`
		MaxIter        int           `yaml:"max_iter"`
		Patience       int           `yaml:"patience"`
		Seed           int64         `yaml:"seed"`
		Workers        int           `yaml:"workers"`
		Eta            float64       `yaml:"eta"`
		MinBudget      float64       `yaml:"min_budget"`
		MaxJobs        int           `yaml:"max_jobs"`
		ScoreCacheTTL  time.Duration `yaml:"score_cache_ttl"`
		WebhookURL     string        `yaml:"webhook_url"`
		WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	} `yaml:"optimizer"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		JobsTopic      string   `yaml:"jobs_topic"`
		TrialsTopic    string   `yaml:"trials_topic"`
		ErrorLogsTopic string   `yaml:"error_logs_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_JOBS_TOPIC"); v != "" {
		c.Kafka.JobsTopic = v
	}
	if v := os.Getenv("KAFKA_TRIALS_TOPIC"); v != "" {
		c.Kafka.TrialsTopic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("OPTIMIZER_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse OPTIMIZER_SEED: %w", err)
		}
		c.Optimizer.Seed = seed
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		c.Optimizer.WebhookURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backtest.Symbol == "" {
		return fmt.Errorf("backtest.symbol is required")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("backtest.initial_capital must be positive, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.CommissionRate < 0 || c.Backtest.CommissionRate >= 1 {
		return fmt.Errorf("backtest.commission_rate must be in [0, 1), got %v", c.Backtest.CommissionRate)
	}
	if c.Backtest.DataPercentage == 0 {
		c.Backtest.DataPercentage = 100
	}
	if c.Backtest.DataPercentage < 0 || c.Backtest.DataPercentage > 100 {
		return fmt.Errorf("backtest.data_percentage must be in (0, 100], got %v", c.Backtest.DataPercentage)
	}
	if c.Optimizer.Eta != 0 && c.Optimizer.Eta <= 1 {
		return fmt.Errorf("optimizer.eta must be greater than 1, got %v", c.Optimizer.Eta)
	}
	if c.Optimizer.MaxJobs <= 0 {
		c.Optimizer.MaxJobs = 2
	}
	return nil
}
