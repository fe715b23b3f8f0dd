package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Neo4j struct {
		URI          string        `yaml:"uri"`
		User         string        `yaml:"user"`
		Password     string        `yaml:"password"`
		Database     string        `yaml:"database"`
		DialTimeout  time.Duration `yaml:"dial_timeout"`
		QueryTimeout time.Duration `yaml:"query_timeout"`
		MaxPoolSize  int           `yaml:"max_pool_size"`
	} `yaml:"neo4j"`
	Detection struct {
		LookbackHours int `yaml:"lookback_hours"`
		SampleSize    int `yaml:"sample_size"`
		PatternLimit  int `yaml:"pattern_limit"`
	} `yaml:"detection"`
	Monitor struct {
		Enabled       bool          `yaml:"enabled"`
		CheckInterval time.Duration `yaml:"check_interval"`
		LookbackHours int           `yaml:"lookback_hours"`
		MinConfidence float64       `yaml:"min_confidence"`
		DedupeTTL     time.Duration `yaml:"dedupe_ttl"`
	} `yaml:"monitor"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic"`
		RequiredAcks int           `yaml:"required_acks"`
		Compression  string        `yaml:"compression"`
		MaxAttempts  int           `yaml:"max_attempts"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
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

	c.applyDefaults()

	// Validate required fields
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

	// Override with environment variables
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Detection.LookbackHours <= 0 {
		c.Detection.LookbackHours = 168 // 7 days
	}
	if c.Detection.SampleSize <= 0 {
		c.Detection.SampleSize = 100
	}
	if c.Detection.PatternLimit <= 0 {
		c.Detection.PatternLimit = 100
	}
	if c.Monitor.CheckInterval <= 0 {
		c.Monitor.CheckInterval = 5 * time.Minute
	}
	if c.Monitor.LookbackHours <= 0 {
		c.Monitor.LookbackHours = c.Detection.LookbackHours
	}
	if c.Monitor.MinConfidence <= 0 {
		c.Monitor.MinConfidence = 0.7
	}
	if c.Monitor.DedupeTTL <= 0 {
		c.Monitor.DedupeTTL = 24 * time.Hour
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.Monitor.Enabled && len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are configured")
	}
	if c.Monitor.MinConfidence < 0 || c.Monitor.MinConfidence > 1 {
		return fmt.Errorf("monitor.min_confidence must be in [0,1], got %v", c.Monitor.MinConfidence)
	}
	return nil
}
