package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"PriceSignal/pkg/util"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig        `yaml:"log"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Model       ModelConfig      `yaml:"model"`
	Artifact    ArtifactConfig   `yaml:"artifact"`
	Provider    ProviderConfig   `yaml:"provider"`
	Signals     SignalsConfig    `yaml:"signals"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Queue       QueueConfig      `yaml:"queue"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// ModelConfig carries the sequence and classifier hyper-parameters.
type ModelConfig struct {
	SequenceLength     int     `yaml:"sequence_length" default:"30" validate:"gt=0"`
	Horizon            int     `yaml:"horizon" default:"5" validate:"gt=0"`
	Threshold          float64 `yaml:"threshold" default:"0.5" validate:"gte=0"`
	Hidden             int     `yaml:"hidden" default:"64" validate:"gt=0"`
	Dropout            float64 `yaml:"dropout" default:"0.2" validate:"gte=0,lt=1"`
	LearningRate       float64 `yaml:"learning_rate" default:"0.001" validate:"gt=0"`
	Epochs             int     `yaml:"epochs" default:"10" validate:"gt=0"`
	BatchSize          int     `yaml:"batch_size" default:"32" validate:"gt=0"`
	ValidationFraction float64 `yaml:"validation_fraction" default:"0.2" validate:"gte=0,lt=1"`
	Seed               int64   `yaml:"seed" default:"42"`
	// DataDir confines CSV paths accepted by the retrain endpoint. Empty disables CSV retrains.
	DataDir string `yaml:"data_dir" default:"data"`
}

type ArtifactConfig struct {
	Backend  string `yaml:"backend" default:"file" validate:"oneof=file redis"`
	Path     string `yaml:"path" default:"data/model.json"`
	RedisKey string `yaml:"redis_key" default:"artifact:current"`
}

type ProviderConfig struct {
	BaseURL    string        `yaml:"base_url" default:"https://price-api.crypto.com" validate:"required,url"`
	CatalogURL string        `yaml:"catalog_url" default:"https://price-api.crypto.com/meta/v1/all-tokens" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
	CatalogTTL time.Duration `yaml:"catalog_ttl" default:"1h"`
	SignalTTL  time.Duration `yaml:"signal_ttl" default:"5m"`
}

// Watch is one (token, interval) pair evaluated by the signal loop.
type Watch struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Interval string `yaml:"interval" default:"d" validate:"oneof=h d w m y"`
}

type SignalsConfig struct {
	Enabled  bool          `yaml:"enabled" default:"false"`
	Interval time.Duration `yaml:"interval" default:"5m" validate:"gt=0"`
	Watches  []Watch       `yaml:"watches" validate:"dive"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled" default:"false"`
	Brokers           []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
	SignalsTopic      string   `yaml:"signals_topic" default:"pricesignal.signals"`
	ObservationsTopic string   `yaml:"observations_topic" default:"pricesignal.observations"`
	RequiredAcks      int      `yaml:"required_acks" default:"1"`
	Compression       string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	AutoCreateTopics  bool     `yaml:"auto_create_topics" default:"true"`
	Producer          struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async" default:"false"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"pricesignal-observations"`
		Workers    int           `yaml:"workers" default:"4"`
		BufferSize int           `yaml:"buffer_size" default:"256"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"pricesignal.observations.dlq"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled" default:"false"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"8123"`
	Database         string        `yaml:"database" default:"pricesignal"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http" default:"true"`
	AsyncInsert      bool          `yaml:"async_insert" default:"false"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert" default:"true"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" default:"false"`
	Host     string        `yaml:"host" default:"localhost"`
	Port     int           `yaml:"port" default:"6379"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" default:"0"`
	PoolSize int           `yaml:"pool_size" default:"10"`
	Timeout  time.Duration `yaml:"timeout" default:"5s"`
	Prefix   string        `yaml:"prefix" default:"pricesignal"`
}

type QueueConfig struct {
	Workers    int           `yaml:"workers" default:"1"`
	RetryLimit int           `yaml:"retry_limit" default:"2"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
}

type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"true"`
	RPS     float64 `yaml:"rps" default:"5"`
	Burst   int     `yaml:"burst" default:"10"`
}

var validate = validator.New()

// Default returns a configuration built from struct defaults only.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		// watches added by the file miss their own defaults
		for i := range c.Signals.Watches {
			if err := defaults.Set(&c.Signals.Watches[i]); err != nil {
				return nil, fmt.Errorf("set defaults: %w", err)
			}
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
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("PRICESIGNAL_ARTIFACT_PATH"); v != "" {
		c.Artifact.Path = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, found := strings.Cut(v, ":")
		c.Redis.Host = host
		if found {
			c.Redis.Port = util.ParseIntDefault(port, c.Redis.Port)
		}
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Artifact.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("artifact.backend 'redis' requires redis.enabled")
	}
	if c.Artifact.Backend == "file" && c.Artifact.Path == "" {
		return fmt.Errorf("artifact.path is required for the file backend")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	return nil
}
