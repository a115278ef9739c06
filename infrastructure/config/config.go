package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "flowbuilder/domain/config"
)

// Persistence backends
const (
	PersistenceMemory   = "memory"
	PersistenceDynamoDB = "dynamodb"
)

// Event publishing backends
const (
	EventsLog         = "log"
	EventsEventBridge = "eventbridge"
	EventsDynamoDB    = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress  string        `yaml:"server_address"`
	Environment    string        `yaml:"environment"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// AWS configuration
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	EventBusName     string `yaml:"event_bus_name"`

	// Backends
	Persistence    string        `yaml:"persistence"`
	Events         string        `yaml:"events"`
	EventRetention time.Duration `yaml:"event_retention"`

	// Lambda configuration
	IsLambda bool `yaml:"is_lambda"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Observability
	EnableMetrics     bool    `yaml:"enable_metrics"`
	EnableTracing     bool    `yaml:"enable_tracing"`
	TracingEndpoint   string  `yaml:"tracing_endpoint"`
	TracingSampleRate float64 `yaml:"tracing_sample_rate"`

	// CORS
	EnableCORS         bool     `yaml:"enable_cors"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Circuit breaker around the flow repository
	Breaker BreakerConfig `yaml:"breaker"`

	// Flow rules
	Domain *domainconfig.DomainConfig `yaml:"domain"`

	// ConfigFile is the YAML file the configuration was read from, if any
	ConfigFile string `yaml:"-"`
}

// BreakerConfig configures the repository circuit breaker
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

// LoadConfig loads configuration from defaults, the optional YAML file
// named by CONFIG_FILE and environment variables, in increasing priority
func LoadConfig() (*Config, error) {
	environment := getEnv("ENVIRONMENT", "development")
	cfg := defaultConfig(environment)

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}

	applyEnvironment(cfg)

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func defaultConfig(environment string) *Config {
	return &Config{
		ServerAddress:  ":8080",
		Environment:    environment,
		RequestTimeout: 30 * time.Second,

		AWSRegion:     "us-west-2",
		DynamoDBTable: "flowbuilder-flows",
		EventBusName:  "flowbuilder-events",

		Persistence: PersistenceMemory,
		Events:      EventsLog,

		LogLevel: "info",

		EnableMetrics:     true,
		EnableTracing:     false,
		TracingSampleRate: 0,

		EnableCORS:         true,
		CORSAllowedOrigins: []string{"*"},

		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},

		Domain: domainconfig.LoadDomainConfig(environment),
	}
}

func applyEnvironment(cfg *Config) {
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)

	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)
	cfg.DynamoDBTable = getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", cfg.DynamoDBTable))
	cfg.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", cfg.DynamoDBEndpoint)
	cfg.EventBusName = getEnv("EVENT_BUS_NAME", cfg.EventBusName)

	cfg.Persistence = getEnv("PERSISTENCE", cfg.Persistence)
	cfg.Events = getEnv("EVENTS", cfg.Events)
	cfg.EventRetention = getEnvDuration("EVENT_RETENTION", cfg.EventRetention)

	cfg.IsLambda = getEnvBool("IS_LAMBDA", cfg.IsLambda || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "")

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.EnableMetrics = getEnvBool("ENABLE_METRICS", cfg.EnableMetrics)
	cfg.EnableTracing = getEnvBool("ENABLE_TRACING", cfg.EnableTracing)
	cfg.TracingEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.TracingEndpoint)
	cfg.TracingSampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.TracingSampleRate)

	cfg.EnableCORS = getEnvBool("ENABLE_CORS", cfg.EnableCORS)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSAllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Domain.MaxNodesPerFlow = getEnvInt("MAX_NODES_PER_FLOW", cfg.Domain.MaxNodesPerFlow)
	cfg.Domain.MaxEdgesPerFlow = getEnvInt("MAX_EDGES_PER_FLOW", cfg.Domain.MaxEdgesPerFlow)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.Persistence {
	case PersistenceMemory:
	case PersistenceDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for dynamodb persistence")
		}
	default:
		return fmt.Errorf("unknown persistence backend %q", c.Persistence)
	}

	switch c.Events {
	case EventsLog:
	case EventsEventBridge:
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required for eventbridge events")
		}
	case EventsDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb event journal")
		}
	default:
		return fmt.Errorf("unknown events backend %q", c.Events)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		return fmt.Errorf("tracing sample rate must be between 0 and 1")
	}

	if c.Domain == nil {
		return fmt.Errorf("domain configuration is missing")
	}
	if err := c.Domain.Validate(); err != nil {
		return fmt.Errorf("domain configuration: %w", err)
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesAWS reports whether any configured backend talks to AWS
func (c *Config) UsesAWS() bool {
	return c.Persistence == PersistenceDynamoDB || c.Events == EventsEventBridge || c.Events == EventsDynamoDB
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
