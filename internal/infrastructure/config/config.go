package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Broker drivers understood by the broker package.
const (
	DriverMQTT = "mqtt"
	DriverNATS = "nats"
)

// Config is the root configuration structure for the Coursebook gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Broker     BrokerConfig     `yaml:"broker"`
	Pending    PendingConfig    `yaml:"pending"`
	Security   SecurityConfig   `yaml:"security"`
	Downstream DownstreamConfig `yaml:"downstream"`
	Database   DatabaseConfig   `yaml:"database"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
//
// Write must exceed the longest pending timeout, otherwise the server
// closes the connection before a suspended request is answered.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// BrokerConfig selects and configures the outbound message broker.
type BrokerConfig struct {
	// Driver is "mqtt" or "nats".
	Driver string `yaml:"driver"`

	// Exchange prefixes every command topic and the completion topic.
	Exchange string `yaml:"exchange"`

	// PublishTimeout bounds a single publish, in seconds.
	PublishTimeout int `yaml:"publish_timeout"`

	MQTT MQTTConfig `yaml:"mqtt"`
	NATS NATSConfig `yaml:"nats"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings for an
// established session. The first dial is never retried internally.
type MQTTReconnectConfig struct {
	MaxDelay int `yaml:"max_delay"`
}

// NATSConfig contains NATS connection settings.
type NATSConfig struct {
	URL           string `yaml:"url"`
	Name          string `yaml:"name"`
	JetStream     bool   `yaml:"jetstream"`
	MaxReconnects int    `yaml:"max_reconnects"`
	ReconnectWait int    `yaml:"reconnect_wait"`
}

// PendingConfig contains the suspension bounds for synchronous-style requests.
type PendingConfig struct {
	// DefaultTimeout applies to any action without its own entry, in seconds.
	DefaultTimeout int `yaml:"default_timeout"`

	// ActionTimeouts maps an action kind (e.g. "REGISTRATION") to seconds.
	ActionTimeouts map[string]int `yaml:"action_timeouts"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret        string `yaml:"secret"`
	Issuer        string `yaml:"issuer"`
	ValidityHours int    `yaml:"validity_hours"`
}

// RateLimitConfig contains rate limiting settings for the unauthenticated
// credential endpoints.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	Burst             int  `yaml:"burst"`
}

// DownstreamConfig locates the HTTP services behind the read-through endpoints.
type DownstreamConfig struct {
	DocumentStoreURL string `yaml:"document_store_url"`
	CountersURL      string `yaml:"counters_url"`
	Timeout          int    `yaml:"timeout"`
}

// DatabaseConfig contains SQLite settings for the audit trail.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// WebSocketConfig contains completion stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: COURSEBOOK_SECTION_KEY
// For example: COURSEBOOK_API_PORT, COURSEBOOK_BROKER_DRIVER.
// The legacy deployment names PORT, JWT_SECRET, RABBITMQ_HOST, MONGO_HOST
// and RIAK_HOST are honoured as well.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"*"},
			},
		},
		Broker: BrokerConfig{
			Driver:         DriverMQTT,
			Exchange:       "coursebook",
			PublishTimeout: 5,
			MQTT: MQTTConfig{
				Broker: MQTTBrokerConfig{
					Host:     "localhost",
					Port:     1883,
					ClientID: "coursebook-gateway",
				},
				QoS: 1,
				Reconnect: MQTTReconnectConfig{
					MaxDelay: 60,
				},
			},
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				Name:          "coursebook-gateway",
				MaxReconnects: -1,
				ReconnectWait: 2,
			},
		},
		Pending: PendingConfig{
			DefaultTimeout: 5,
			ActionTimeouts: map[string]int{
				"REGISTRATION":  10,
				"COURSE_CREATE": 10,
				"WISH_CREATE":   10,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer:        "course-book-auth-server",
				ValidityHours: 48,
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             10,
			},
		},
		Downstream: DownstreamConfig{
			DocumentStoreURL: "http://localhost:3000",
			CountersURL:      "http://localhost:3001",
			Timeout:          10,
		},
		Database: DatabaseConfig{
			Path:        "./data/coursebook-gateway.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "coursebook",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: COURSEBOOK_SECTION_KEY.
// Where a prefixed and a legacy name are both set, the prefixed one wins.
func applyEnvOverrides(cfg *Config) {
	// API
	if v := os.Getenv("COURSEBOOK_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if port, ok := envInt("COURSEBOOK_API_PORT", "PORT"); ok {
		cfg.API.Port = port
	}

	// Broker
	if v := os.Getenv("COURSEBOOK_BROKER_DRIVER"); v != "" {
		cfg.Broker.Driver = v
	}
	if v := os.Getenv("COURSEBOOK_BROKER_EXCHANGE"); v != "" {
		cfg.Broker.Exchange = v
	}
	if v := firstEnv("COURSEBOOK_MQTT_HOST", "RABBITMQ_HOST"); v != "" {
		cfg.Broker.MQTT.Broker.Host = v
	}
	if v := os.Getenv("COURSEBOOK_MQTT_USERNAME"); v != "" {
		cfg.Broker.MQTT.Auth.Username = v
	}
	if v := os.Getenv("COURSEBOOK_MQTT_PASSWORD"); v != "" {
		cfg.Broker.MQTT.Auth.Password = v
	}
	if v := os.Getenv("COURSEBOOK_NATS_URL"); v != "" {
		cfg.Broker.NATS.URL = v
	}

	// Downstream services
	if v := firstEnv("COURSEBOOK_DOWNSTREAM_DOCUMENT_STORE_URL", "MONGO_HOST"); v != "" {
		cfg.Downstream.DocumentStoreURL = v
	}
	if v := firstEnv("COURSEBOOK_DOWNSTREAM_COUNTERS_URL", "RIAK_HOST"); v != "" {
		cfg.Downstream.CountersURL = v
	}

	// Database
	if v := os.Getenv("COURSEBOOK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("COURSEBOOK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := firstEnv("COURSEBOOK_JWT_SECRET", "JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	// Logging
	if v := os.Getenv("COURSEBOOK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// firstEnv returns the value of the first non-empty variable in names.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// envInt parses the first non-empty variable in names as an integer.
// Unparseable values are ignored and left for Validate to reject the default.
func envInt(names ...string) (int, bool) {
	v := firstEnv(names...)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Broker validation
	switch c.Broker.Driver {
	case DriverMQTT:
		if c.Broker.MQTT.QoS < 0 || c.Broker.MQTT.QoS > 2 {
			errs = append(errs, "broker.mqtt.qos must be 0, 1, or 2")
		}
		if c.Broker.MQTT.Broker.Host == "" {
			errs = append(errs, "broker.mqtt.broker.host is required")
		}
	case DriverNATS:
		if c.Broker.NATS.URL == "" {
			errs = append(errs, "broker.nats.url is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("broker.driver must be %q or %q, got %q", DriverMQTT, DriverNATS, c.Broker.Driver))
	}
	if c.Broker.Exchange == "" {
		errs = append(errs, "broker.exchange is required")
	}
	if c.Broker.PublishTimeout <= 0 {
		errs = append(errs, "broker.publish_timeout must be positive")
	}

	// Pending validation
	if c.Pending.DefaultTimeout <= 0 {
		errs = append(errs, "pending.default_timeout must be positive")
	}
	longest := c.Pending.DefaultTimeout
	for action, secs := range c.Pending.ActionTimeouts {
		if secs <= 0 {
			errs = append(errs, fmt.Sprintf("pending.action_timeouts.%s must be positive", action))
		}
		longest = max(longest, secs)
	}
	// Zero disables the write deadline.
	if w := c.API.Timeouts.Write; w > 0 && w <= longest {
		errs = append(errs, fmt.Sprintf("api.timeouts.write (%ds) must exceed the longest pending timeout (%ds)", w, longest))
	}

	// Downstream validation
	if c.Downstream.DocumentStoreURL == "" {
		errs = append(errs, "downstream.document_store_url is required")
	}
	if c.Downstream.CountersURL == "" {
		errs = append(errs, "downstream.counters_url is required")
	}
	if c.Downstream.Timeout <= 0 {
		errs = append(errs, "downstream.timeout must be positive")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	// Security validation - JWT secret is REQUIRED.
	// Tokens are the only credential on mutating endpoints; a weak secret
	// lets anyone forge one.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set COURSEBOOK_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}
	if c.Security.JWT.Issuer == "" {
		errs = append(errs, "security.jwt.issuer is required")
	}
	if c.Security.JWT.ValidityHours <= 0 {
		errs = append(errs, "security.jwt.validity_hours must be positive")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, "security.rate_limit.requests_per_minute must be positive when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetPublishTimeout returns the per-publish bound as a Duration.
func (c *Config) GetPublishTimeout() time.Duration {
	return time.Duration(c.Broker.PublishTimeout) * time.Second
}

// GetDownstreamTimeout returns the read-through HTTP timeout as a Duration.
func (c *Config) GetDownstreamTimeout() time.Duration {
	return time.Duration(c.Downstream.Timeout) * time.Second
}

// GetTokenValidity returns the lifetime of issued tokens.
func (c *Config) GetTokenValidity() time.Duration {
	return time.Duration(c.Security.JWT.ValidityHours) * time.Hour
}

// GetPendingTimeouts returns the default suspension bound and the
// per-action overrides as Durations.
func (c *Config) GetPendingTimeouts() (time.Duration, map[string]time.Duration) {
	perAction := make(map[string]time.Duration, len(c.Pending.ActionTimeouts))
	for action, secs := range c.Pending.ActionTimeouts {
		perAction[action] = time.Duration(secs) * time.Second
	}
	return time.Duration(c.Pending.DefaultTimeout) * time.Second, perAction
}
