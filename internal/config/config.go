package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// APIServerConfig holds settings used only by the api server.
type APIServerConfig struct {
	Host         string          `mapstructure:"HOST"`
	Port         string          `mapstructure:"PORT"`
	ReadTimeout  time.Duration   `mapstructure:"READ_TIMEOUT"`
	WriteTimeout time.Duration   `mapstructure:"WRITE_TIMEOUT"`
	CORS         CORSConfig      `mapstructure:"CORS"`
	RateLimit    RateLimitConfig `mapstructure:"RATE_LIMIT"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RateLimitConfig limits requests per client IP. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `mapstructure:"REQUESTS"`
	Window   time.Duration `mapstructure:"WINDOW"`
}

// NotifyServerConfig holds configuration for the websocket push server.
type NotifyServerConfig struct {
	Host          string `mapstructure:"HOST"`
	Port          string `mapstructure:"PORT"`
	WebSocketPath string `mapstructure:"WEBSOCKET_PATH"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"ENABLED"`
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName      string             `mapstructure:"APP_NAME"`
	AppVersion   string             `mapstructure:"APP_VERSION"`
	LogLevel     string             `mapstructure:"LOG_LEVEL"`
	LogFormat    string             `mapstructure:"LOG_FORMAT"`
	APIServer    APIServerConfig    `mapstructure:"API_SERVER"`
	NotifyServer NotifyServerConfig `mapstructure:"NOTIFY_SERVER"`
	Kafka        KafkaConfig        `mapstructure:"KAFKA"`
	Database     DatabaseConfig     `mapstructure:"DATABASE"`
	Auth         AuthConfig         `mapstructure:"AUTH"`
	Provisioner  ProvisionerConfig  `mapstructure:"PROVISIONER"`
	WebSocket    WebSocketConfig    `mapstructure:"WEBSOCKET"`
	Redis        RedisConfig        `mapstructure:"REDIS"`
	Telemetry    TelemetryConfig    `mapstructure:"TELEMETRY"`
}

// KafkaConfig holds configuration for Kafka.
type KafkaConfig struct {
	Enabled       bool     `mapstructure:"ENABLED"`
	Brokers       []string `mapstructure:"BROKERS"`
	ClientID      string   `mapstructure:"CLIENT_ID"`
	Protocol      string   `mapstructure:"PROTOCOL"`
	EventsTopic   string   `mapstructure:"EVENTS_TOPIC"`
	ConsumerGroup string   `mapstructure:"CONSUMER_GROUP"`
}

// DatabaseConfig holds configuration for the database.
type DatabaseConfig struct {
	Type         string        `mapstructure:"TYPE"` // "postgres" or "sqlite"
	Host         string        `mapstructure:"HOST"`
	Port         int           `mapstructure:"PORT"`
	User         string        `mapstructure:"USER"`
	Password     string        `mapstructure:"PASSWORD"`
	DBName       string        `mapstructure:"DB_NAME"`
	SSLMode      string        `mapstructure:"SSL_MODE"`
	SQLitePath   string        `mapstructure:"SQLITE_PATH"`
	QueryTimeout time.Duration `mapstructure:"QUERY_TIMEOUT"`
	MaxOpenConns int           `mapstructure:"MAX_OPEN_CONNS"`
	LogSQL       bool          `mapstructure:"LOG_SQL"`
}

// AuthConfig holds configuration for bearer token validation.
type AuthConfig struct {
	JWTSecretKey string        `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer    string        `mapstructure:"JWT_ISSUER"`
	JWTAudience  string        `mapstructure:"JWT_AUDIENCE"`
	JWTExpiry    time.Duration `mapstructure:"JWT_EXPIRY"`
}

// ProvisionerConfig selects how new users are registered with the identity provider.
type ProvisionerConfig struct {
	Type           string        `mapstructure:"TYPE"` // "graph" or "none"
	TenantID       string        `mapstructure:"TENANT_ID"`
	ClientID       string        `mapstructure:"CLIENT_ID"`
	ClientSecret   string        `mapstructure:"CLIENT_SECRET"`
	ExtensionAppID string        `mapstructure:"EXTENSION_APP_ID"`
	GraphBaseURL   string        `mapstructure:"GRAPH_BASE_URL"`
	TokenURL       string        `mapstructure:"TOKEN_URL"`
	Timeout        time.Duration `mapstructure:"TIMEOUT"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
}

// TelemetryConfig configures OTLP trace export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()

	v.SetDefault("APP_NAME", "groupboard")
	v.SetDefault("APP_VERSION", "0.1.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "8081")
	v.SetDefault("API_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("API_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"http://localhost:5173"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length", "Location"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", true)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300)
	v.SetDefault("API_SERVER.RATE_LIMIT.REQUESTS", 300)
	v.SetDefault("API_SERVER.RATE_LIMIT.WINDOW", time.Minute)

	v.SetDefault("NOTIFY_SERVER.HOST", "0.0.0.0")
	v.SetDefault("NOTIFY_SERVER.PORT", "8082")
	v.SetDefault("NOTIFY_SERVER.WEBSOCKET_PATH", "/ws")

	v.SetDefault("KAFKA.ENABLED", false)
	v.SetDefault("KAFKA.BROKERS", []string{"localhost:9092"})
	v.SetDefault("KAFKA.CLIENT_ID", "groupboard")
	v.SetDefault("KAFKA.PROTOCOL", "plaintext")
	v.SetDefault("KAFKA.EVENTS_TOPIC", "groupboard-events")
	v.SetDefault("KAFKA.CONSUMER_GROUP", "groupboard-notify")

	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "password")
	v.SetDefault("DATABASE.DB_NAME", "groupboard")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.SQLITE_PATH", "groupboard.db")
	v.SetDefault("DATABASE.QUERY_TIMEOUT", 5*time.Second)
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 20)
	v.SetDefault("DATABASE.LOG_SQL", false)

	v.SetDefault("AUTH.JWT_SECRET_KEY", "a_very_secret_key_that_should_be_changed")
	v.SetDefault("AUTH.JWT_ISSUER", "")
	v.SetDefault("AUTH.JWT_AUDIENCE", "")
	v.SetDefault("AUTH.JWT_EXPIRY", time.Hour)

	v.SetDefault("PROVISIONER.TYPE", "none")
	v.SetDefault("PROVISIONER.GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0")
	v.SetDefault("PROVISIONER.TIMEOUT", 10*time.Second)

	v.SetDefault("REDIS.ENABLED", false)
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54)
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 512)

	v.SetDefault("TELEMETRY.OTLP_ENDPOINT", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// API_SERVER.PORT is overridden by API_SERVER_PORT.
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		// Defaults and environment are enough without a file.
	}

	err = v.Unmarshal(&config)
	return
}
