package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the ecopoints service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingMaxWait     time.Duration

	// Server configuration
	Port string

	// Session configuration
	JWTSecret  string
	SessionTTL time.Duration

	// Verification adapter (Gemini vision) configuration
	GeminiAPIKey  string
	GeminiModel   string
	VerifyTimeout time.Duration

	// Rate limit for the classifier-backed endpoints, per user
	VerifyRatePerMinute float64
	VerifyBurst         int

	// RabbitMQ configuration
	AMQPHost     string
	AMQPPort     string
	AMQPUser     string
	AMQPPassword string
	AMQPExchange string

	// Default number of tasks returned by the task list
	TasksLimit int

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "ecopoints"),

		DBMaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		DBPingMaxWait:     getDurationEnv("DB_PING_MAX_WAIT", 60*time.Second),

		// Server defaults
		Port: getEnv("PORT", "8080"),

		// Session defaults
		JWTSecret:  getEnv("JWT_SECRET", ""),
		SessionTTL: getDurationEnv("SESSION_TTL", 24*time.Hour),

		// Gemini defaults
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		VerifyTimeout: getDurationEnv("VERIFY_TIMEOUT", 30*time.Second),

		VerifyRatePerMinute: getFloatEnv("VERIFY_RATE_PER_MINUTE", 6),
		VerifyBurst:         getIntEnv("VERIFY_BURST", 3),

		// RabbitMQ defaults
		AMQPHost:     getEnv("AMQP_HOST", "localhost"),
		AMQPPort:     getEnv("AMQP_PORT", "5672"),
		AMQPUser:     getEnv("AMQP_USER", "guest"),
		AMQPPassword: getEnv("AMQP_PASSWORD", "guest"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ecopoints"),

		TasksLimit: getIntEnv("TASKS_LIMIT", 20),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// GetAMQPURL returns the AMQP URL for RabbitMQ connection
func (c *Config) GetAMQPURL() string {
	return "amqp://" + c.AMQPUser + ":" + c.AMQPPassword + "@" + c.AMQPHost + ":" + c.AMQPPort
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getFloatEnv gets a float environment variable or returns a default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
