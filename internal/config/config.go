package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Argon2     Argon2Config
	CORS       CORSConfig
	Monitoring MonitoringConfig
	DocStore   DocStoreConfig
	Cache      CacheConfig
	Scanner    ScannerConfig
}

type ServerConfig struct {
	Port            string
	Env             string
	LogLevel        string
	SeedAdminSecret string
	RoleCacheTTL    time.Duration
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	DSN      string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type CORSConfig struct {
	Origins []string
}

type MonitoringConfig struct {
	PrometheusEnabled bool
}

// DocStoreConfig points at the document database holding scan results.
type DocStoreConfig struct {
	URI      string
	Database string
}

type CacheConfig struct {
	RedisAddr    string
	AnalyticsTTL time.Duration
}

// ScannerConfig describes the optical scanning device proxy.
type ScannerConfig struct {
	URL        string
	Timeout    time.Duration
	MaxRetries int
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func Load() (*Config, error) {
	godotenv.Load()

	driver := getEnv("DB_DRIVER", "postgres")
	if driver != "postgres" && driver != "mysql" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", defaultDBPort(driver))
	dbUser := getEnv("DB_USER", "rosec")
	dbPass := getEnv("DB_PASSWORD", "")
	dbName := getEnv("DB_NAME", "rosec")

	dsn := getEnv("DATABASE_URL", "")
	if dsn == "" {
		dsn = buildDSN(driver, dbHost, dbPort, dbUser, dbPass, dbName)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			SeedAdminSecret: getEnv("SEED_ADMIN_SECRET", ""),
			RoleCacheTTL:    getEnvDuration("ROLE_CACHE_TTL", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     dbHost,
			Port:     dbPort,
			User:     dbUser,
			Password: dbPass,
			Name:     dbName,
			DSN:      dsn,
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", ""),
			AccessExpiry:  getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
		},
		Argon2: Argon2Config{
			Memory:      uint32(getEnvInt("ARGON2_MEMORY", 65536)),
			Iterations:  uint32(getEnvInt("ARGON2_ITERATIONS", 3)),
			Parallelism: uint8(getEnvInt("ARGON2_PARALLELISM", 2)),
			SaltLength:  uint32(getEnvInt("ARGON2_SALT_LENGTH", 16)),
			KeyLength:   uint32(getEnvInt("ARGON2_KEY_LENGTH", 32)),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		},
		Monitoring: MonitoringConfig{
			PrometheusEnabled: getEnv("PROMETHEUS_ENABLED", "true") == "true",
		},
		DocStore: DocStoreConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DB", "rosec"),
		},
		Cache: CacheConfig{
			RedisAddr:    strings.TrimPrefix(getEnv("REDIS_ADDR", ""), "redis://"),
			AnalyticsTTL: getEnvDuration("ANALYTICS_CACHE_TTL", 2*time.Minute),
		},
		Scanner: ScannerConfig{
			URL:        strings.TrimRight(getEnv("SCANNER_URL", ""), "/"),
			Timeout:    getEnvDuration("SCANNER_TIMEOUT", 30*time.Second),
			MaxRetries: getEnvInt("SCANNER_MAX_RETRIES", 3),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func defaultDBPort(driver string) string {
	if driver == "mysql" {
		return "3306"
	}
	return "5432"
}

func buildDSN(driver, host, port, user, pass, name string) string {
	if driver == "mysql" {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			user, pass, host, port, name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, pass, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
