package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taskmanager/internal/domain/errors"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Duration accepts everything time.ParseDuration does plus a day suffix ("30d").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return fmt.Errorf("%w: duration %q", errors.ErrConfigInvalidFormat, s)
		}
		*d = Duration(time.Duration(n) * 24 * time.Hour)
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: duration %q", errors.ErrConfigInvalidFormat, s)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	Addr        string `json:"addr" envconfig:"ADDR"`
	Port        int    `json:"port" envconfig:"PORT"`
	DBStr       string `json:"db_str" envconfig:"DB_STR"`
	MigratePath string `json:"migrate_path" envconfig:"MIGRATE_PATH"`
	APIPrefix   string `json:"api_prefix" envconfig:"API_PREFIX"`
	Env         string `json:"env" envconfig:"ENV"`

	JWTSecret    string   `json:"jwt_secret" envconfig:"JWT_SECRET"`
	JWTExpiresIn Duration `json:"jwt_expires_in" envconfig:"JWT_EXPIRES_IN"`

	LogLevel    string `json:"log_level" envconfig:"LOG_LEVEL"`
	LogEncoding string `json:"log_encoding" envconfig:"LOG_ENCODING"`

	CORSOrigin     string   `json:"cors_origin" envconfig:"CORS_ORIGIN"`
	RateLimit      uint     `json:"rate_limit" envconfig:"RATE_LIMIT"`
	RateWindow     Duration `json:"rate_window" envconfig:"RATE_WINDOW"`
	RedisAddr      string   `json:"redis_addr" envconfig:"REDIS_ADDR"`
	MetricsEnabled bool     `json:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

const (
	defaultAddr        = "0.0.0.0"
	defaultPort        = 8080
	defaultDBStr       = "postgresql://tasks:tasks@db:5432/tasks?sslmode=disable"
	defaultMigratePath = "migrations"
	defaultAPIPrefix   = "/api/v1"
	defaultEnv         = "development"
	defaultJWTExpires  = Duration(30 * 24 * time.Hour)
	defaultLogLevel    = "info"
	defaultLogEncoding = "json"
	defaultCORSOrigin  = "*"
	defaultRateLimit   = 5000
	defaultRateWindow  = Duration(5 * time.Minute)
)

func DefaultConfig() *Config {
	return &Config{
		Addr:           defaultAddr,
		Port:           defaultPort,
		DBStr:          defaultDBStr,
		MigratePath:    defaultMigratePath,
		APIPrefix:      defaultAPIPrefix,
		Env:            defaultEnv,
		JWTExpiresIn:   defaultJWTExpires,
		LogLevel:       defaultLogLevel,
		LogEncoding:    defaultLogEncoding,
		CORSOrigin:     defaultCORSOrigin,
		RateLimit:      defaultRateLimit,
		RateWindow:     defaultRateWindow,
		MetricsEnabled: true,
	}
}

// ReadConfig layers, lowest priority first: defaults, the JSON file named by -c or CONFIG,
// the .env file, the process environment, and flags given explicitly on the command line.
func ReadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	addr := fs.String("addr", defaultAddr, "server address")
	port := fs.Int("port", defaultPort, "server port")
	dbstr := fs.String("dbstr", defaultDBStr, "database connection string")
	dbDsn := fs.String("dbdsn", "", "database DSN, takes precedence over -dbstr")
	migratePath := fs.String("migratepath", defaultMigratePath, "path to the migrations directory")
	configFile := fs.String("c", "", "path to a JSON config file")
	envFile := fs.String("envfile", ".env", "path to a .env file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()

	path := *configFile
	if path == "" {
		path = os.Getenv("CONFIG")
	}
	if path != "" {
		if err := loadJSONConfig(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w %s: %v", errors.ErrConfigFileReadFailed, *envFile, err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfigInvalidFormat, err)
	}
	applyDBParts(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "port":
			cfg.Port = *port
		case "dbstr":
			if *dbDsn == "" {
				cfg.DBStr = *dbstr
			}
		case "dbdsn":
			cfg.DBStr = *dbDsn
		case "migratepath":
			cfg.MigratePath = *migratePath
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", errors.ErrConfigInvalidFormat, c.Port)
	}
	if c.JWTSecret == "" {
		return errors.ErrMissingJWTSecret
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("%w: jwt lifetime must be positive", errors.ErrConfigInvalidFormat)
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func loadJSONConfig(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w %s: %v", errors.ErrConfigFileReadFailed, path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrConfigParseFailed, err)
	}
	return nil
}

// applyDBParts builds the connection string from DB_USER, DB_PASSWORD, DB_HOST, DB_PORT and
// DB_NAME when no explicit one was configured.
func applyDBParts(cfg *Config) {
	if cfg.DBStr != defaultDBStr {
		return
	}
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	if dbUser != "" && dbPassword != "" && dbName != "" && dbHost != "" && dbPort != "" {
		cfg.DBStr = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
	}
}
