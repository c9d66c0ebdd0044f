package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yungbote/classweek-backend/internal/platform/logger"
)

const (
	StoreRelational = "relational"
	StoreMongo      = "mongo"

	AsyncInline   = "inline"
	AsyncTemporal = "temporal"
)

type Config struct {
	Environment string
	LogMode     string
	ServiceName string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	JWTSecret string
	JWTIssuer string

	// Store is relational (postgres/sqlite via gorm) or mongo.
	Store       string
	AutoMigrate bool

	// Async picks where pointer advances and guardian notices run.
	Async             string
	NotifyMaxInFlight int
	NotifyTimeout     time.Duration

	RepairConcurrency int
}

// LoadEnvFiles loads .env.<env> then .env into the process environment.
// Variables already set win, so the first file loaded takes precedence.
func LoadEnvFiles(log *logger.Logger) {
	env := strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	files := []string{".env"}
	if env != "" {
		files = []string{".env." + strings.ToLower(env), ".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Warn("Failed to load env file", "file", f, "error", err)
			continue
		}
		log.Debug("Loaded env file", "file", f)
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("SERVICE_NAME", "classweek-api")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT_SECONDS", 15)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("ASYNC_MODE", "")
	v.SetDefault("TEMPORAL_ADDRESS", "")
	v.SetDefault("NOTIFY_MAX_IN_FLIGHT", 8)
	v.SetDefault("NOTIFY_TIMEOUT_SECONDS", 30)
	v.SetDefault("REPAIR_CONCURRENCY", 4)
	return v
}

func LoadConfig(log *logger.Logger) (Config, error) {
	return configFrom(newViper(), log)
}

func configFrom(v *viper.Viper, log *logger.Logger) (Config, error) {
	cfg := Config{
		Environment:       strings.ToLower(strings.TrimSpace(v.GetString("ENVIRONMENT"))),
		LogMode:           v.GetString("LOG_MODE"),
		ServiceName:       v.GetString("SERVICE_NAME"),
		HTTPAddr:          v.GetString("HTTP_ADDR"),
		ShutdownTimeout:   time.Duration(v.GetInt("HTTP_SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		CORSOrigins:       splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		JWTSecret:         strings.TrimSpace(v.GetString("JWT_SECRET_KEY")),
		JWTIssuer:         strings.TrimSpace(v.GetString("JWT_ISSUER")),
		AutoMigrate:       v.GetBool("DB_AUTO_MIGRATE"),
		NotifyMaxInFlight: v.GetInt("NOTIFY_MAX_IN_FLIGHT"),
		NotifyTimeout:     time.Duration(v.GetInt("NOTIFY_TIMEOUT_SECONDS")) * time.Second,
		RepairConcurrency: v.GetInt("REPAIR_CONCURRENCY"),
	}

	switch driver := strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))); driver {
	case "mongo", "mongodb":
		cfg.Store = StoreMongo
	case "postgres", "sqlite", "":
		cfg.Store = StoreRelational
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	switch mode := strings.ToLower(strings.TrimSpace(v.GetString("ASYNC_MODE"))); mode {
	case "":
		cfg.Async = AsyncInline
		if strings.TrimSpace(v.GetString("TEMPORAL_ADDRESS")) != "" {
			cfg.Async = AsyncTemporal
		}
	case AsyncInline, AsyncTemporal:
		cfg.Async = mode
	default:
		return Config{}, fmt.Errorf("unsupported ASYNC_MODE %q", mode)
	}

	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return Config{}, fmt.Errorf("missing JWT_SECRET_KEY")
		}
		cfg.JWTSecret = "classweek-dev-secret"
		log.Warn("JWT_SECRET_KEY not set; using development secret")
	}
	if cfg.NotifyMaxInFlight <= 0 {
		cfg.NotifyMaxInFlight = 8
	}
	if cfg.RepairConcurrency <= 0 {
		cfg.RepairConcurrency = 4
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
