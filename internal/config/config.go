package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Store    string // "postgres" or "memory"
	Postgres PostgresConfig
	Redis    RedisConfig
	Hold     HoldConfig
	RabbitMQ RabbitMQConfig
	JWT      JWTConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type HoldConfig struct {
	DefaultTTL    time.Duration
	MinTTL        time.Duration
	MaxTTL        time.Duration
	SweepInterval time.Duration // 0 disables the background sweeper
	RateLimit     int
	RateWindow    time.Duration
}

type RabbitMQConfig struct {
	URL string // empty disables confirmation publishing
}

type JWTConfig struct {
	Secret string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	store := os.Getenv("STORE")
	if store == "" {
		store = "postgres"
	}
	if store != "postgres" && store != "memory" {
		return nil, fmt.Errorf("%s: invalid STORE %q", op, store)
	}

	var postgresCfg PostgresConfig
	if store == "postgres" {
		postgresHost := os.Getenv("POSTGRES_HOST")
		if postgresHost == "" {
			postgresHost = "localhost"
		}

		postgresPort, err := intEnv("POSTGRES_PORT", 5432)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		postgresUser := os.Getenv("POSTGRES_USER")
		if postgresUser == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
		}

		postgresPassword := os.Getenv("POSTGRES_PASSWORD")
		if postgresPassword == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
		}

		postgresDB := os.Getenv("POSTGRES_DB")
		if postgresDB == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
		}

		postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
		if postgresSSLMode == "" {
			postgresSSLMode = "disable"
		}

		postgresCfg = PostgresConfig{
			User:     postgresUser,
			Password: postgresPassword,
			Name:     postgresDB,
			Host:     postgresHost,
			Port:     postgresPort,
			SSLMode:  postgresSSLMode,
		}
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}

	holdDefaultSec, err := intEnv("HOLD_TTL_DEFAULT_SEC", 600)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	holdMinSec, err := intEnv("HOLD_TTL_MIN_SEC", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	holdMaxSec, err := intEnv("HOLD_TTL_MAX_SEC", 1800)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sweepSec, err := intEnv("SWEEP_INTERVAL_SEC", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateLimit, err := intEnv("HOLD_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateWindowSec, err := intEnv("HOLD_RATE_WINDOW_SEC", 60)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	holdCfg := HoldConfig{
		DefaultTTL:    time.Duration(holdDefaultSec) * time.Second,
		MinTTL:        time.Duration(holdMinSec) * time.Second,
		MaxTTL:        time.Duration(holdMaxSec) * time.Second,
		SweepInterval: time.Duration(sweepSec) * time.Second,
		RateLimit:     rateLimit,
		RateWindow:    time.Duration(rateWindowSec) * time.Second,
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	return &Config{
		Server:   serverCfg,
		Store:    store,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Hold:     holdCfg,
		RabbitMQ: RabbitMQConfig{URL: os.Getenv("AMQP_URL")},
		JWT:      JWTConfig{Secret: jwtSecret},
	}, nil
}

func intEnv(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}
