// Package config loads server and CLI configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"pokequest/internal/store"
)

type Config struct {
	Addr string `env:"POKEQUEST_ADDR" envDefault:":8080"`
	Host string `env:"POKEQUEST_HOST"`
	Port int    `env:"POKEQUEST_PORT"`

	Store       string `env:"POKEQUEST_STORE" envDefault:"sqlite"`
	DataFile    string `env:"POKEQUEST_DATA_FILE"`
	PostgresDSN string `env:"POKEQUEST_POSTGRES_DSN"`

	PokeAPIBaseURL string        `env:"POKEQUEST_POKEAPI_BASE_URL" envDefault:"https://pokeapi.co"`
	PokeAPITimeout time.Duration `env:"POKEQUEST_POKEAPI_TIMEOUT" envDefault:"10s"`
	MaxItemID      int           `env:"POKEQUEST_MAX_ITEM_ID" envDefault:"200"`
	SuccessDecay   time.Duration `env:"POKEQUEST_SUCCESS_DECAY" envDefault:"2500ms"`
	FailureDecay   time.Duration `env:"POKEQUEST_FAILURE_DECAY" envDefault:"1500ms"`
	SessionSweep   time.Duration `env:"POKEQUEST_SESSION_SWEEP" envDefault:"5m"`
	Timezone       string        `env:"POKEQUEST_TIMEZONE" envDefault:"Local"`

	QuestionsFile string `env:"POKEQUEST_QUESTIONS_FILE"`
	CatalogFile   string `env:"POKEQUEST_CATALOG_FILE"`

	LogLevel     string `env:"POKEQUEST_LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"POKEQUEST_LOG_FORMAT" envDefault:"json"`
	OTelEndpoint string `env:"POKEQUEST_OTEL_ENDPOINT"`
	ServiceName  string `env:"POKEQUEST_SERVICE_NAME" envDefault:"pokequest"`

	COS COSConfig `envPrefix:"POKEQUEST_COS_"`
}

type COSConfig struct {
	SecretID     string `env:"SECRET_ID"`
	SecretKey    string `env:"SECRET_KEY"`
	Region       string `env:"REGION" envDefault:"ap-hongkong"`
	Bucket       string `env:"BUCKET_NAME"`
	PublicDomain string `env:"PUBLIC_DOMAIN"`
}

// LoadDotEnv reads KEY=VALUE files into the environment. Missing files are
// skipped and variables already set win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case store.EngineJSON, store.EngineSQLite:
	case store.EnginePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POKEQUEST_POSTGRES_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("POKEQUEST_STORE must be json, sqlite or postgres, got %q", c.Store)
	}
	if c.MaxItemID <= 0 {
		return errors.New("POKEQUEST_MAX_ITEM_ID must be > 0")
	}
	if c.SuccessDecay <= 0 || c.FailureDecay <= 0 {
		return errors.New("decay durations must be > 0")
	}
	if c.SessionSweep <= 0 {
		return errors.New("POKEQUEST_SESSION_SWEEP must be > 0")
	}
	if c.PokeAPITimeout <= 0 {
		return errors.New("POKEQUEST_POKEAPI_TIMEOUT must be > 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("POKEQUEST_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	return nil
}

// Location resolves the time zone that defines a calendar day.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("POKEQUEST_TIMEZONE: %w", err)
	}
	return loc, nil
}

// StoreTarget is the file path or connection string for the configured
// store engine.
func (c Config) StoreTarget() string {
	if c.Store == store.EnginePostgres {
		return c.PostgresDSN
	}
	if strings.TrimSpace(c.DataFile) != "" {
		return c.DataFile
	}
	return DefaultDataFile(c.Store)
}

func DefaultDataFile(engine string) string {
	switch engine {
	case store.EngineJSON:
		return "data/pokequest.json"
	default:
		return "data/pokequest.db"
	}
}

// ListenAddr combines Addr with the Host and Port overrides.
func (c Config) ListenAddr() string {
	host, port := parseListenAddr(c.Addr)
	if strings.TrimSpace(c.Host) != "" {
		host = strings.TrimSpace(c.Host)
	}
	if c.Port > 0 {
		port = c.Port
	}
	return joinListenAddr(host, port)
}

func parseListenAddr(addr string) (string, int) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", 0
	}
	if strings.HasPrefix(addr, ":") {
		return "", atoiOr(strings.TrimPrefix(addr, ":"), 0)
	}
	if host, port, err := net.SplitHostPort(addr); err == nil {
		return host, atoiOr(port, 0)
	}
	if portOnly := atoiOr(addr, 0); portOnly > 0 {
		return "", portOnly
	}
	return addr, 0
}

func joinListenAddr(host string, port int) string {
	if port <= 0 {
		port = 8080
	}
	if host == "" {
		return fmt.Sprintf(":%d", port)
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func atoiOr(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}
