package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	APIURL       string        `env:"API_URL" envDefault:"http://localhost:3000/api"`
	DataDir      string        `env:"DATA_DIR" envDefault:"data"`
	StoreBackend string        `env:"STORE_BACKEND" envDefault:"file"`
	HTTPTimeout  time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`

	WeddingDate time.Time `env:"WEDDING_DATE" envDefault:"2026-05-24T15:30:00+01:00"`
	BrideName   string    `env:"BRIDE_NAME" envDefault:"Bride"`
	GroomName   string    `env:"GROOM_NAME" envDefault:"Groom"`

	WhatsAppEnabled      bool   `env:"WHATSAPP_ENABLED" envDefault:"false"`
	WhatsAppDataDir      string `env:"WHATSAPP_DATA_DIR" envDefault:"data"`
	WhatsAppNotifyNumber string `env:"WHATSAPP_NOTIFY_NUMBER"`
}

// LoadConfig loads configuration from a .env file, if one exists, and then
// from environment variables. Variables already set win over the file.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("STORE_BACKEND must be file, sqlite or memory, got %q", c.StoreBackend)
	}
	if c.APIURL == "" {
		return fmt.Errorf("API_URL is required")
	}
	if c.WhatsAppEnabled && c.WhatsAppNotifyNumber == "" {
		return fmt.Errorf("WHATSAPP_NOTIFY_NUMBER is required when WHATSAPP_ENABLED is set")
	}
	return nil
}
