package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8080"`

	DBURL          string `env:"DB_URL,required,notEmpty"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"bakici-backend"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"bakici-clients"`

	AccessExpiryMin  int `env:"ACCESS_TOKEN_EXPIRY" envDefault:"60"`
	RefreshExpiryDay int `env:"REFRESH_TOKEN_EXPIRY_DAYS" envDefault:"7"`
	ResetTTLMin      int `env:"RESET_TOKEN_EXPIRY" envDefault:"60"`

	BcryptCost int `env:"BCRYPT_COST" envDefault:"12"`

	LoginMaxAttempts      int `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginAttemptWindowMin int `env:"LOGIN_ATTEMPT_WINDOW" envDefault:"15"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessExpiryMin) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshExpiryDay) * 24 * time.Hour
}

func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTTLMin) * time.Minute
}

func (c *Config) LoginAttemptWindow() time.Duration {
	return time.Duration(c.LoginAttemptWindowMin) * time.Minute
}
