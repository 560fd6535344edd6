// Package config reads server settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/robalobadob/guessnumber/internal/game"
)

// Config holds all server settings.
type Config struct {
	Port     string `env:"PORT" envDefault:"5175"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/app.db"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"guessnumber_token"`
	ClientOrigin   string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	Environment    string `env:"NODE_ENV" envDefault:"development"`

	// RoundSalt, when set, makes every round's random guesses reproducible
	// from its ID.
	RoundSalt       string        `env:"ROUND_SALT"`
	DefaultStrategy game.Strategy `env:"DEFAULT_STRATEGY" envDefault:"random"`

	// Feedback requests per second allowed across the server.
	FeedbackRate  float64 `env:"FEEDBACK_RATE" envDefault:"20"`
	FeedbackBurst int     `env:"FEEDBACK_BURST" envDefault:"40"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.Environment == "production" }

// Load parses the environment into a Config.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := game.NewPicker(cfg.DefaultStrategy); err != nil {
		return Config{}, fmt.Errorf("DEFAULT_STRATEGY: %w", err)
	}
	return cfg, nil
}
