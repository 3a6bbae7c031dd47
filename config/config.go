// Package config loads service configuration from an optional YAML file
// with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole service configuration.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	GitHub struct {
		BaseURL    string `yaml:"base_url"`
		GraphQLURL string `yaml:"graphql_url"`
	} `yaml:"github"`

	Playground struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"playground"`

	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 7878
	}
	if c.GitHub.BaseURL == "" {
		c.GitHub.BaseURL = "https://api.github.com"
	}
	if c.GitHub.GraphQLURL == "" {
		c.GitHub.GraphQLURL = "https://api.github.com/graphql"
	}
	if c.Playground.BaseURL == "" {
		c.Playground.BaseURL = "https://play.rust-lang.org"
	}
	if c.UserAgent == "" {
		c.UserAgent = "clippit/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
}

// Load reads the config file at path, if it exists, applies the PORT
// environment override and fills in defaults. An empty path or a missing
// file yields the defaults.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// optional file
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("config: PORT: %w", err)
		}
		cfg.Server.Port = p
	}
	cfg.defaults()
	return cfg, nil
}
