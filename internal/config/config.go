// Package config handles configuration loading from TOML files and environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Sim       SimConfig                 `toml:"sim"`
	Server    ServerConfig              `toml:"server"`
	Provider  string                    `toml:"provider"`
	Providers map[string]ProviderConfig `toml:"providers"`
	TTS       TTSConfig                 `toml:"tts"`
}

// SimConfig holds simulation settings.
type SimConfig struct {
	Countries          int   `toml:"countries"`
	Rounds             int   `toml:"rounds"`
	SessionTTLMinutes  int   `toml:"session_ttl_minutes"`
	CallTimeoutSeconds int   `toml:"call_timeout_seconds"`
	Seed               int64 `toml:"seed"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// ProviderConfig holds LLM provider settings. API keys are never read
// from the file, only from the named environment variable.
type ProviderConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	RateLimit   float64 `toml:"rate_limit"`
	RateBurst   int     `toml:"rate_burst"`
	APIKeyEnv   string  `toml:"api_key_env"`
}

// APIKey resolves the provider's API key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// TTSConfig holds text-to-speech settings.
type TTSConfig struct {
	Enabled   bool   `toml:"enabled"`
	APIKeyEnv string `toml:"api_key_env"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Sim: SimConfig{
			Countries:          3,
			Rounds:             3,
			SessionTTLMinutes:  60,
			CallTimeoutSeconds: 60,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Provider: "openai",
		Providers: map[string]ProviderConfig{
			"openai": {
				Endpoint:    "https://api.openai.com/v1",
				Model:       "gpt-4o-mini",
				Temperature: 0.9,
				RateLimit:   2.0,
				RateBurst:   3,
				APIKeyEnv:   "OPENAI_API_KEY",
			},
			"anthropic": {
				Model:       "claude-3-5-haiku-latest",
				Temperature: 0.9,
				RateLimit:   2.0,
				RateBurst:   3,
				APIKeyEnv:   "ANTHROPIC_API_KEY",
			},
		},
		TTS: TTSConfig{
			Enabled:   false,
			APIKeyEnv: "GOOGLE_TTS_API_KEY",
		},
	}
}

// Load reads configuration from a TOML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Load from file if it exists
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, err
			}
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ACCORD_COUNTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sim.Countries = n
		}
	}

	if v := os.Getenv("ACCORD_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sim.Rounds = n
		}
	}

	if v := os.Getenv("ACCORD_SESSION_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sim.SessionTTLMinutes = n
		}
	}

	if v := os.Getenv("ACCORD_CALL_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sim.CallTimeoutSeconds = n
		}
	}

	if v := os.Getenv("ACCORD_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Sim.Seed = n
		}
	}

	if v := os.Getenv("ACCORD_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("ACCORD_PROVIDER"); v != "" {
		cfg.Provider = v
	}

	if v := os.Getenv("ACCORD_TTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TTS.Enabled = b
		}
	}

	overrideProvider(cfg, "openai", "ACCORD_OPENAI")
	overrideProvider(cfg, "anthropic", "ACCORD_ANTHROPIC")
}

func overrideProvider(cfg *Config, name, prefix string) {
	p, ok := cfg.Providers[name]
	if !ok {
		return
	}

	if v := os.Getenv(prefix + "_ENDPOINT"); v != "" {
		p.Endpoint = v
	}
	if v := os.Getenv(prefix + "_MODEL"); v != "" {
		p.Model = v
	}
	if v := os.Getenv(prefix + "_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.Temperature = f
		}
	}
	if v := os.Getenv(prefix + "_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.RateLimit = f
		}
	}
	if v := os.Getenv(prefix + "_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.RateBurst = n
		}
	}

	cfg.Providers[name] = p
}

// DataDir returns the path to the Accord data directory (~/.accord).
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".accord"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
