package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sablecourt/accord/internal/config"
	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/session"
	"github.com/sablecourt/accord/internal/speech"
	"github.com/sablecourt/accord/internal/store"
	"github.com/sablecourt/accord/internal/tui"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("accord %s\n", Version)
		os.Exit(0)
	}

	_ = godotenv.Load()

	if err := initLogging(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log.Info().Str("version", Version).Msg("Starting accord console")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	journal, err := store.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer journal.Close()

	pc, ok := cfg.Providers[cfg.Provider]
	if !ok {
		log.Fatal().Str("provider", cfg.Provider).Msg("Unknown provider")
	}
	apiKey := pc.APIKey()
	if apiKey == "" {
		log.Fatal().Str("provider", cfg.Provider).Str("env", pc.APIKeyEnv).Msg("API key not set")
	}
	limiter := rate.NewLimiter(rate.Limit(pc.RateLimit), pc.RateBurst)

	var gen provider.Provider
	if cfg.Provider == "anthropic" {
		gen = provider.NewAnthropic(cfg.Provider, pc.Endpoint, apiKey, pc.Model, pc.Temperature, limiter)
	} else {
		gen = provider.NewOpenAI(cfg.Provider, pc.Endpoint, apiKey, pc.Model, pc.Temperature, limiter)
	}

	var tts speech.Synthesizer
	if cfg.TTS.Enabled {
		if key := os.Getenv(cfg.TTS.APIKeyEnv); key != "" {
			tts = speech.NewGoogleTTS(key)
		}
	}

	sessions := session.NewManager(session.Deps{
		Gen:         gen,
		RNG:         entropy.New(cfg.Sim.Seed),
		TTS:         tts,
		Journal:     journal,
		MaxRounds:   cfg.Sim.Rounds,
		CallTimeout: time.Duration(cfg.Sim.CallTimeoutSeconds) * time.Second,
	}, 0)

	program := tea.NewProgram(tui.New(sessions, cfg.Sim.Countries), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatal().Err(err).Msg("TUI error")
	}

	log.Info().Msg("accord console shutdown complete")
}

func initLogging(debug bool) error {
	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	logPath := filepath.Join(dataDir, "accord.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Log to file only, the TUI owns stdout/stderr.
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()

	return nil
}
