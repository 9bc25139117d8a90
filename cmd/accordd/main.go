package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sablecourt/accord/internal/bus"
	"github.com/sablecourt/accord/internal/config"
	"github.com/sablecourt/accord/internal/entropy"
	"github.com/sablecourt/accord/internal/provider"
	"github.com/sablecourt/accord/internal/server"
	"github.com/sablecourt/accord/internal/session"
	"github.com/sablecourt/accord/internal/speech"
	"github.com/sablecourt/accord/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		addr        = flag.String("addr", "", "Listen address (overrides config)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("accordd %s\n", Version)
		os.Exit(0)
	}

	// Best effort: a missing .env is fine.
	_ = godotenv.Load()

	initLogging(*debug)
	log.Info().Str("version", Version).Msg("Starting accordd")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Debug().Interface("config", cfg).Msg("Configuration loaded")

	journal, err := store.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer journal.Close()

	b := bus.NewEventBus(1000)
	defer b.Close()

	registry := initProviders(cfg)
	log.Debug().Strs("providers", registry.List()).Msg("Providers initialized")

	gen, err := registry.Get(cfg.Provider)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Provider).Msg("Active provider unavailable, check its API key")
	}
	log.Info().Str("provider", gen.Name()).Msg("Provider initialized")

	var tts speech.Synthesizer
	if cfg.TTS.Enabled {
		key := os.Getenv(cfg.TTS.APIKeyEnv)
		if key == "" {
			log.Warn().Str("env", cfg.TTS.APIKeyEnv).Msg("TTS enabled but key missing, audio disabled")
		} else {
			tts = speech.NewGoogleTTS(key)
		}
	}

	sessions := session.NewManager(session.Deps{
		Gen:         gen,
		RNG:         entropy.New(cfg.Sim.Seed),
		TTS:         tts,
		Bus:         b,
		Journal:     journal,
		MaxRounds:   cfg.Sim.Rounds,
		CallTimeout: time.Duration(cfg.Sim.CallTimeoutSeconds) * time.Second,
	}, time.Duration(cfg.Sim.SessionTTLMinutes)*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Run(ctx, time.Minute)

	srv := &server.Server{
		Sessions:         sessions,
		Bus:              b,
		DefaultCountries: cfg.Sim.Countries,
	}

	listen := cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Received shutdown signal")
		cancel()
		journal.Close()
		b.Close()
		os.Exit(0)
	}()

	if err := srv.Start(listen); err != nil {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
}

func initLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func initProviders(cfg *config.Config) *provider.Registry {
	registry := provider.NewRegistry()

	for name, pc := range cfg.Providers {
		apiKey := pc.APIKey()
		if apiKey == "" {
			log.Debug().Str("provider", name).Str("env", pc.APIKeyEnv).Msg("Skipping provider, no API key")
			continue
		}
		limiter := rate.NewLimiter(rate.Limit(pc.RateLimit), pc.RateBurst)

		switch name {
		case "anthropic":
			registry.Register(provider.NewAnthropic(name, pc.Endpoint, apiKey, pc.Model, pc.Temperature, limiter))
		default:
			// Everything else is assumed OpenAI-compatible.
			registry.Register(provider.NewOpenAI(name, pc.Endpoint, apiKey, pc.Model, pc.Temperature, limiter))
		}
	}
	return registry
}
