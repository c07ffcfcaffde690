package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	tomlrepo "github.com/avezina/chatscan/internal/adapters/repo/toml"
	chainstore "github.com/avezina/chatscan/internal/adapters/secrets/chain"
	"github.com/avezina/chatscan/internal/ports"
	"github.com/avezina/chatscan/internal/rcauth"
	"github.com/avezina/chatscan/internal/scan"
	"github.com/avezina/chatscan/internal/session"
	"github.com/spf13/viper"
)

type app struct {
	manager  *rcauth.Manager
	engine   *scan.Engine
	profiles ports.ProfileRepository
	login    loginConfig
	log      zerolog.Logger
	now      func() time.Time
}

type loginConfig struct {
	ListenAddr string
	Timeout    time.Duration
}

func wireApp() (*app, error) {
	// Credentials may live in a local cred.env next to the binary;
	// real environment variables win over it.
	_ = godotenv.Load("cred.env")

	logger := newLogger()

	profiles, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire profile repository: %w", err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(homeDir, ".chatscan", "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	sessionStore := session.NewStore(secretStore)
	clock := ports.SystemClock{}

	manager := rcauth.NewManager(rcauth.Config{
		APIServerURL:  envOrDefault("RC_SERVER_URL", "https://platform.ringcentral.com"),
		AuthServerURL: envOrDefault("RC_AUTH_SERVER_URL", envOrDefault("RC_SERVER_URL", "https://platform.ringcentral.com")),
		ClientID:      os.Getenv("RC_CLIENT_ID"),
	}, sessionStore, http.DefaultClient, clock, logger)

	return &app{
		manager:  manager,
		engine:   scan.NewEngine(manager, clock, logger),
		profiles: profiles,
		login: loginConfig{
			ListenAddr: envOrDefault("RC_AUTH_LISTEN", "127.0.0.1:4420"),
			Timeout:    5 * time.Minute,
		},
		log: logger,
		now: time.Now,
	}, nil
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if os.Getenv("CHATSCAN_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
