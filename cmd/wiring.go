package cmd

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/logging"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/remote"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/store"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

// libraryBackend is what the client side needs from wherever the library
// lives: a snapshot feed and a place to add records.
type libraryBackend interface {
	feed.Transport
	submit.Persister
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return cfg, nil
}

// newLogger logs to path, or to stderr when path is empty.
func newLogger(cfg *config.Config, path string) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, path)
}

// openLibrary connects to the library configured by library.mode. The
// returned close func must run after every subscription has been stopped.
func openLibrary(cfg *config.Config, log *zap.Logger) (libraryBackend, func() error, error) {
	if cfg.Remote() {
		c, err := remote.New(cfg.Library.URL, cfg.ClassifierTimeout(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to library: %w", err)
		}
		return c, func() error { return nil }, nil
	}

	st, err := store.Open(config.StorePath(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening library: %w", err)
	}
	return st, st.Close, nil
}

func parseSince(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
