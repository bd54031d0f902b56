package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/server"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/store"
)

const pruneInterval = time.Hour

var (
	flagServeListen     string
	flagServeDB         string
	flagServeClassifier bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the shared paper library",
	Long: `Serve the paper library over HTTP so several winisorts clients share one
collection. Records are added with POST /v1/records and streamed to clients
over the /v1/feed websocket. Set library.mode to "remote" on the clients.

With --with-classifier the keyword classifier is served alongside it.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeListen, "listen", "", "address to listen on (default from config)")
	serveCmd.Flags().StringVar(&flagServeDB, "db", "", "library database path (default under the XDG data dir)")
	serveCmd.Flags().BoolVar(&flagServeClassifier, "with-classifier", false, "also serve the keyword classifier")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	dbPath := flagServeDB
	if dbPath == "" {
		dbPath = config.StorePath()
	}
	st, err := store.Open(dbPath, log)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	defer st.Close()

	listen := cfg.Server.Listen
	if flagServeListen != "" {
		listen = flagServeListen
	}

	ctx, stop := signalContext()
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(ctx, server.NewLibrary(st, log), listen, log)
	})
	if flagServeClassifier {
		g.Go(func() error {
			return server.Run(ctx, server.NewClassifier(cfg.Classifier.Threshold, log), cfg.Server.ClassifierListen, log)
		})
	}
	g.Go(func() error {
		pruneLoop(ctx, st, cfg.RetentionDuration(), log)
		return nil
	})

	return g.Wait()
}

// pruneLoop drops records past the retention period until ctx ends.
func pruneLoop(ctx context.Context, st *store.Store, retention time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		n, err := st.Prune(ctx, retention)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Warn("prune failed", zap.Error(err))
		case n > 0:
			log.Info("pruned records", zap.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
