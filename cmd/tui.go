package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classifier"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/session"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	log, err := newLogger(cfg, config.LogPath())
	if err != nil {
		return err
	}
	defer log.Sync()

	lib, closeLib, err := openLibrary(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLib(); err != nil {
			log.Warn("closing library", zap.Error(err))
		}
	}()

	cls := classifier.New(cfg.Classifier.URL, cfg.ClassifierTimeout())
	pipeline := submit.New(cls, lib, feed.CollectionPath(cfg.AppID), log)

	log.Info("starting",
		zap.String("version", version),
		zap.String("library_mode", cfg.Library.Mode),
		zap.String("classifier", cls.BaseURL()))

	return tui.Run(tui.RunOpts{
		Cfg:       cfg,
		Session:   session.NewAnonymous(config.SessionPath()),
		Transport: lib,
		Pipeline:  pipeline,
		Log:       log,
	})
}
