package cmd

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classifier"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/ingest"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/session"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/store"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

var (
	flagImportMaxAge string
	flagImportRate   float64
	flagImportDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import [feed-url...]",
	Short: "Classify and add papers from RSS/Atom feeds",
	Long: `Fetch paper abstracts from the given feeds, or from the enabled sources in
the config when none are given, classify each one and add it to the library.
Papers whose link is already in a local library are skipped.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagImportMaxAge, "max-age", "7d", "skip entries older than this (e.g., 7d, 48h, 0 for all)")
	importCmd.Flags().Float64Var(&flagImportRate, "rate", 2, "classifier requests per second (0 for unlimited)")
	importCmd.Flags().BoolVar(&flagImportDryRun, "dry-run", false, "list what would be imported without classifying")
}

// importSources turns feed URLs given on the command line into sources.
func importSources(cfg *config.Config, args []string) ([]config.Source, error) {
	if len(args) == 0 {
		sources := cfg.EnabledSources()
		if len(sources) == 0 {
			return nil, fmt.Errorf("no feed given and no enabled sources in config")
		}
		return sources, nil
	}

	var out []config.Source
	for _, a := range args {
		u, err := url.Parse(a)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("invalid feed URL %q", a)
		}
		out = append(out, config.Source{Name: u.Host, Type: "rss", URL: a, Enabled: true})
	}
	return out, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sources, err := importSources(cfg, args)
	if err != nil {
		return err
	}

	maxAge := parseSinceOrZero(flagImportMaxAge)
	if maxAge < 0 {
		return fmt.Errorf("invalid --max-age value %q", flagImportMaxAge)
	}

	log, err := newLogger(cfg, "")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Fetching %d feed(s)...\n", len(sources))
	result := ingest.FetchAll(ctx, ingest.NewRSSFetcher(maxAge), sources)
	for _, e := range result.Errors {
		fmt.Printf("  [warn] %v\n", e)
	}
	if flagImportDryRun {
		for _, it := range result.Items {
			fmt.Printf("  %s  %s\n", it.Source, it.Title)
		}
		fmt.Printf("%d paper(s) found.\n", len(result.Items))
		return nil
	}
	if len(result.Items) == 0 {
		fmt.Println("Nothing to import.")
		return nil
	}

	cls := classifier.New(cfg.Classifier.URL, cfg.ClassifierTimeout())
	if _, err := cls.Health(ctx); err != nil {
		return fmt.Errorf("classifier at %s is not reachable: %w", cls.BaseURL(), err)
	}

	userID, err := session.NewAnonymous(config.SessionPath()).Establish(ctx)
	if err != nil {
		return err
	}

	lib, closeLib, err := openLibrary(cfg, log)
	if err != nil {
		return err
	}
	defer closeLib()

	collection := feed.CollectionPath(cfg.AppID)
	var seen ingest.LinkChecker
	if st, ok := lib.(*store.Store); ok {
		seen = st
	}

	p := submit.New(cls, lib, collection, log)
	rep, err := ingest.NewImporter(p, seen, collection, userID, flagImportRate, log).Import(ctx, result.Items)
	for _, e := range rep.Errors {
		fmt.Printf("  [fail] %v\n", e)
	}
	fmt.Printf("Imported %d, skipped %d, failed %d.\n", rep.Imported, rep.Skipped, rep.Failed)
	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}

	if st, ok := lib.(*store.Store); ok && rep.Imported > 0 {
		if err := st.SetLastImport(context.Background()); err != nil {
			log.Warn("recording import time", zap.Error(err))
		}
	}
	return nil
}

// parseSinceOrZero accepts "0" as no limit and returns -1 for bad input.
func parseSinceOrZero(s string) time.Duration {
	if s == "" || s == "0" {
		return 0
	}
	d, err := parseSince(s)
	if err != nil || d < 0 {
		return -1
	}
	return d
}
