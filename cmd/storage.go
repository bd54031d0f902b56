package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/store"
)

var flagPruneOlderThan string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old papers from the local library",
	Long: `Delete papers older than the retention period from the local library.

Uses the retention value from config (default: 365d) unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := store.Open(config.StorePath(), nil)
		if err != nil {
			return fmt.Errorf("opening library: %w", err)
		}
		defer st.Close()

		retention := cfg.RetentionDuration()
		if flagPruneOlderThan != "" {
			d, err := parseSince(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := st.Prune(context.Background(), retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		if deleted == 0 {
			fmt.Println("Nothing to prune.")
		} else {
			fmt.Printf("Pruned %d paper(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show local library statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(config.StorePath(), nil)
		if err != nil {
			return fmt.Errorf("opening library: %w", err)
		}
		defer st.Close()

		s, err := st.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("Library: %s\n", st.Path())
		fmt.Printf("Papers: %d in %d collection(s)\n", s.Records, s.Collections)
		fmt.Printf("Size: %s\n", formatBytes(s.SizeBytes))
		if !s.LastImport.IsZero() {
			fmt.Printf("Last import: %s ago\n", formatDuration(time.Since(s.LastImport)))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention period (e.g., 30d, 720h)")
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	if h := int(d.Hours()); h > 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", int(d.Minutes()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
