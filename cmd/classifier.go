package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/server"
)

var (
	flagClassifierListen    string
	flagClassifierThreshold float64
)

var classifierCmd = &cobra.Command{
	Use:   "classifier",
	Short: "Serve the offline keyword classifier",
	Long: `Serve POST /classify and GET /health with the built-in keyword classifier.
Point classifier.url at it when the hosted model is unavailable.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg, "")
		if err != nil {
			return err
		}
		defer log.Sync()

		listen := cfg.Server.ClassifierListen
		if flagClassifierListen != "" {
			listen = flagClassifierListen
		}
		threshold := cfg.Classifier.Threshold
		if cmd.Flags().Changed("threshold") {
			threshold = flagClassifierThreshold
		}

		ctx, stop := signalContext()
		defer stop()
		return server.Run(ctx, server.NewClassifier(threshold, log), listen, log)
	},
}

func init() {
	classifierCmd.Flags().StringVar(&flagClassifierListen, "listen", "", "address to listen on (default from config)")
	classifierCmd.Flags().Float64Var(&flagClassifierThreshold, "threshold", 0.5, "minimum topic probability")
}
