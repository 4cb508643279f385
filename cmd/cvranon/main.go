// Command cvranon anonymizes Cast Vote Record tables by aggregating rare
// ballot styles until every published style or aggregate covers at least
// the configured minimum number of ballots, while preserving every vote
// tally exactly.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/electaudit/cvranon/infrastructure/cvrio"
	"github.com/electaudit/cvranon/infrastructure/observe"
	"github.com/electaudit/cvranon/internal/engine"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		minBallots  int
		styleCol    int
		headerLen   int
		configPath  string
		verbose     bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "cvranon INPUT OUTPUT",
		Short: "Anonymize a CVR file by aggregating rare ballot styles",
		Long: `cvranon reads a wide-format CVR export (CSV or Parquet), merges ballot
styles carried by fewer than the minimum number of ballots into synthetic
aggregate records, and writes the anonymized table. Output is only
delivered after the per-contest, per-choice tallies are verified to be
identical to the input.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := engine.DefaultConfig()
			if configPath != "" {
				loaded, err := engine.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("min-ballots") {
				cfg.MinBallots = minBallots
			}
			if cmd.Flags().Changed("style-col") {
				cfg.StyleColumn = styleCol
			}
			if cmd.Flags().Changed("header-len") {
				cfg.HeaderColumns = headerLen
			}
			cfg.Verbose = cfg.Verbose || verbose

			return run(cmd, cfg, args[0], args[1], metricsAddr)
		},
	}

	cmd.Flags().IntVar(&minBallots, "min-ballots", 10, "minimum ballots required per published style")
	cmd.Flags().IntVar(&styleCol, "style-col", 6, "index of the style column")
	cmd.Flags().IntVar(&headerLen, "header-len", 8, "number of identifying header columns")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log a per-style summary")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

func run(cmd *cobra.Command, cfg engine.Config, inputPath, outputPath, metricsAddr string) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // stderr sync failure is unactionable

	opts := []engine.Option{engine.WithLogger(log)}
	if metricsAddr != "" {
		metrics := observe.NewPrometheusMetrics(nil)
		opts = append(opts, engine.WithMetrics(metrics))
		go func() {
			if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
				log.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	pipeline, err := engine.NewPipeline(cfg, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	reader := cvrio.NewReader(cfg.HeaderColumns, cfg.StyleColumn)
	table, err := reader.Read(ctx, inputPath)
	if err != nil {
		return err
	}

	out, report, err := pipeline.Run(ctx, table)
	if err != nil {
		return err
	}

	if err := cvrio.NewWriter().Write(ctx, outputPath, out); err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Summary())
	fmt.Fprintf(cmd.OutOrStdout(), "  Output written to: %s\n", outputPath)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
