// Package main is the entry point for the passguard binary.
// It provides a CLI for evaluating password strength, training the
// classifier ensemble, and serving metrics.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/passguard/passguard-oss/pkg/analyzer"
	"github.com/passguard/passguard-oss/pkg/breach"
	"github.com/passguard/passguard-oss/pkg/config"
	"github.com/passguard/passguard-oss/pkg/domain"
	"github.com/passguard/passguard-oss/pkg/engine"
	"github.com/passguard/passguard-oss/pkg/logging"
	"github.com/passguard/passguard-oss/pkg/ml"
	"github.com/passguard/passguard-oss/pkg/storage"
	"github.com/passguard/passguard-oss/pkg/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "passguard",
		Short: "Multi-method password strength evaluation",
		Long: `Evaluates password strength with rule-based scoring, pattern and
entropy analysis, and a trained classifier ensemble, with an optional
k-anonymity breach corpus lookup.

Passwords are read from arguments or stdin and never written to logs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Human-readable log output")

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newBatchCmd(),
		newTrainCmd(),
		newMetricsCmd(),
		newStatusCmd(),
		newServeCmd(),
	)
	return rootCmd
}

// app bundles the engine and its collaborators for the subcommands.
type app struct {
	eng       *engine.Engine
	cfg       *config.Config
	metrics   *telemetry.Metrics
	logger    *slog.Logger
	predictor *ml.Predictor
	store     storage.ModelStore
	cleanup   func()
}

// setup loads configuration, applies CLI overrides, and builds the
// engine with every collaborator the config enables.
func setup(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		cfg.Logging.Pretty = true
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	slog.SetDefault(logger)

	metrics := telemetry.NewMetrics()

	var store storage.ModelStore
	cleanup := func() {}
	if cfg.Models.Path != "" {
		sqliteStore, err := storage.NewSQLiteStore(cfg.Models.Path)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
		cleanup = func() { sqliteStore.Close() } //nolint:errcheck
	} else {
		store = storage.NewMemoryStore()
	}

	predictor := ml.NewPredictor(logger)
	if err := predictor.Reload(context.Background(), store); err != nil {
		logger.Debug("no model generation loaded", "error", err)
	} else {
		metrics.SetModelGeneration(predictor.Generation())
	}

	var breachClient *breach.Client
	if cfg.Breach.Enabled {
		breachClient = breach.NewClient(breach.Config{
			BaseURL:     cfg.Breach.BaseURL,
			UserAgent:   cfg.Breach.UserAgent,
			MinInterval: cfg.Breach.MinInterval,
			Timeout:     cfg.Breach.Timeout,
		}, nil, logger)
	}

	thresholds := analyzer.Thresholds{
		VeryWeak: cfg.Scoring.Thresholds.VeryWeak,
		Weak:     cfg.Scoring.Thresholds.Weak,
		Moderate: cfg.Scoring.Thresholds.Moderate,
		Strong:   cfg.Scoring.Thresholds.Strong,
	}
	methodWeights := analyzer.DefaultMethodWeights.Merge(cfg.Scoring.MethodWeights)

	eng, err := engine.New(engine.Config{
		RuleScorer:       analyzer.NewRuleScorer(analyzer.DefaultRuleWeights, thresholds),
		Aggregator:       analyzer.NewAggregator(methodWeights, thresholds),
		Thresholds:       &thresholds,
		Predictor:        predictor,
		Breach:           breachClient,
		Store:            store,
		Pipeline:         ml.NewPipeline(cfg.Training.Seed, logger),
		Metrics:          metrics,
		Logger:           logger,
		SyntheticSamples: cfg.Training.SyntheticSamples,
		Seed:             cfg.Training.Seed,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	return &app{
		eng:       eng,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		predictor: predictor,
		store:     store,
		cleanup:   cleanup,
	}, nil
}

func newEvaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [password]",
		Short: "Evaluate a single password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			password, err := readPassword(args)
			if err != nil {
				return err
			}

			checkBreach, _ := cmd.Flags().GetBool("breach")
			report := a.eng.Evaluate(cmd.Context(), password, engine.Options{CheckBreach: checkBreach})
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().Bool("breach", false, "Check the password against the breach corpus")
	return cmd
}

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Evaluate passwords read line by line from a file or stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			file, _ := cmd.Flags().GetString("file")
			passwords, err := readLines(file)
			if err != nil {
				return err
			}

			checkBreach, _ := cmd.Flags().GetBool("breach")
			reports := a.eng.EvaluateBatch(cmd.Context(), passwords, engine.Options{CheckBreach: checkBreach})
			return printJSON(cmd, reports)
		},
	}
	cmd.Flags().StringP("file", "f", "", "File with one password per line (default stdin)")
	cmd.Flags().Bool("breach", false, "Check each password against the breach corpus")
	return cmd
}

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier ensemble and activate the new models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			dataset, _ := cmd.Flags().GetString("dataset")
			if dataset == "" {
				a.logger.Info("no dataset supplied, generating synthetic training data")
			}

			summary, err := a.eng.Train(cmd.Context(), dataset)
			if err != nil {
				return err
			}
			return printJSON(cmd, summary)
		},
	}
	cmd.Flags().StringP("dataset", "d", "", "CSV dataset of password,label rows (empty = synthetic)")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show training metrics of the active models",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()

			metrics, err := a.eng.PerformanceMetrics(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, metrics)
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine readiness and the active model generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()
			return printJSON(cmd, a.eng.Status())
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the metrics and health endpoints, reloading models on store changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.cleanup()
			return runServe(cmd.Context(), a)
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	// Follow model store changes while serving, so a training process
	// writing to the same store file updates this process too.
	if a.cfg.Models.Watch && a.cfg.Models.Path != "" {
		watcher, err := ml.NewStoreWatcher(a.cfg.Models.Path, a.predictor, a.store, a.logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop() //nolint:errcheck
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(a.eng.Status()); err != nil {
			a.logger.Error("failed to write health response", "error", err)
		}
	})

	server := &http.Server{
		Addr:              a.cfg.Metrics.Address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server listening", "address", a.cfg.Metrics.Address)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("error during shutdown", "error", err)
		}
	}

	a.logger.Info("server stopped")
	return nil
}

func readPassword(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	return "", fmt.Errorf("no password supplied: %w", domain.ErrInvalidInput)
}

func readLines(path string) ([]string, error) {
	var in *os.File
	if path == "" {
		in = os.Stdin
	} else {
		f, err := os.Open(path) //nolint:gosec // operator-supplied input file
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		in = f
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
