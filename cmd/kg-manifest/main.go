// Package main provides the kg-manifest binary entry point.
// kg-manifest catalogs the graph artifacts in a KG-Hub bucket into a
// manifest document, incrementally: records from the previous manifest
// are carried over and only newly appeared objects are inspected.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/bucket"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/config"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/manifest"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/metrics"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/obofoundry"
	"github.com/Knowledge-Graph-Hub/knowledge-graph-hub.github.io/reconcile"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "kg-manifest"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		bucketName string
		outpath    string
		maximum    int
		logLevel   string
		logDir     string
	)

	cmd := &cobra.Command{
		Use:   "kg-manifest",
		Short: "Generate the KG-Hub graph manifest",
		Long: `kg-manifest walks a KG-Hub bucket and writes a manifest cataloguing
every graph artifact it holds.

Each run carries over the records of the previous manifest unchanged,
catalogs objects that appeared since, validates the builds behind them,
attaches graph summary statistics, and marks records whose objects have
vanished as obsolete. The result is written as a YAML document suitable
for publishing back into the bucket.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, bucketName, outpath, logDir, maximum, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&bucketName, "bucket", "", "Bucket containing the graph artifacts")
	cmd.Flags().StringVar(&outpath, "outpath", "", "Path the manifest is written to")
	cmd.Flags().IntVar(&maximum, "maximum", 0, "Cap on new objects catalogued this run (0 = no cap)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "Directory for run logs (overrides config)")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("outpath")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(configPath, bucketName, outpath, logDir string, maximum int, logLevel string) error {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.NewLoader(bootstrap).Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if logDir != "" {
		cfg.Paths.LogDir = logDir
	}

	logger, closeLog := buildLogger(cfg.Paths.LogDir, level, bootstrap)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting manifest generation",
		"version", Version,
		"bucket", bucketName,
		"outpath", outpath)

	registry, err := obofoundry.Retrieve(ctx, cfg.Registry, logger)
	if err != nil {
		return fmt.Errorf("ontology registry: %w", err)
	}

	store, err := bucket.New(bucketName, cfg.Bucket, logger)
	if err != nil {
		return err
	}

	m := metrics.New(cfg.Metrics.Job)
	runner := reconcile.NewRunner(store, cfg, registry, logger).WithMetrics(m)

	result, err := runner.Run(ctx, filepath.Base(outpath), maximum)
	if err != nil {
		if errors.Is(err, bucket.ErrCredentials) {
			logger.Error("can't find AWS credentials", "error", err)
		}
		return err
	}

	if err := manifest.Write(outpath, cfg.Manifest.Header, result.Records); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	logger.Info("wrote manifest",
		"path", outpath,
		"records", len(result.Records),
		"carried", result.Previous,
		"new", result.New,
		"obsolete", result.Obsolete)

	m.Finish()
	if cfg.Metrics.Gateway != "" {
		if err := m.Push(cfg.Metrics.Gateway); err != nil {
			logger.Warn("metrics push failed", "gateway", cfg.Metrics.Gateway, "error", err)
		} else {
			logger.Info("pushed run metrics", "gateway", cfg.Metrics.Gateway)
		}
	} else {
		m.Log(logger)
	}

	return nil
}

// buildLogger logs to stderr and, when the log directory is writable, to a
// timestamped run log inside it.
func buildLogger(logDir string, level slog.Level, bootstrap *slog.Logger) (*slog.Logger, func()) {
	runID := uuid.NewString()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		bootstrap.Warn("cannot create log directory, logging to stderr only", "dir", logDir, "error", err)
		return bootstrap.With("run_id", runID), func() {}
	}

	name := fmt.Sprintf("manifest_run_%s.log", time.Now().Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		bootstrap.Warn("cannot open run log, logging to stderr only", "file", name, "error", err)
		return bootstrap.With("run_id", runID), func() {}
	}

	handler := slog.NewTextHandler(io.MultiWriter(os.Stderr, f), &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With("run_id", runID)
	return logger, func() { _ = f.Close() }
}
