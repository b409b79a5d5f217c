package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mcguard/config"
	"mcguard/diag"
	"mcguard/logger"
	"mcguard/output"
	"mcguard/scanner"
	"mcguard/tracing"
	"mcguard/version"
)

func main() {
	if err := tracing.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start trace: %v\n", err)
	} else {
		defer tracing.Stop()
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.LogLevel)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, cfg, os.Stdout); err != nil {
		logger.Errorf("Scan failed: %v", err)
		tracing.Stop()
		os.Exit(1)
	}
}

// run scans once, prints the report to stdout and persists the artifact.
func run(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	logger.Infof("Minecraft hack client DLL scanner %s", version.Version)
	logger.Info("Scanning for Minecraft processes and loaded modules...")

	s, err := scanner.NewFromConfig(cfg)
	if err != nil {
		return err
	}

	exporter, err := output.NewExporter(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	}
	defer exporter.Shutdown()

	watchdog := diag.NewWatchdog(diag.Options{
		StallThreshold:  cfg.StallDumpAfter,
		Dir:             cfg.DiagDir,
		ProgressCountFn: s.Progress,
	})
	watchdog.Start(ctx)
	result, err := s.Run(ctx)
	watchdog.Stop()
	if err != nil {
		return err
	}

	if err := output.RenderText(stdout, result); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := output.WriteFile(cfg.OutputFileName, result); err != nil {
		return fmt.Errorf("save results to %s: %w", cfg.OutputFileName, err)
	}
	exporter.EmitResult(ctx, result)

	fmt.Fprintf(stdout, "\nDetailed results saved to: %s\n", cfg.OutputFileName)
	return nil
}

func handleSignals(cancelFunc context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	handleSignalEvent(cancelFunc, sigChan)
}

func handleSignalEvent(cancelFunc context.CancelFunc, sigChan <-chan os.Signal) {
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}
