// main.go is the cobra entrypoint. The root command serves HTTP; the mcp
// subcommand serves the control surface over stdio instead. Both modes share
// one registry, gate, and runner.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const version = "0.3.0"

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "affiliagent-yc",
		Short:        "Browser-automation job orchestrator for affiliate campaigns",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to yaml config file")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task control surface over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP()
		},
	}
	root.AddCommand(mcpCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildStack assembles the shared pieces: registry, gate, agent, runner.
func buildStack(cfg *Config, log *zap.Logger) (*Registry, *Runner, error) {
	reg := NewRegistry()
	gate := NewAutomationGate()

	summarizer, err := newOllamaSummarizer(cfg.Summarizer)
	if err != nil {
		return nil, nil, fmt.Errorf("build summarizer: %w", err)
	}
	var sum lineSummarizer
	if summarizer != nil {
		sum = summarizer
		log.Info("trace summarizer enabled", zap.String("model", cfg.Summarizer.Model))
	}

	trace := newTraceTranslator(reg, sum, log)
	runner := NewRunner(cfg, reg, gate, newBridgeAgent(cfg.Agent), trace, log)
	return reg, runner, nil
}

func runServe() error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg.Log)
	defer log.Sync()

	reg, runner, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	server := NewServer(cfg, reg, runner, log)
	log.Info("starting http server",
		zap.String("address", cfg.Server.Address),
		zap.String("agent_url", cfg.Agent.URL),
		zap.String("cdp_url", cfg.Agent.CDPURL))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
		return server.ShutdownWithTimeout(10 * time.Second)
	}
}

func runMCP() error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	// Stdout belongs to the MCP transport in this mode.
	if cfg.Log.Output == "" || cfg.Log.Output == "stdout" {
		cfg.Log.Output = "file"
		if cfg.Log.FilePath == "" {
			cfg.Log.FilePath = "affiliagent-mcp.log"
		}
	}
	log := newLogger(cfg.Log)
	defer log.Sync()

	reg, runner, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("serving MCP over stdio")
	return serveMCP(ctx, cfg, reg, runner, log)
}
