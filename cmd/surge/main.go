package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"surge/internal/config"
	"surge/internal/core"
	"surge/internal/httpstep"
	"surge/internal/report"
	"surge/internal/session"
)

const (
	exitSuccess = 0
	exitError   = 1
)

var (
	configPath string
	infraPath  string
	output     string
)

var rootCmd = &cobra.Command{
	Use:           "surge",
	Short:         "surge - a scenario-based load testing engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to session config (JSON or YAML)")
	rootCmd.Flags().StringVarP(&infraPath, "infra", "i", "", "path to infra config (logger, sinks)")
	rootCmd.Flags().StringVarP(&output, "output", "o", "text", "final report format: text, json")
	_ = rootCmd.MarkFlagRequired("config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(exitSuccess)
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Scenarios) == 0 {
		return errors.New("config declares no scenarios")
	}

	log := logrus.New()
	sinks := []report.Sink{report.NewConsoleSink(os.Stderr)}

	if infraPath != "" {
		infra, err := config.LoadInfra(infraPath)
		if err != nil {
			return err
		}
		if infra.Logging.Level != "" {
			level, err := logrus.ParseLevel(infra.Logging.Level)
			if err != nil {
				return fmt.Errorf("infra config: %w", err)
			}
			log.SetLevel(level)
		}
		if infra.Logging.Format == "json" {
			log.SetFormatter(&logrus.JSONFormatter{})
		}
		if infra.ReportDir != "" {
			sinks = append(sinks, report.NewFileSink(infra.ReportDir))
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	scenarios := make([]*core.Scenario, 0, len(cfg.Scenarios))
	for _, scenarioCfg := range cfg.Scenarios {
		sc, err := httpstep.Scenario(scenarioCfg, client)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, sc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "received interrupt, shutting down...")
		cancel()
	}()

	node, runErr := session.Run(ctx, scenarios, session.Options{
		Logger: log,
		Config: cfg,
		Sinks:  sinks,
	})

	if node != nil {
		if output == "json" {
			report.FormatJSON(os.Stdout, node)
		} else {
			report.FormatText(os.Stdout, node)
		}
	}
	return runErr
}
