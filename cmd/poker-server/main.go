package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/anarjbu15-star/poker-site/internal/server"
)

var CLI struct {
	Config     string `short:"c" long:"config" default:"poker-server.hcl" help:"Path to HCL configuration file"`
	Addr       string `short:"a" long:"addr" help:"Bind address (overrides config)"`
	Port       int    `short:"p" long:"port" help:"Bind port (overrides config)"`
	LogLevel   string `short:"l" long:"log-level" help:"Log level (overrides config)"`
	Seed       int64  `long:"seed" help:"Deterministic shuffle seed (0 = time-based)"`
	HistoryDir string `long:"history-dir" help:"Directory for per-hand history files (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.Port != 0 {
		cfg.Server.Port = CLI.Port
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if CLI.Seed != 0 {
		cfg.Table.Seed = CLI.Seed
	}
	if CLI.HistoryDir != "" {
		cfg.Table.HistoryDir = CLI.HistoryDir
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	logger.Info("Starting poker server",
		"addr", cfg.Addr(),
		"seats", cfg.Table.Seats,
		"minBet", cfg.Table.MinBet,
		"turnSeconds", cfg.Table.TurnSeconds)

	srv := server.NewServer(cfg, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(runCtx); err != nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
	logger.Info("Server stopped")
}
