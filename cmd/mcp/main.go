package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/kb-orchestrator/internal/adapters/mcp"
	"github.com/kirillkom/kb-orchestrator/internal/bootstrap"
	"github.com/kirillkom/kb-orchestrator/internal/config"
)

const version = "1.0.0"

func main() {
	cfg := config.Load()
	// Stdout carries the MCP protocol, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)).With("service", "mcp"))

	searchUC, err := bootstrap.NewSearchOnly(cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	server := mcpadapter.NewServer(searchUC, version)
	if err := server.ServeStdio(); err != nil {
		slog.Error("mcp_server", "error", err)
		os.Exit(1)
	}
}
