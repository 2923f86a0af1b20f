// Command repochat-server is the repository tool server. It speaks the
// Model Context Protocol over stdin/stdout and is normally spawned as a
// subprocess by the repochat frontend, though any MCP-capable host can
// run it. All logging goes to stderr; stdout carries protocol frames only.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sethvargo/go-envconfig"

	"github.com/deploypilotorg/repochat/mcpserver"
	"github.com/deploypilotorg/repochat/registry"
	"github.com/deploypilotorg/repochat/repo"
	"github.com/deploypilotorg/repochat/tools"
)

const version = "0.1.0"

type config struct {
	CloneTimeout  time.Duration `env:"REPOCHAT_CLONE_TIMEOUT,default=2m"`
	TruncateBytes int64         `env:"REPOCHAT_TRUNCATE_BYTES,default=102400"`
	MaxFileBytes  int64         `env:"REPOCHAT_MAX_FILE_BYTES,default=5242880"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "repochat-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := clog.NewLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctx = clog.WithLogger(ctx, logger)

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	ws, err := repo.NewWorkspace(
		repo.WithCloneTimeout(cfg.CloneTimeout),
		repo.WithTruncateBytes(cfg.TruncateBytes),
		repo.WithMaxFileBytes(cfg.MaxFileBytes),
	)
	if err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Errorf("closing workspace: %v", err)
		}
	}()

	reg := registry.New()
	if err := tools.NewSet(ws).Register(reg); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	server, err := mcpserver.New(reg, version)
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	logger.Infof("serving %d tools over stdio", len(reg.Tools()))
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	return nil
}
