// Command repochat is a terminal chat client for exploring GitHub
// repositories with an LLM. On startup it asks for the path to a tool
// server binary (repochat-server), connects to it over stdio, then asks
// for a repository URL and drops into a chat.
//
// Usage:
//
//	ANTHROPIC_API_KEY=sk-... repochat [flags]
//	GEMINI_API_KEY=gk-...   repochat [flags]
//
// Flags:
//
//	-provider string      Provider: anthropic, gemini (auto-detected from env vars if omitted)
//	-model string         Model ID (default: provider default)
//	-session string       Path to session file to resume
//	-system-prompt string Path to system prompt file (default: .repochat/prompt.md)
//	-api-key string       API key (overrides provider's env var)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-envconfig"

	"github.com/deploypilotorg/repochat"
	"github.com/deploypilotorg/repochat/agent"
	bt "github.com/deploypilotorg/repochat/bubbletea"
	"github.com/deploypilotorg/repochat/json"
	"github.com/deploypilotorg/repochat/mcpclient"
)

const (
	version           = "0.1.0"
	defaultPromptPath = ".repochat/prompt.md"
)

const defaultSystemPrompt = `You are a repository analysis assistant. You answer
questions about one GitHub repository using the available tools. Clone the
repository the user names before anything else, then list and read files as
needed to ground your answers. Quote file paths when you reference code, and
say so plainly when a file is missing or truncated instead of guessing.`

// config holds values read from the environment. Flags override these.
type config struct {
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	Model           string `env:"REPOCHAT_MODEL"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "repochat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		model        = flag.String("model", "", "Model ID (provider-specific)")
		sessionPath  = flag.String("session", "", "Path to session file to resume")
		promptPath   = flag.String("system-prompt", defaultPromptPath, "Path to system prompt file")
		providerFlag = flag.String("provider", "", "Provider: anthropic, gemini (auto-detected from env vars if omitted)")
		apiKey       = flag.String("api-key", "", "API key (overrides provider's env var)")
	)
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	provider, err := resolveProvider(ctx, *providerFlag, *apiKey, cfg.AnthropicAPIKey, cfg.GeminiAPIKey)
	if err != nil {
		return err
	}

	session, err := loadOrCreateSession(*sessionPath, *promptPath)
	if err != nil {
		return err
	}

	modelID := *model
	if modelID == "" {
		modelID = cfg.Model
	}

	// The tool server is chosen interactively; each connection yields a
	// fresh executor, so the loop is built per turn around it.
	agentFn := func(ctx context.Context, s *repochat.Session, server bt.ToolServer, onEvent func(repochat.Event)) error {
		opts := []agent.RunOption{agent.WithEventHandler(onEvent)}
		if modelID != "" {
			opts = append(opts, agent.WithModel(modelID))
		}
		return agent.New(provider, server).Run(ctx, s, server.Tools(), opts...)
	}

	connectFn := func(ctx context.Context, path string) (bt.ToolServer, error) {
		return mcpclient.ConnectCommand(ctx, path, version)
	}

	tuiModel := bt.New(agentFn, connectFn, &session, repochat.DefaultTheme())
	if err := bt.Run(ctx, tuiModel); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	// Save session on exit.
	if *sessionPath != "" {
		if err := json.Save(*sessionPath, session); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	} else if len(session.Messages) > 0 {
		savePath := defaultSessionPath(session.ID)
		if err := json.Save(savePath, session); err != nil {
			return fmt.Errorf("auto-save session: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Session saved to %s\n", savePath)
	}

	return nil
}

func loadOrCreateSession(sessionPath, promptPath string) (repochat.Session, error) {
	if sessionPath != "" {
		s, err := json.Load(sessionPath)
		if err != nil {
			return repochat.Session{}, fmt.Errorf("load session: %w", err)
		}
		return s, nil
	}

	// Load system prompt. Tolerate missing default; fail on all other errors.
	systemPrompt := defaultSystemPrompt
	data, err := os.ReadFile(promptPath)
	switch {
	case err == nil:
		systemPrompt = string(data)
	case errors.Is(err, os.ErrNotExist) && promptPath == defaultPromptPath:
		// Default prompt file doesn't exist; use the built-in prompt.
	default:
		return repochat.Session{}, fmt.Errorf("read system prompt: %w", err)
	}

	now := time.Now()
	return repochat.Session{
		ID:           uuid.NewString(),
		SystemPrompt: systemPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func defaultSessionPath(id string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".repochat", "sessions", id+".json")
}
