package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/ideaforge/internal/channel"
	"github.com/ashita-ai/ideaforge/internal/client"
	"github.com/ashita-ai/ideaforge/internal/config"
	"github.com/ashita-ai/ideaforge/internal/dashboard"
	"github.com/ashita-ai/ideaforge/internal/history"
	"github.com/ashita-ai/ideaforge/internal/logging"
	"github.com/ashita-ai/ideaforge/internal/store"
	"github.com/ashita-ai/ideaforge/internal/telemetry"
)

var errHistoryDisabled = errors.New("run history is disabled; set IDEAFORGE_HISTORY_PATH or [history] path")

// env is the per-invocation wiring shared by the subcommands.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	client  *client.Client
	history *history.DB

	closers []func()
}

type envOptions struct {
	// quietLogs drops log output unless a log file is configured, so the
	// terminal view owns the screen.
	quietLogs bool
}

func newEnv(ctx context.Context, opts envOptions) (e *env, err error) {
	// Load .env file if present (non-fatal; most setups won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	e = &env{cfg: cfg}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	if opts.quietLogs && cfg.LogFile == "" {
		e.logger = logging.Discard()
	} else {
		logger, closer, err := logging.NewFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		if closer != nil {
			e.closers = append(e.closers, func() { _ = closer.Close() })
		}
		e.logger = logger
	}
	slog.SetDefault(e.logger)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Options{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     Version,
		Channel:     cfg.Channel,
	})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			e.logger.Warn("telemetry: shutdown", "error", err)
		}
	})

	e.client, err = client.New(client.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.RequestTimeout,
		UserAgent: "ideaforge-cli/" + Version,
	})
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}

	if cfg.HistoryPath != "" {
		e.history, err = history.Open(ctx, cfg.HistoryPath, e.logger)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		e.closers = append(e.closers, func() { _ = e.history.Close() })
	}

	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// newChannel builds the push-event client for the configured channel.
func (e *env) newChannel() *channel.Client {
	return channel.New(e.cfg.WSURL, e.cfg.Channel,
		channel.WithReconnectDelay(e.cfg.ReconnectDelay),
		channel.WithLogger(e.logger),
	)
}

// newDashboard wires a dashboard over the client and, optionally, a channel.
// One-shot commands pass a nil channel.
func (e *env) newDashboard(ch dashboard.Channel) *dashboard.Dashboard {
	deps := dashboard.Deps{
		Client:       e.client,
		Channel:      ch,
		Store:        store.Default(),
		Settings:     store.NewSettings(e.cfg.LLMProvider),
		Logger:       e.logger,
		FetchTimeout: e.cfg.RequestTimeout,
	}
	if e.history != nil {
		deps.History = e.history
	}
	return dashboard.New(deps)
}

func (e *env) requireHistory() error {
	if e.history == nil {
		return errHistoryDisabled
	}
	return nil
}
