package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyluth/deckhand/internal/config"
	"github.com/dyluth/deckhand/internal/gapi"
	"github.com/dyluth/deckhand/internal/printer"
	"github.com/dyluth/deckhand/pkg/deck"
)

// newServices builds the Google API clients. Tests replace it with an in-memory workspace.
var newServices = gapi.NewServices

// overrides are the command-line values that take precedence over deckhand.yml.
type overrides struct {
	root        string
	credentials string
	concurrency int
}

// loadConfig reads --config, applies overrides and validates the result.
func loadConfig(o overrides) (*config.DeckhandConfig, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"config": configPath},
			[]string{"Create a starter file:\n  deckhand init"},
		)
	}

	if o.root != "" {
		cfg.Drive.Root = o.root
	}
	if o.credentials != "" {
		cfg.Drive.Credentials = o.credentials
	}
	if o.concurrency != 0 {
		cfg.Batch.Concurrency = o.concurrency
	}
	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid configuration", err.Error(), nil)
	}
	return cfg, nil
}

// openHistory connects to the run history store, or returns nil when it is disabled.
// An unreachable store is a warning: runs proceed without history.
func openHistory(ctx context.Context, cfg *config.DeckhandConfig, logger *zap.Logger) *deck.Client {
	if !cfg.History.Enabled() {
		return nil
	}
	client, err := deck.NewClientFromURL(cfg.History.RedisURL, cfg.History.Instance)
	if err == nil {
		err = client.Ping(ctx)
		if err != nil {
			client.Close()
		}
	}
	if err != nil {
		logger.Warn("history_unavailable", zap.Error(err))
		printer.Warning("Run history disabled: %v\n", err)
		return nil
	}
	return client
}

// requireHistory is openHistory for commands that cannot work without it.
func requireHistory(ctx context.Context, cfg *config.DeckhandConfig) (*deck.Client, error) {
	if !cfg.History.Enabled() {
		return nil, printer.Error(
			"run history is not configured",
			"history.redis_url is empty in deckhand.yml.",
			[]string{"Set history.redis_url, for example:\n  history:\n    redis_url: redis://localhost:6379/0"},
		)
	}
	client, err := deck.NewClientFromURL(cfg.History.RedisURL, cfg.History.Instance)
	if err != nil {
		return nil, printer.Error("invalid history.redis_url", err.Error(), nil)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis connection failed",
			fmt.Sprintf("Could not connect to %s", cfg.History.RedisURL),
			map[string]string{"error": err.Error()},
			[]string{"Check that Redis is running and reachable"},
		)
	}
	return client, nil
}

// explain turns a batch-fatal or setup error into a printed, titled error.
func explain(title string, err error) error {
	var (
		perm     *deck.PermissionError
		notFound *deck.NotFoundError
	)
	switch {
	case errors.As(err, &perm):
		return printer.ErrorWithContext(title, err.Error(),
			map[string]string{"resource": perm.Resource},
			[]string{"Share the folder and templates with the service account's email address"})
	case errors.As(err, &notFound):
		return printer.ErrorWithContext(title, err.Error(),
			map[string]string{"missing": notFound.Kind + " " + notFound.Name},
			[]string{"Check the Drive layout: Templates/data-template, Templates/report-template and entities.csv are required"})
	}
	return printer.Error(title, err.Error(), nil)
}
