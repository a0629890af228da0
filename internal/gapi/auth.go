package gapi

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/config"
	"github.com/dyluth/deckhand/internal/ratelimit"
	"github.com/dyluth/deckhand/internal/retry"
)

// Scopes requested for the service account.
var Scopes = []string{
	drive.DriveScope,
	sheets.SpreadsheetsScope,
	slides.PresentationsScope,
}

// Services bundles the three API clients used by a run.
type Services struct {
	Drive  Drive
	Sheets Sheets
	Slides Slides
}

// PolicyFromConfig builds the retry policy described by cfg.
func PolicyFromConfig(cfg *config.RetryConfig, logger *zap.Logger) retry.Policy {
	p := retry.DefaultPolicy()
	if cfg != nil {
		p.MaxAttempts = cfg.MaxAttempts
		p.InitialDelay = cfg.InitialDelay
		p.MaxDelay = cfg.MaxDelay
		p.Multiplier = cfg.Multiplier
	}
	p.Logger = logger
	return p
}

func bucket(name string, r *config.Rate) *ratelimit.Bucket {
	if r == nil {
		return ratelimit.Unlimited(name)
	}
	return ratelimit.New(name, r.ReadsPerMinute, r.WritesPerMinute)
}

// NewServices loads the service account key and builds rate-limited, retrying clients.
// Credential errors are returned as-is; callers treat them as fatal for the run.
func NewServices(ctx context.Context, cfg *config.DeckhandConfig, logger *zap.Logger) (*Services, error) {
	data, err := os.ReadFile(cfg.Drive.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	opt := option.WithCredentials(creds)

	driveSvc, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client: %w", err)
	}
	sheetsSvc, err := sheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}
	slidesSvc, err := slides.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create Slides client: %w", err)
	}

	policy := PolicyFromConfig(cfg.Retry, logger)
	logger.Debug("google_clients_ready", zap.String("retry", policy.Describe()))

	return &Services{
		Drive:  NewDriveClient(driveSvc, bucket("drive", cfg.RateLimits.Drive), policy),
		Sheets: NewSheetsClient(sheetsSvc, bucket("sheets", cfg.RateLimits.Sheets), policy),
		Slides: NewSlidesClient(slidesSvc, bucket("slides", cfg.RateLimits.Slides), policy),
	}, nil
}
