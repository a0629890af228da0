package gapi

import (
	"context"

	"google.golang.org/api/slides/v1"

	"github.com/dyluth/deckhand/internal/ratelimit"
	"github.com/dyluth/deckhand/internal/retry"
)

// SlidesClient implements Slides over slides/v1.
type SlidesClient struct {
	svc    *slides.Service
	bucket *ratelimit.Bucket
	policy retry.Policy
}

// NewSlidesClient wraps svc with the given limiter and retry policy.
func NewSlidesClient(svc *slides.Service, bucket *ratelimit.Bucket, policy retry.Policy) *SlidesClient {
	return &SlidesClient{svc: svc, bucket: bucket, policy: policy}
}

// GetPresentation fetches the full presentation.
func (c *SlidesClient) GetPresentation(ctx context.Context, presentationID string) (*slides.Presentation, error) {
	return call(ctx, c.bucket, ratelimit.Read, c.policy, "slides.presentations.get", presentationID, func(ctx context.Context) (*slides.Presentation, error) {
		return c.svc.Presentations.Get(presentationID).Context(ctx).Do()
	})
}

// BatchUpdate applies requests atomically. An empty batch is a no-op.
func (c *SlidesClient) BatchUpdate(ctx context.Context, presentationID string, requests []*slides.Request) error {
	if len(requests) == 0 {
		return nil
	}
	_, err := call(ctx, c.bucket, ratelimit.Write, c.policy, "slides.presentations.batchUpdate", presentationID, func(ctx context.Context) (struct{}, error) {
		_, err := c.svc.Presentations.BatchUpdate(presentationID, &slides.BatchUpdatePresentationRequest{Requests: requests}).
			Context(ctx).
			Do()
		return struct{}{}, err
	})
	return err
}
