package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client stores run history and entity events in Redis.
// All keys and channels are namespaced with the instance name.
// The client is safe for concurrent use.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a history client for the given instance.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client.
func NewClientFromURL(redisURL, instanceName string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewClient(opts, instanceName)
}

// InstanceName returns the namespace this client writes under.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SaveRun writes a run record and indexes it by start time.
// Saving the same record twice overwrites it.
func (c *Client) SaveRun(ctx context.Context, r *RunRecord) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid run record: %w", err)
	}

	hash, err := RunToHash(r)
	if err != nil {
		return fmt.Errorf("failed to serialize run record: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, RunKey(c.instanceName, r.ID), hash)
	pipe.ZAdd(ctx, RunsIndexKey(c.instanceName), redis.Z{
		Score:  float64(r.StartedAtMs),
		Member: r.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write run record to Redis: %w", err)
	}

	return nil
}

// GetRun retrieves a run record by ID.
// Returns (nil, redis.Nil) if the run doesn't exist.
func (c *Client) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	hashData, err := c.rdb.HGetAll(ctx, RunKey(c.instanceName, runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run record from Redis: %w", err)
	}

	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	run, err := HashToRun(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize run record: %w", err)
	}

	return run, nil
}

// ListRuns returns up to limit runs, newest first. A limit of 0 returns all runs.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	ids, err := c.rdb.ZRevRange(ctx, RunsIndexKey(c.instanceName), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}

	runs := make([]*RunRecord, 0, len(ids))
	for _, id := range ids {
		run, err := c.GetRun(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index entry outlived its hash.
				continue
			}
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// ScanRuns returns the IDs of every run whose ID starts with prefix.
func (c *Client) ScanRuns(ctx context.Context, prefix string) ([]string, error) {
	ids, err := c.rdb.ZRange(ctx, RunsIndexKey(c.instanceName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run index: %w", err)
	}

	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}
	return matches, nil
}

// PublishEntityEvent publishes progress for one entity.
func (c *Client) PublishEntityEvent(ctx context.Context, event *EntityEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal entity event: %w", err)
	}

	if err := c.rdb.Publish(ctx, EntityEventsChannel(c.instanceName), data).Err(); err != nil {
		return fmt.Errorf("failed to publish entity event: %w", err)
	}
	return nil
}

// EventSubscription is an active subscription to entity events.
type EventSubscription struct {
	events    chan *EntityEvent
	errors    chan error
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Events returns the channel delivering entity events.
func (s *EventSubscription) Events() <-chan *EntityEvent {
	return s.events
}

// Errors returns the channel delivering decode errors.
func (s *EventSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call more than once.
func (s *EventSubscription) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

// SubscribeEntityEvents subscribes to entity events for this instance.
// Caller must call Close when done.
func (c *Client) SubscribeEntityEvents(ctx context.Context) (*EventSubscription, error) {
	pubsub := c.rdb.Subscribe(ctx, EntityEventsChannel(c.instanceName))

	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to entity events: %w", err)
	}

	eventsChan := make(chan *EntityEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event EntityEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal entity event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &EventSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound reports whether err is a missing Redis key or a NotFoundError.
func IsNotFound(err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	var nf *NotFoundError
	return errors.As(err, &nf)
}
