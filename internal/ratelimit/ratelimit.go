// Package ratelimit throttles API calls per service with separate read and write buckets.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Op distinguishes reads from writes.
type Op int

const (
	Read Op = iota
	Write
)

func (o Op) String() string {
	if o == Write {
		return "write"
	}
	return "read"
}

// Bucket holds one leaky bucket per operation type for a single API.
// A Bucket is safe for concurrent use.
type Bucket struct {
	name  string
	read  *rate.Limiter
	write *rate.Limiter
}

// New creates a bucket allowing the given number of calls per minute.
// Zero means unlimited.
func New(name string, readsPerMinute, writesPerMinute int) *Bucket {
	return &Bucket{
		name:  name,
		read:  limiter(readsPerMinute),
		write: limiter(writesPerMinute),
	}
}

// Unlimited returns a bucket that never blocks.
func Unlimited(name string) *Bucket {
	return New(name, 0, 0)
}

func limiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Acquire blocks until a token for op is available or ctx is done.
func (b *Bucket) Acquire(ctx context.Context, op Op) error {
	l := b.read
	if op == Write {
		l = b.write
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s rate limit: %w", b.name, op, err)
	}
	return nil
}

// Name returns the API name this bucket guards.
func (b *Bucket) Name() string {
	return b.name
}
