// Package dispatch sends consolidated profiles to the ingestion sink in
// size-bounded batches under a concurrency limit.
//
// Batches are processed in waves: up to Concurrency batches run at once and
// the next wave starts only after every task in the current wave has settled
// (success or exhausted retries). A failed batch is retried whole with
// linear backoff; it never fails sibling batches or later waves. Delivery is
// at-least-once: the sink must treat identity-keyed payloads as upserts.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/profile"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// Event is one record inside a sink request.
type Event struct {
	Identity string
	Name     string
	// Timestamp is epoch seconds; zero means unstamped.
	Timestamp int64
	Data      map[string]any
}

// Sink delivers one batch of events as a single request. A non-nil error
// marks the whole batch as failed for that attempt.
type Sink interface {
	Send(ctx context.Context, events []Event) error
}

// Options bound one Dispatch call. Zero values fall back to the defaults the
// ingestion API was sized for.
type Options struct {
	BatchSize   int
	Concurrency int
	MaxRetries  int
	BaseDelay   time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = time.Second
	}
	return o
}

// BatchError describes one batch that exhausted its retries.
type BatchError struct {
	Batch   string
	Message string
}

// Result is the aggregate accounting of one Dispatch call.
// Success+Failed always equals the number of profiles submitted.
type Result struct {
	Success int
	Failed  int
	// Retries counts failed send attempts across all batches, including the
	// final attempt of batches that never succeeded.
	Retries int
	Errors  []BatchError
}

// Dispatcher pushes profile batches through a Sink.
type Dispatcher struct {
	sink   Sink
	logger logpkg.Logger
	opts   Options

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(time.Duration)
}

// New returns a Dispatcher with the given sink and options.
func New(sink Sink, logger logpkg.Logger, opts Options) *Dispatcher {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Dispatcher{
		sink:   sink,
		logger: logger.With(logpkg.Component("dispatch")),
		opts:   opts.withDefaults(),
		sleep:  time.Sleep,
	}
}

// Dispatch partitions profiles into batches and sends them in waves.
// It always runs to completion and returns full accounting; an empty input
// returns a zero Result without touching the sink.
func (d *Dispatcher) Dispatch(ctx context.Context, profiles []profile.Profile, eventName string) Result {
	var res Result
	if len(profiles) == 0 {
		return res
	}

	batches := partition(profiles, d.opts.BatchSize)
	d.logger.Info("dispatching profiles",
		logpkg.Int("profiles", len(profiles)),
		logpkg.Int("batches", len(batches)),
		logpkg.Str("event", eventName),
	)

	var mu sync.Mutex
	for wave := 0; wave < len(batches); wave += d.opts.Concurrency {
		end := wave + d.opts.Concurrency
		if end > len(batches) {
			end = len(batches)
		}
		var wg sync.WaitGroup
		for _, batch := range batches[wave:end] {
			wg.Add(1)
			go func(batch []profile.Profile) {
				defer wg.Done()
				retries, err := d.sendWithRetry(ctx, batch, eventName)
				mu.Lock()
				defer mu.Unlock()
				res.Retries += retries
				if err != nil {
					res.Failed += len(batch)
					res.Errors = append(res.Errors, BatchError{
						Batch:   fmt.Sprintf("batch of %d profiles", len(batch)),
						Message: err.Error(),
					})
					return
				}
				res.Success += len(batch)
			}(batch)
		}
		wg.Wait()
	}

	d.logger.Info("dispatch finished",
		logpkg.Int("success", res.Success),
		logpkg.Int("failed", res.Failed),
		logpkg.Int("retries", res.Retries),
		logpkg.Int("errors", len(res.Errors)),
	)
	return res
}

// sendWithRetry sends one batch up to MaxRetries times, waiting
// BaseDelay*attempt between attempts (attempt numbers are 1-based).
// It returns the number of failed attempts alongside the final error.
func (d *Dispatcher) sendWithRetry(ctx context.Context, batch []profile.Profile, eventName string) (int, error) {
	events := eventsOf(batch, eventName)
	var lastErr error
	failed := 0
	for attempt := 1; attempt <= d.opts.MaxRetries; attempt++ {
		if err := d.sink.Send(ctx, events); err != nil {
			lastErr = err
			failed++
			d.logger.Warn("batch send failed",
				logpkg.Int("attempt", attempt),
				logpkg.Int("profiles", len(batch)),
				logpkg.Err(err),
			)
			if attempt < d.opts.MaxRetries {
				d.sleep(d.opts.BaseDelay * time.Duration(attempt))
			}
			continue
		}
		return failed, nil
	}
	return failed, fmt.Errorf("batch failed after %d attempts: %w", d.opts.MaxRetries, lastErr)
}

func eventsOf(batch []profile.Profile, eventName string) []Event {
	events := make([]Event, len(batch))
	for i, p := range batch {
		events[i] = Event{
			Identity:  p.Identity,
			Name:      eventName,
			Timestamp: p.Timestamp,
			Data:      p.Attributes(),
		}
	}
	return events
}

func partition(profiles []profile.Profile, size int) [][]profile.Profile {
	var out [][]profile.Profile
	for start := 0; start < len(profiles); start += size {
		end := start + size
		if end > len(profiles) {
			end = len(profiles)
		}
		out = append(out, profiles[start:end])
	}
	return out
}
