// Package pipeline wires the stages into runnable jobs. Each job is a pure
// function of its dependencies and configuration: read rows from object
// storage, transform, then either upload a delta artifact or dispatch
// consolidated profiles to the ingestion API.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/config"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/delta"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/dispatch"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/metrics"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/normalize"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// Event names sent to the ingestion API, unchanged from the predecessor jobs
// so downstream campaigns keep firing.
const (
	CartEventName = "TotalItemsInCart"
	ViewEventName = "MostViewedItem"
)

// Deps carries everything a job needs beyond configuration. Sink and
// Uploader may be nil for dry runs; Metrics may always be nil.
type Deps struct {
	Source   rows.Source
	Uploader rows.Uploader
	Sink     dispatch.Sink
	Logger   logpkg.Logger
	Metrics  *metrics.Metrics

	// Clock supplies the single time read each job takes. Nil means time.Now.
	Clock func() time.Time
}

// Runner executes named jobs against a fixed dependency set and config.
type Runner struct {
	deps   Deps
	cfg    config.Config
	dryRun bool
}

// NewRunner returns a Runner. When dryRun is set, jobs compute and log but
// never upload artifacts or call the ingestion sink.
func NewRunner(deps Deps, cfg config.Config, dryRun bool) *Runner {
	if deps.Logger == nil {
		deps.Logger = logpkg.NewLogger()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Runner{deps: deps, cfg: cfg, dryRun: dryRun}
}

type jobFunc func(*Runner, context.Context, logpkg.Logger) error

var jobs = map[string]jobFunc{
	"cart-delta": (*Runner).runCartDelta,
	"view-delta": (*Runner).runViewDelta,
	"cart-push":  (*Runner).runCartPush,
	"view-push":  (*Runner).runViewPush,
}

// Names returns the runnable job names, sorted.
func Names() []string {
	out := make([]string, 0, len(jobs))
	for name := range jobs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes one job by name. Every run gets a fresh run id on its log
// fields so overlapping schedules stay distinguishable.
func (r *Runner) Run(ctx context.Context, name string) error {
	job, ok := jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q (have %v)", name, Names())
	}
	logger := r.deps.Logger.With(
		logpkg.Component("pipeline"),
		logpkg.Str("job", name),
		logpkg.Str("run_id", uuid.NewString()),
	)

	start := r.deps.Clock()
	logger.Info("job starting", logpkg.F("dry_run", r.dryRun))
	if err := job(r, ctx, logger); err != nil {
		logger.Error("job failed", logpkg.Err(err))
		return fmt.Errorf("job %s: %w", name, err)
	}
	logger.Info("job finished", logpkg.Dur("elapsed", r.deps.Clock().Sub(start)))
	return nil
}

// computer builds the shared normalizer/delta stage for one run.
func (r *Runner) computer(logger logpkg.Logger) *delta.Computer {
	return delta.New(normalize.New(logger), logger)
}
