package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/SurturFTW/clevertap-cart-abandon/internal/dispatch"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/profile"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/rows"
	"github.com/SurturFTW/clevertap-cart-abandon/internal/source"
	logpkg "github.com/SurturFTW/clevertap-cart-abandon/pkg/log"
)

// runCartDelta diffs today's cart-abandon exports against charged events and
// uploads the surviving rows as a delta artifact.
func (r *Runner) runCartDelta(ctx context.Context, logger logpkg.Logger) error {
	const job = "cart-delta"
	now := r.deps.Clock()

	primary, err := r.fetchWindow(ctx, logger, r.cfg.Buckets.CartAbandon, now)
	if err != nil {
		return err
	}
	r.deps.Metrics.RowsRead(job, len(primary))
	primary, err = r.applyRowFilter(logger, primary)
	if err != nil {
		return err
	}

	charged, err := r.fetchWindow(ctx, logger, r.cfg.Buckets.ChargedEvents, now)
	if err != nil {
		return err
	}

	set, stats := r.computer(logger).Compute(primary, charged)
	r.deps.Metrics.RowsDropped(job, stats.PrimaryRows-stats.PrimaryValid)
	r.deps.Metrics.DeltaRecords(job, len(set))
	if len(set) == 0 {
		logger.Info("empty delta, no artifact written")
		return nil
	}
	return r.uploadArtifact(ctx, logger, "delta_", now, set.Rows())
}

// runViewDelta aggregates today's product-view exports into per-key view
// counts, drops charged keys and low-count keys, and uploads the result.
func (r *Runner) runViewDelta(ctx context.Context, logger logpkg.Logger) error {
	const job = "view-delta"
	now := r.deps.Clock()

	views, err := r.fetchWindow(ctx, logger, r.cfg.Buckets.ProductView, now)
	if err != nil {
		return err
	}
	r.deps.Metrics.RowsRead(job, len(views))
	views, err = r.applyRowFilter(logger, views)
	if err != nil {
		return err
	}

	charged, err := r.fetchWindow(ctx, logger, r.cfg.Buckets.ChargedEvents, now)
	if err != nil {
		return err
	}

	set, stats := r.computer(logger).AggregateViews(views, charged, r.cfg.Pipeline.MinViewCount)
	r.deps.Metrics.RowsDropped(job, stats.PrimaryRows-stats.PrimaryValid)
	r.deps.Metrics.DeltaRecords(job, len(set))
	if len(set) == 0 {
		logger.Info("empty view delta, no artifact written")
		return nil
	}
	return r.uploadArtifact(ctx, logger, "most_viewed_delta_", now, set.Rows())
}

// runCartPush consolidates today's newest delta artifact and dispatches one
// cart event per identity, latest-added item first.
func (r *Runner) runCartPush(ctx context.Context, logger logpkg.Logger) error {
	return r.push(ctx, logger, "cart-push", "delta_", CartEventName, profile.Config{
		MaxItemsPerProfile: r.cfg.Pipeline.MaxItemsPerProfile,
		OrderMode:          profile.ReverseInsertion,
	})
}

// runViewPush consolidates today's newest most-viewed artifact and dispatches
// one view event per identity, highest view count first. Events carry the run
// timestamp.
func (r *Runner) runViewPush(ctx context.Context, logger logpkg.Logger) error {
	return r.push(ctx, logger, "view-push", "most_viewed_delta_", ViewEventName, profile.Config{
		MaxItemsPerProfile: r.cfg.Pipeline.MaxItemsPerProfile,
		OrderMode:          profile.ViewCountDescending,
		StampTimestamp:     r.deps.Clock().Unix(),
	})
}

func (r *Runner) push(ctx context.Context, logger logpkg.Logger, job, prefix, eventName string, pcfg profile.Config) error {
	now := r.deps.Clock()
	if r.cfg.Buckets.Delta == "" {
		return fmt.Errorf("delta bucket not configured")
	}
	objs, err := r.deps.Source.List(ctx, rows.Selector{Bucket: r.cfg.Buckets.Delta})
	if err != nil {
		return err
	}
	artifact, ok := source.LatestArtifact(objs, prefix, now)
	if !ok {
		logger.Info("no artifact for today, nothing to push", logpkg.Str("prefix", prefix))
		return nil
	}

	rs, err := r.deps.Source.Fetch(ctx, r.cfg.Buckets.Delta, artifact.Key)
	if err != nil {
		return err
	}
	r.deps.Metrics.RowsRead(job, len(rs))
	logger.Info("artifact loaded", logpkg.Str("key", artifact.Key), logpkg.Int("rows", len(rs)))

	// Artifacts are already deduplicated; Compute with no exclusion just
	// re-normalizes and drops rows damaged in transit.
	set, stats := r.computer(logger).Compute(rs, nil)
	r.deps.Metrics.RowsDropped(job, stats.PrimaryRows-stats.PrimaryValid)

	profiles := profile.Consolidate(set, pcfg)
	r.deps.Metrics.Profiles(job, len(profiles))
	if len(profiles) == 0 {
		logger.Info("no profiles to push")
		return nil
	}
	if r.dryRun {
		logger.Info("dry run, skipping dispatch",
			logpkg.Int("profiles", len(profiles)), logpkg.Str("event", eventName))
		return nil
	}
	if r.deps.Sink == nil {
		return fmt.Errorf("ingestion sink not configured")
	}

	d := dispatch.New(r.deps.Sink, logger, dispatch.Options{
		BatchSize:   r.cfg.Dispatch.BatchSize,
		Concurrency: r.cfg.Dispatch.Concurrency,
		MaxRetries:  r.cfg.Dispatch.MaxRetries,
		BaseDelay:   r.cfg.Dispatch.BaseDelay(),
	})
	res := d.Dispatch(ctx, profiles, eventName)
	r.deps.Metrics.DispatchSuccess(job, res.Success)
	r.deps.Metrics.DispatchFailed(job, res.Failed)
	r.deps.Metrics.DispatchRetries(job, res.Retries)
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d profiles failed dispatch", res.Failed, res.Success+res.Failed)
	}
	return nil
}

// fetchWindow lists the bucket, keeps the exports inside the lookback window
// and returns their concatenated rows. Any read failure aborts the run.
func (r *Runner) fetchWindow(ctx context.Context, logger logpkg.Logger, bucket string, now time.Time) ([]rows.Row, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket not configured")
	}
	objs, err := r.deps.Source.List(ctx, rows.Selector{Bucket: bucket})
	if err != nil {
		return nil, err
	}
	matched := source.MatchExportWindow(objs, now, r.cfg.Pipeline.LookbackDays)

	var out []rows.Row
	for _, obj := range matched {
		rs, err := r.deps.Source.Fetch(ctx, bucket, obj.Key)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	logger.Info("exports fetched",
		logpkg.Str("bucket", bucket),
		logpkg.Int("objects", len(matched)),
		logpkg.Int("rows", len(out)),
	)
	return out, nil
}

func (r *Runner) applyRowFilter(logger logpkg.Logger, rs []rows.Row) ([]rows.Row, error) {
	filter, err := rows.NewFilter(r.cfg.Pipeline.RowFilter)
	if err != nil {
		return nil, fmt.Errorf("compile row filter: %w", err)
	}
	if !filter.Enabled() {
		return rs, nil
	}
	kept := rows.ApplyFilter(filter, rs)
	logger.Info("row filter applied", logpkg.Int("in", len(rs)), logpkg.Int("kept", len(kept)))
	return kept, nil
}

func (r *Runner) uploadArtifact(ctx context.Context, logger logpkg.Logger, prefix string, now time.Time, rs []rows.Row) error {
	key := prefix + artifactStamp(now) + ".csv"
	body := rows.EncodeCSV(rs)
	if r.dryRun {
		logger.Info("dry run, skipping artifact upload",
			logpkg.Str("key", key), logpkg.Int("rows", len(rs)))
		return nil
	}
	if r.deps.Uploader == nil {
		return fmt.Errorf("artifact uploader not configured")
	}
	if r.cfg.Buckets.Delta == "" {
		return fmt.Errorf("delta bucket not configured")
	}
	return r.deps.Uploader.Upload(ctx, r.cfg.Buckets.Delta, key, body)
}

// artifactStamp renders the ISO instant with ':' and '.' replaced by '-',
// the naming scheme the push jobs and historical artifacts use.
func artifactStamp(now time.Time) string {
	iso := now.UTC().Format("2006-01-02T15:04:05.000") + "Z"
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}
