package ioextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/gnames/gnfmt"
	"github.com/google/uuid"
	"github.com/openherbaria/herbdb/internal/iodb"
	"github.com/openherbaria/herbdb/pkg/config"
	"github.com/openherbaria/herbdb/pkg/db"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/openherbaria/herbdb/pkg/schema"
	"golang.org/x/sync/errgroup"
)

// target is one image an extraction run may process.
type target struct {
	sha256     string
	specimenID string
}

// RunReport summarizes one extraction run.
type RunReport struct {
	RunID     string
	Targets   int
	Extracted int
	Skipped   int
	Failed    int
	Conflicts int
}

// Runner drives one extraction run: it walks every registered image,
// skips work the deduplicator already knows about, fans the rest out
// to concurrent workers and re-aggregates the touched specimens from
// committed state afterwards.
type Runner struct {
	operator  db.Operator
	images    herbdb.ImageStore
	dedup     herbdb.Deduplicator
	extractor herbdb.Extractor
	agg       herbdb.Aggregator
	cfg       *config.Config

	mu        sync.Mutex
	specimens map[string]bool
	report    RunReport
}

// NewRunner creates an extraction Runner.
func NewRunner(
	op db.Operator,
	images herbdb.ImageStore,
	dedup herbdb.Deduplicator,
	extractor herbdb.Extractor,
	agg herbdb.Aggregator,
	cfg *config.Config,
) *Runner {
	return &Runner{
		operator:  op,
		images:    images,
		dedup:     dedup,
		extractor: extractor,
		agg:       agg,
		cfg:       cfg,
		specimens: make(map[string]bool),
	}
}

// Run executes one extraction pass over all registered images.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	targets, err := r.listTargets(ctx)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	r.report = RunReport{RunID: runID, Targets: len(targets)}
	r.specimens = make(map[string]bool)

	params := herbdb.ExtractionParams{
		Engine:    r.extractor.Name(),
		Languages: r.cfg.Extract.Languages,
	}

	slog.Info("Starting extraction run",
		"run_id", runID,
		"engine", params.Engine,
		"targets", len(targets),
		"jobs", r.cfg.JobsNumber,
	)

	bar := pb.StartNew(len(targets))
	defer bar.Finish()

	g, ctx := errgroup.WithContext(ctx)
	ch := make(chan target)

	g.Go(func() error {
		defer close(ch)
		for _, t := range targets {
			select {
			case ch <- t:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	jobs := r.cfg.JobsNumber
	if jobs < 1 {
		jobs = 1
	}
	for range jobs {
		g.Go(func() error {
			for t := range ch {
				if err := r.processOne(ctx, t, params, runID); err != nil {
					return err
				}
				bar.Increment()
			}
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		return nil, err
	}

	// Aggregation reads committed attempt rows only; it runs after the
	// extraction transactions so a run always sees its own writes.
	for id := range r.specimens {
		if err = r.agg.Aggregate(ctx, id); err != nil {
			return nil, err
		}
	}

	slog.Info("Extraction run finished",
		"run_id", runID,
		"extracted", r.report.Extracted,
		"skipped", r.report.Skipped,
		"failed", r.report.Failed,
		"conflicts", r.report.Conflicts,
		"duration", gnfmt.TimeString(time.Since(start).Seconds()),
	)
	rep := r.report
	return &rep, nil
}

// processOne handles one image: it claims a pending attempt row, runs
// the engine, then settles the row. Engine failures and timeouts are
// recorded as failed attempts, never returned; only infrastructure
// errors abort the run.
func (r *Runner) processOne(
	ctx context.Context,
	t target,
	params herbdb.ExtractionParams,
	runID string,
) error {
	needed, existing, err := r.dedup.ShouldExtract(ctx, t.sha256, params)
	if err != nil {
		return err
	}
	if !needed {
		slog.Debug("Extraction already recorded",
			"image", t.sha256, "attempt", existing)
		r.count(func(rep *RunReport) { rep.Skipped++ })
		return nil
	}

	// Claim the slot before the expensive part: the pending row sits in
	// the partial unique index, so a concurrent run loses the race here
	// instead of after minutes of OCR.
	att := &herbdb.Attempt{
		ImageSHA256: t.sha256,
		SpecimenID:  t.specimenID,
		Params:      params,
		RunID:       runID,
		Status:      schema.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	err = r.dedup.RecordExtraction(ctx, att)
	switch {
	case err == nil:
	case IsConflict(err):
		slog.Debug("Lost extraction race, skipping image",
			"image", t.sha256)
		r.count(func(rep *RunReport) { rep.Conflicts++ })
		return nil
	default:
		return err
	}

	result, extractErr := r.extract(ctx, t)
	now := time.Now().UTC()
	att.CompletedAt = &now
	if extractErr != nil {
		att.Status = schema.StatusFailed
		att.Error = extractErr.Error()
	} else {
		att.Status = schema.StatusCompleted
		att.Fields = result.Fields
	}

	if err = r.dedup.CompleteExtraction(ctx, att); err != nil {
		return err
	}

	r.mu.Lock()
	if extractErr != nil {
		r.report.Failed++
	} else {
		// Only successful attempts change a specimen's aggregation.
		r.specimens[t.specimenID] = true
		r.report.Extracted++
	}
	r.mu.Unlock()
	return nil
}

// extract fetches the image bytes and runs the engine under the
// configured per-image timeout.
func (r *Runner) extract(
	ctx context.Context,
	t target,
) (*herbdb.ExtractionResult, error) {
	data, err := r.images.Get(ctx, t.sha256)
	if err != nil {
		return nil, fmt.Errorf("image unavailable: %w", err)
	}

	timeout := time.Duration(r.cfg.Extract.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := r.extractor.Extract(tctx, data, herbdb.ExtractionParams{
		Engine:    r.extractor.Name(),
		Languages: r.cfg.Extract.Languages,
	})
	if err != nil {
		if errors.Is(tctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("extraction timed out after %s", timeout)
		}
		return nil, err
	}
	return res, nil
}

func (r *Runner) count(fn func(*RunReport)) {
	r.mu.Lock()
	fn(&r.report)
	r.mu.Unlock()
}

// listTargets returns every registered image: original files and
// derived transformations alike.
func (r *Runner) listTargets(ctx context.Context) ([]target, error) {
	pool := r.operator.Pool()
	if pool == nil {
		return nil, iodb.NotConnectedError()
	}

	rows, err := pool.Query(ctx,
		`SELECT sha256, specimen_id FROM original_files
			UNION ALL
			SELECT sha256, specimen_id FROM image_transformations`)
	if err != nil {
		return nil, QueryError(err)
	}
	defer rows.Close()

	var res []target
	for rows.Next() {
		var t target
		if err = rows.Scan(&t.sha256, &t.specimenID); err != nil {
			return nil, QueryError(err)
		}
		res = append(res, t)
	}
	if err = rows.Err(); err != nil {
		return nil, QueryError(err)
	}
	return res, nil
}
