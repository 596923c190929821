// Package search runs repeated patrol path trials and reduces them to the
// best path and detection-probability statistics.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/signalsfoundry/patrol-search/core"
	"github.com/signalsfoundry/patrol-search/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/signalsfoundry/patrol-search/internal/search"

// DefaultMaxDetections is the number of intruder tracks the reference
// scenario can structurally offer: eight rows for each of three speed classes.
const DefaultMaxDetections = 24

// AttemptWarnThreshold is the number of direction draws for a single move
// above which a run is reported as a likely misconfiguration.
const AttemptWarnThreshold = 1000

var (
	ErrInvalidBatches       = errors.New("invalid batch configuration")
	ErrInvalidMaxDetections = errors.New("invalid maximum detections")
)

// Options controls the outer trial loop.
type Options struct {
	Batches         int
	RepeatsPerBatch int
	MaxDetections   float64

	// Workers bounds concurrent runs within a batch. Zero means GOMAXPROCS.
	Workers int
	// Seed makes the whole search reproducible. Every run derives its own
	// random stream from (Seed, batch, run).
	Seed uint64
}

// DefaultOptions mirrors the reference study: ten batches of one hundred runs.
func DefaultOptions() Options {
	return Options{
		Batches:         10,
		RepeatsPerBatch: 100,
		MaxDetections:   DefaultMaxDetections,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Batches <= 0 || o.RepeatsPerBatch <= 0 {
		return fmt.Errorf("%w: %d batches of %d runs", ErrInvalidBatches, o.Batches, o.RepeatsPerBatch)
	}
	if !(o.MaxDetections > 0) {
		return fmt.Errorf("%w: %g", ErrInvalidMaxDetections, o.MaxDetections)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: %d workers", ErrInvalidBatches, o.Workers)
	}
	return nil
}

// CheckCapacity rejects a MaxDetections below the number of tracks p can
// credit, which would let a probability exceed one.
func (o Options) CheckCapacity(p *core.Planner) error {
	if tracks := TrackCapacity(p); o.MaxDetections < float64(tracks) {
		return fmt.Errorf("%w: %g is below the %d tracks the board offers", ErrInvalidMaxDetections, o.MaxDetections, tracks)
	}
	return nil
}

// TrackCapacity returns the most tracks a run of p can credit: one per
// arena row for each speed class flown in a non-empty phase.
func TrackCapacity(p *core.Planner) int {
	rows := int(math.Ceil(p.Sensor().Arena.Height))
	speeds := make(map[core.SpeedClass]struct{})
	for _, ph := range p.Phases() {
		if ph.Len() > 0 {
			speeds[ph.Speed] = struct{}{}
		}
	}
	return rows * len(speeds)
}

// MetricsRecorder receives search measurements. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	ObserveRun(detections, fallbackMoves, maxAttempts int, elapsed time.Duration)
	ObserveBatch(probability float64)
	SetBestProbability(probability float64)
}

// BatchResult is the best run of one batch.
type BatchResult struct {
	Index       int
	Best        core.RunResult
	Probability float64
}

// Report is the outcome of a full search.
type Report struct {
	SearchID string
	Batches  []BatchResult
	Best     BatchResult
	Mean     float64
	StdDev   float64
}

// Probabilities returns the per-batch best probabilities in batch order.
func (r Report) Probabilities() []float64 {
	out := make([]float64, len(r.Batches))
	for i, b := range r.Batches {
		out[i] = b.Probability
	}
	return out
}

// Searcher drives batches of independent planner runs.
type Searcher struct {
	planner *core.Planner
	opts    Options
	log     logging.Logger
	metrics MetricsRecorder
	tracer  trace.Tracer
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the searcher's logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetricsRecorder wires a metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Searcher) { s.metrics = m }
}

// New returns a Searcher for planner.
func New(planner *core.Planner, opts Options, options ...Option) (*Searcher, error) {
	if planner == nil {
		return nil, errors.New("search: nil planner")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := opts.CheckCapacity(planner); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	s := &Searcher{
		planner: planner,
		opts:    opts,
		log:     logging.Noop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Run executes every batch and returns the report. The overall best is the
// first batch to reach the highest probability.
func (s *Searcher) Run(ctx context.Context) (Report, error) {
	ctx, log := logging.WithSearchLogger(ctx, s.log)
	searchID := logging.SearchIDFromContext(ctx)

	ctx, span := s.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.String("search_id", searchID),
		attribute.Int("batches", s.opts.Batches),
		attribute.Int("repeats_per_batch", s.opts.RepeatsPerBatch),
		attribute.Int("workers", s.opts.Workers),
		attribute.Int("duration", s.planner.Duration()),
	))
	defer span.End()

	log.Info(ctx, "search started",
		logging.Int("batches", s.opts.Batches),
		logging.Int("repeats_per_batch", s.opts.RepeatsPerBatch),
		logging.Int("workers", s.opts.Workers),
		logging.Any("seed", s.opts.Seed),
	)
	start := time.Now()

	report := Report{SearchID: searchID, Batches: make([]BatchResult, 0, s.opts.Batches)}
	for b := 0; b < s.opts.Batches; b++ {
		batch, err := s.runBatch(ctx, log, b)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return Report{}, err
		}
		report.Batches = append(report.Batches, batch)
	}

	report.Best = BestBatch(report.Batches)
	report.Mean, report.StdDev = Summarize(report.Probabilities())
	if s.metrics != nil {
		s.metrics.SetBestProbability(report.Best.Probability)
	}

	span.SetAttributes(
		attribute.Float64("best_probability", report.Best.Probability),
		attribute.Float64("mean_probability", report.Mean),
	)
	log.Info(ctx, "search finished",
		logging.Float64("best_probability", report.Best.Probability),
		logging.Int("best_batch", report.Best.Index),
		logging.Float64("mean", report.Mean),
		logging.Float64("stddev", report.StdDev),
		logging.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

func (s *Searcher) runBatch(ctx context.Context, log logging.Logger, index int) (BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "search.batch", trace.WithAttributes(attribute.Int("batch", index)))
	defer span.End()

	runs := make([]core.RunResult, s.opts.RepeatsPerBatch)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i := range runs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			started := time.Now()
			res, err := s.planner.FlyPath(RunRand(s.opts.Seed, index, i))
			if err != nil {
				return fmt.Errorf("batch %d run %d: %w", index, i, err)
			}
			if s.metrics != nil {
				s.metrics.ObserveRun(res.Detections, res.FallbackMoves, res.MaxAttempts, time.Since(started))
			}
			if res.MaxAttempts > AttemptWarnThreshold {
				log.Warn(gctx, "displacement needed many direction draws; check step length against arena size",
					logging.Int("batch", index),
					logging.Int("run", i),
					logging.Int("attempts", res.MaxAttempts),
				)
			}
			runs[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return BatchResult{}, err
	}

	best, _ := BestRun(runs)
	batch := BatchResult{
		Index:       index,
		Best:        best,
		Probability: float64(best.Detections) / s.opts.MaxDetections,
	}
	if s.metrics != nil {
		s.metrics.ObserveBatch(batch.Probability)
	}

	span.SetAttributes(
		attribute.Int("best_detections", best.Detections),
		attribute.Float64("probability", batch.Probability),
	)
	log.Debug(ctx, "batch finished",
		logging.Int("batch", index),
		logging.Int("best_detections", best.Detections),
		logging.Float64("probability", batch.Probability),
	)
	return batch, nil
}

// RunRand returns the random stream for one run. Streams depend only on
// their coordinates, so results do not depend on worker scheduling.
func RunRand(seed uint64, batch, run int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(batch)<<32|uint64(uint32(run))))
}
