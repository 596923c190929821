package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/signalsfoundry/patrol-search/core"
	"github.com/signalsfoundry/patrol-search/internal/config"
	"github.com/signalsfoundry/patrol-search/internal/logging"
	"github.com/signalsfoundry/patrol-search/internal/observability"
	"github.com/signalsfoundry/patrol-search/internal/search"
	"github.com/signalsfoundry/patrol-search/timectrl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logging.NewFromEnv()
	if err := run(ctx, os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error(ctx, "patrol search failed", logging.Err(err))
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	seed        uint64
	workers     int
	batches     int
	repeats     int
	metricsAddr string
	outPath     string
	replay      bool
	replayTick  time.Duration
}

func parseFlags(args []string) (options, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("patrol-search", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to a YAML search configuration (defaults to the reference scenario)")
	fs.Uint64Var(&o.seed, "seed", 0, "random seed; 0 keeps the configured seed, or picks one from the clock")
	fs.IntVar(&o.workers, "workers", 0, "concurrent runs per batch (0 = GOMAXPROCS)")
	fs.IntVar(&o.batches, "batches", 0, "number of batches (overrides config)")
	fs.IntVar(&o.repeats, "repeats", 0, "runs per batch (overrides config)")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics; empty disables")
	fs.StringVar(&o.outPath, "out", "", "write the best path and statistics as JSON to this file")
	fs.BoolVar(&o.replay, "replay", false, "replay the best path step by step after the search")
	fs.DurationVar(&o.replayTick, "replay-tick", 0, "wall-clock delay between replayed steps; 0 replays as fast as possible")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	opts, set, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if set["seed"] && opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	if set["workers"] {
		cfg.Workers = opts.workers
	}
	if set["batches"] {
		cfg.Batches = opts.batches
	}
	if set["repeats"] {
		cfg.RepeatsPerBatch = opts.repeats
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tracing := observability.TracingConfigFromEnv()
	tracing.Search = observability.SearchResource{
		Seed:            cfg.Seed,
		Batches:         cfg.Batches,
		RepeatsPerBatch: cfg.RepeatsPerBatch,
		Duration:        cfg.Duration,
		BoardWidth:      cfg.Board.Width,
		BoardHeight:     cfg.Board.Height,
	}
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewSearchCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if opts.metricsAddr != "" {
		srv := serveMetrics(opts.metricsAddr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	planner, err := core.NewPlanner(cfg.Planner())
	if err != nil {
		return err
	}
	searcher, err := search.New(planner, cfg.Search(),
		search.WithLogger(log),
		search.WithMetricsRecorder(collector),
	)
	if err != nil {
		return err
	}

	report, err := searcher.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(stdout, cfg, report)

	if opts.outPath != "" {
		if err := writeReport(opts.outPath, cfg, report); err != nil {
			return err
		}
		log.Info(ctx, "wrote best path", logging.String("path", opts.outPath))
	}

	if opts.replay {
		path := report.Best.Best.Path
		clock := replayPath(ctx, stdout, path, opts.replayTick)
		if last := clock.Now(); last < len(path)-1 {
			log.Warn(ctx, "replay interrupted", logging.Int("step", last), logging.Int("steps", len(path)))
		}
	}
	return nil
}

func printSummary(w io.Writer, cfg config.Config, report search.Report) {
	fmt.Fprintf(w, "Completed %d batches of %d flights (seed %d)\n", len(report.Batches), cfg.RepeatsPerBatch, cfg.Seed)
	for _, b := range report.Batches {
		fmt.Fprintf(w, "  batch %2d: %2d detections, probability %.4f\n", b.Index, b.Best.Detections, b.Probability)
	}
	fmt.Fprintf(w, "Average probability of a simulated run: %.4f\n", report.Mean)
	fmt.Fprintf(w, "Standard deviation of probability: %.4f\n", report.StdDev)
	fmt.Fprintf(w, "Highest probability: %.4f (batch %d)\n", report.Best.Probability, report.Best.Index)
}

// replayPath feeds the best path through a step controller, printing one
// position per step for downstream consumers. The returned clock reports the
// last step printed.
func replayPath(ctx context.Context, w io.Writer, path core.Path, tick time.Duration) timectrl.StepClock {
	mode := timectrl.Accelerated
	if tick > 0 {
		mode = timectrl.RealTime
	}
	sc := timectrl.NewStepController(len(path), tick, mode)
	sc.AddListener(func(step int) {
		p := path[step]
		fmt.Fprintf(w, "step %3d: (%.3f, %.3f)\n", step, p.X, p.Y)
	})
	<-sc.Start(ctx)
	return sc
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type jsonTrack struct {
	Speed float64 `json:"speed"`
	Row   int     `json:"row"`
}

type jsonReport struct {
	SearchID        string      `json:"search_id"`
	Seed            uint64      `json:"seed"`
	Probabilities   []float64   `json:"batch_probabilities"`
	Mean            float64     `json:"mean"`
	StdDev          float64     `json:"stddev"`
	BestBatch       int         `json:"best_batch"`
	BestProbability float64     `json:"best_probability"`
	Detections      int         `json:"detections"`
	Path            []jsonPoint `json:"path"`
	Tracks          []jsonTrack `json:"tracks"`
}

func writeReport(path string, cfg config.Config, report search.Report) error {
	best := report.Best.Best
	out := jsonReport{
		SearchID:        report.SearchID,
		Seed:            cfg.Seed,
		Probabilities:   report.Probabilities(),
		Mean:            report.Mean,
		StdDev:          report.StdDev,
		BestBatch:       report.Best.Index,
		BestProbability: report.Best.Probability,
		Detections:      best.Detections,
		Path:            make([]jsonPoint, 0, len(best.Path)),
		Tracks:          make([]jsonTrack, 0, best.Ledger.Len()),
	}
	for _, p := range best.Path {
		out.Path = append(out.Path, jsonPoint{X: p.X, Y: p.Y})
	}
	for _, k := range best.Ledger.Keys() {
		out.Tracks = append(out.Tracks, jsonTrack{Speed: float64(k.Speed), Row: k.Row})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}

func serveMetrics(addr string, collector *observability.SearchCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
