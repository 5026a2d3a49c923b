// Command xmatch associates detection catalogs with simulation truth.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nbrsim/xmatch"
	"github.com/nbrsim/xmatch/blobstore"
	"github.com/nbrsim/xmatch/catalogio"
	"github.com/nbrsim/xmatch/codec"
	"github.com/nbrsim/xmatch/internal/synth"
	"github.com/nbrsim/xmatch/prommetrics"
	"github.com/nbrsim/xmatch/resource"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "xmatch: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errors.New("missing command")
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "xmatch %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return nil
	case "--help", "-h", "help":
		usage(stdout)
		return nil
	case "match":
		return runMatch(ctx, args[1:], stdout, stderr)
	case "batch":
		return runBatch(ctx, args[1:], stdout, stderr)
	case "synth":
		return runSynth(ctx, args[1:], stdout, stderr)
	default:
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "xmatch - associate detection catalogs with simulation truth")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: xmatch <command> [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  match      Associate one detection catalog with its truth catalog")
	fmt.Fprintln(w, "  batch      Run a list of association jobs")
	fmt.Fprintln(w, "  synth      Write simulated catalogs and a job list")
	fmt.Fprintln(w, "  version    Print version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'xmatch <command> -h' for command options.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintln(w, "  XMATCH_STORE          Default store URI (file://, mem://, s3://, minio://)")
	fmt.Fprintln(w, "  XMATCH_LOG_LEVEL      debug, info, warn or error")
	fmt.Fprintln(w, "  XMATCH_LOG_FORMAT     text or json")
	fmt.Fprintln(w, "  XMATCH_METRICS_ADDR   Serve Prometheus metrics on this address")
	fmt.Fprintln(w, "  XMATCH_LEDGER         Default batch ledger")
	fmt.Fprintln(w, "  XMATCH_S3_ENDPOINT    Custom S3 endpoint (enables path-style)")
	fmt.Fprintln(w, "  XMATCH_S3_REGION      S3 region override")
	fmt.Fprintln(w, "  XMATCH_MINIO_SECURE   Use HTTPS for minio:// stores")
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil {
		return v
	}
	return def
}

// common holds the flags shared by every command that touches a store.
type common struct {
	store       string
	logLevel    string
	logFormat   string
	metricsAddr string
	workers     int
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.store, "store", envOr("XMATCH_STORE", ""), "store URI")
	fs.StringVar(&c.logLevel, "log-level", envOr("XMATCH_LOG_LEVEL", "info"), "log level")
	fs.StringVar(&c.logFormat, "log-format", envOr("XMATCH_LOG_FORMAT", "text"), "log format (text|json)")
	fs.StringVar(&c.metricsAddr, "metrics-addr", envOr("XMATCH_METRICS_ADDR", ""), "serve Prometheus metrics on this address")
	fs.IntVar(&c.workers, "workers", envInt("XMATCH_WORKERS", 0), "match workers per job (0 = GOMAXPROCS)")
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}

func (c *common) logger(stderr io.Writer) (*xmatch.Logger, error) {
	level, err := parseLevel(c.logLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.logFormat) {
	case "text":
		return xmatch.NewLogger(slog.NewTextHandler(stderr, opts)), nil
	case "json":
		return xmatch.NewLogger(slog.NewJSONHandler(stderr, opts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported %q", c.logFormat)
	}
}

// setup builds the store and matcher. The returned shutdown func stops the
// metrics server, if any.
func (c *common) setup(ctx context.Context, stderr io.Writer) (blobstore.BlobStore, *xmatch.Matcher, func(), error) {
	logger, err := c.logger(stderr)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := openStore(ctx, c.store)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := []xmatch.Option{xmatch.WithLogger(logger)}
	if c.workers > 0 {
		opts = append(opts, xmatch.WithWorkers(c.workers))
	}

	shutdown := func() {}
	if c.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, xmatch.WithMetricsCollector(prommetrics.New(reg)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: c.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", c.metricsAddr, "error", err)
			}
		}()
		shutdown = func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}
	}

	return store, xmatch.New(opts...), shutdown, nil
}

func runMatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var c common
	c.register(fs)
	detections := fs.String("detections", "", "detection catalog name")
	truth := fs.String("truth", "", "truth catalog name")
	out := fs.String("out", "", "output catalog name")
	radius := fs.Float64("radius", xmatch.DefaultRadius, "match tolerance in pixels")
	allow := fs.Int("allow", xmatch.DefaultAllow, "truth candidates per detection")
	offset := fs.Float64("offset", xmatch.DefaultPixelOffset, "subtracted from detection positions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *detections == "" || *truth == "" || *out == "" {
		return errors.New("match: -detections, -truth and -out are required")
	}

	store, m, shutdown, err := c.setup(ctx, stderr)
	if err != nil {
		return err
	}
	defer shutdown()

	det, err := catalogio.ReadDetections(ctx, store, *detections)
	if err != nil {
		return err
	}
	tr, err := catalogio.ReadTruth(ctx, store, *truth)
	if err != nil {
		return err
	}

	aug, summary, err := m.Associate(ctx, det, tr,
		xmatch.WithRadius(*radius),
		xmatch.WithAllow(*allow),
		xmatch.WithPixelOffset(*offset),
	)
	if err != nil {
		return err
	}
	if err := catalogio.WriteAugmented(ctx, store, *out, aug); err != nil {
		return err
	}

	fmt.Fprintln(stdout, summary)
	return nil
}

func runBatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var c common
	c.register(fs)
	jobsName := fs.String("jobs", "jobs.json", "job list name")
	ledgerURI := fs.String("ledger", envOr("XMATCH_LEDGER", "store"), "ledger: none, mem, store or dynamodb://table")
	force := fs.Bool("force", false, "rerun jobs already in the ledger")
	concurrency := fs.Int("concurrency", envInt("XMATCH_CONCURRENCY", 0), "concurrent jobs (0 = GOMAXPROCS)")
	ioLimit := fs.Int64("io-limit", 0, "catalog read limit in bytes/sec (0 = unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, m, shutdown, err := c.setup(ctx, stderr)
	if err != nil {
		return err
	}
	defer shutdown()

	l, err := openLedger(ctx, *ledgerURI, store)
	if err != nil {
		return err
	}

	jobs, err := xmatch.ReadJobs(ctx, store, *jobsName)
	if err != nil {
		return err
	}

	opts := []xmatch.BatchOption{
		xmatch.WithForce(*force),
		xmatch.WithController(resource.NewController(resource.Config{
			MaxJobs:            int64(*concurrency),
			IOLimitBytesPerSec: *ioLimit,
		})),
	}
	if l != nil {
		opts = append(opts, xmatch.WithLedger(l))
	}

	results, err := m.NewBatch(store, opts...).Run(ctx, jobs)
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(stdout, "%s\tfailed\t%v\n", r.ID, r.Err)
		case r.Skipped:
			fmt.Fprintf(stdout, "%s\tskipped\n", r.ID)
		default:
			fmt.Fprintf(stdout, "%s\t%s\n", r.ID, r.Summary)
		}
	}
	return err
}

func runSynth(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("synth", flag.ContinueOnError)
	fs.SetOutput(stderr)

	store := fs.String("store", envOr("XMATCH_STORE", ""), "store URI")
	tiles := fs.Int("tiles", 4, "number of tiles")
	n := fs.Int("n", 2000, "truth records per tile")
	size := fs.Float64("size", 4096, "tile width and height in pixels")
	completeness := fs.Float64("completeness", 0.85, "fraction of truth records detected")
	sigma := fs.Float64("sigma", 0.5, "position noise in pixels")
	seed := fs.Int64("seed", 1, "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openStore(ctx, *store)
	if err != nil {
		return err
	}

	gen := synth.New(*seed)
	jobs := make([]xmatch.Job, *tiles)
	for i := range jobs {
		truth := gen.TruthField(*n, *size, *size, 0.05, 8)
		det := gen.DetectTruths(truth, *completeness, *sigma)

		dir := fmt.Sprintf("tile-%03d", i)
		jobs[i] = xmatch.Job{
			ID:         dir,
			Detections: dir + "/detections.json.lz4",
			Truth:      dir + "/truth.json.zst",
			Output:     dir + "/augmented.json.zst",
		}
		if err := catalogio.WriteDetections(ctx, s, jobs[i].Detections, det); err != nil {
			return err
		}
		if err := catalogio.WriteTruth(ctx, s, jobs[i].Truth, truth); err != nil {
			return err
		}
	}

	data, err := codec.Default.Marshal(jobs)
	if err != nil {
		return err
	}
	if err := s.Put(ctx, "jobs.json", data); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "wrote %d tiles\n", len(jobs))
	return nil
}
