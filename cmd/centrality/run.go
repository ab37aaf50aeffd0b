package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-centrality/pkg/algorithms"
	"github.com/dd0wney/cluso-centrality/pkg/config"
	"github.com/dd0wney/cluso-centrality/pkg/graph"
	"github.com/dd0wney/cluso-centrality/pkg/logging"
	"github.com/dd0wney/cluso-centrality/pkg/metrics"
	"github.com/dd0wney/cluso-centrality/pkg/progress"
)

// errInterrupted is returned when a run stops before every source was
// processed; partial scores are never reported.
var errInterrupted = errors.New("run interrupted, scores are partial and were discarded")

var runCmd = &cobra.Command{
	Use:   "run [edge-list]",
	Short: "Compute approximate betweenness centrality",
	Long: `Load an edge list ("from to" per line, snappy-framed .sz, or binary .bin)
and estimate betweenness centrality from the configured selection of sources.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.String("format", "auto", "edge list format: auto, text, snappy, binary")
	f.Bool("undirected", false, "treat every relationship as undirected; raw scores are then 4x the usual undirected betweenness (use --normalize)")
	f.Bool("deduplicate", true, "drop parallel relationships and self loops")
	f.IntP("concurrency", "c", 0, "number of workers (default: number of CPUs)")
	f.Int("max-depth", -1, "maximum hops from a source, -1 for unbounded")
	f.StringP("strategy", "s", "all", "source selection: all, random, degree, ids")
	f.Float64P("probability", "p", 0.1, "sampling probability for random and degree selection")
	f.Uint64("seed", 42, "seed for random and degree selection")
	f.StringSlice("ids", nil, "original node ids to use as sources with --strategy=ids")
	f.IntP("top", "n", 10, "number of nodes to report")
	f.StringP("output", "o", "table", "report format: table, yaml")
	f.Bool("normalize", false, "report scores in [0, 1], normalised by the number of node pairs with the undirected factor removed")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	for name, key := range map[string]string{
		"format":       "graph.format",
		"undirected":   "graph.undirected",
		"deduplicate":  "graph.deduplicate",
		"concurrency":  "engine.concurrency",
		"max-depth":    "engine.max_depth",
		"strategy":     "selection.strategy",
		"probability":  "selection.probability",
		"seed":         "selection.seed",
		"ids":          "selection.ids",
		"top":          "output.top",
		"output":       "output.format",
		"normalize":    "output.normalize",
		"metrics-addr": "metrics.addr",
	} {
		bindFlag(f, name, key)
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		v.Set("graph.path", args[0])
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(os.Stderr, cfg.Log.Level)
	logging.SetDefaultLogger(logger)
	registry := metrics.DefaultRegistry()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, registry, logger)
		defer shutdown()
	}

	g, err := loadGraph(cfg, registry, logger)
	if err != nil {
		return err
	}

	rep, err := compute(ctx, cfg, g, registry, logger)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), cfg.Output.Format, rep)
}

func loadGraph(cfg *config.Config, registry *metrics.Registry, logger logging.Logger) (*graph.AdjacencyGraph, error) {
	format := graph.Format(cfg.Graph.Format)
	if format == graph.FormatAuto {
		format = graph.DetectFormat(cfg.Graph.Path)
	}

	timer := logging.StartTimer(logger, "graph loaded",
		logging.Path(cfg.Graph.Path),
		logging.String("format", string(format)),
	)
	g, err := graph.LoadEdgeListFile(cfg.Graph.Path, format, cfg.BuildOptions())
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	elapsed := timer.End(
		logging.NodeCount(g.NodeCount()),
		logging.Int("relationships", g.RelationshipCount()),
	)

	registry.RecordGraphLoad(string(format), elapsed)
	registry.SetGraphSize(g.NodeCount(), g.RelationshipCount())
	return g, nil
}

func compute(ctx context.Context, cfg *config.Config, g *graph.AdjacencyGraph, registry *metrics.Registry, logger logging.Logger) (*report, error) {
	sel, err := cfg.SelectionStrategy(g)
	if err != nil {
		return nil, err
	}

	opts := cfg.EngineOptions()
	opts.Selection = sel
	opts.Logger = logger
	opts.Metrics = registry
	opts.Progress = progress.NewLogReporter(logger, registry, progress.DefaultStep)

	e, err := algorithms.NewRABrandes(g, opts)
	if err != nil {
		return nil, err
	}
	defer e.Release()

	start := time.Now()
	if _, err := e.WithMaxDepth(cfg.Engine.MaxDepth).Compute(ctx); err != nil {
		return nil, err
	}
	if !e.Complete() {
		return nil, errInterrupted
	}

	top := e.TopNodes(cfg.Output.Top)
	if cfg.Output.Normalize {
		top = algorithms.TopNodes(g, e.NormalizedScores(), cfg.Output.Top)
	}

	return &report{
		Algorithm:     algorithms.AlgorithmRABrandes,
		Graph:         cfg.Graph.Path,
		Nodes:         g.NodeCount(),
		Relationships: g.RelationshipCount(),
		Undirected:    cfg.Graph.Undirected,
		Strategy:      cfg.Selection.Strategy,
		Sources:       sel.Size(),
		ScaleFactor:   e.ScaleFactor(),
		Normalized:    cfg.Output.Normalize,
		Duration:      time.Since(start).Round(time.Millisecond).String(),
		Top:           top,
	}, nil
}

// serveMetrics exposes registry at /metrics until the returned function is called.
func serveMetrics(addr string, registry *metrics.Registry, logger logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", registry.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		startTime := time.Now()
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			registry.UpdateSystemMetrics(startTime)
			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	go func() {
		logger.Info("metrics server starting", logging.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.Error(err))
		}
	}()

	return func() {
		close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown", logging.Error(err))
		}
	}
}
