package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hymao/mxgraph/pkg/cache"
	"github.com/hymao/mxgraph/pkg/config"
	"github.com/hymao/mxgraph/pkg/metrics"
	"github.com/hymao/mxgraph/pkg/ontology"
	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/propagate"
	"github.com/hymao/mxgraph/pkg/reasoner"
	"github.com/hymao/mxgraph/pkg/retrieve"
	"github.com/hymao/mxgraph/pkg/specimen"
	"github.com/hymao/mxgraph/pkg/storage"
	"github.com/hymao/mxgraph/pkg/vocab"
)

// env is what every command needs: settings, a logger and a recorder.
type env struct {
	cfg *config.Config
	log *slog.Logger
	rec *metrics.Recorder
	out io.Writer
}

func newEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.Runtime.ApplyRuntimeMemory()

	level, _ := cfg.LogLevel()
	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts)
	}
	log := slog.New(handler)
	log.Debug("configuration loaded", slog.String("config", cfg.String()))

	return &env{cfg: cfg, log: log, rec: metrics.New(), out: cmd.OutOrStdout()}, nil
}

// applyFlags copies explicitly set flags over the file and environment
// settings.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Engine, _ = flags.GetString("store")
	}
	if flags.Changed("data-dir") {
		cfg.Store.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("missing") {
		cfg.Index.Missing, _ = flags.GetString("missing")
	}
	if flags.Changed("metrics-file") {
		cfg.Metrics.File, _ = flags.GetString("metrics-file")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if flags.Lookup("strict-denotes") != nil && flags.Changed("strict-denotes") {
		cfg.Propagate.StrictDenotesProperty, _ = flags.GetBool("strict-denotes")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openEngine opens the configured storage engine. A badger store must be
// empty, since the source document is loaded into it.
func (e *env) openEngine() (storage.Engine, error) {
	if e.cfg.Store.Engine != config.StoreBadger {
		return storage.NewMemoryEngine(), nil
	}

	if err := os.MkdirAll(e.cfg.Store.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	engine, err := storage.NewBadgerEngineWithOptions(storage.BadgerOptions{
		DataDir:    e.cfg.Store.DataDir,
		SyncWrites: e.cfg.Store.SyncWrites,
		Logger:     e.log,
	})
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	n, err := engine.NodeCount()
	if err != nil {
		engine.Close()
		return nil, err
	}
	if n > 0 {
		engine.Close()
		return nil, fmt.Errorf("data directory %s already holds %d nodes", e.cfg.Store.DataDir, n)
	}
	return engine, nil
}

// openOntology loads src and every configured import.
func (e *env) openOntology(ctx context.Context, src string) (*ontology.Ontology, error) {
	engine, err := e.openEngine()
	if err != nil {
		return nil, err
	}
	o := ontology.New(engine, ontology.WithLogger(e.log))

	start := time.Now()
	if err := o.Load(src); err != nil {
		engine.Close()
		return nil, err
	}

	catalog := ontology.NewImportCatalog()
	for _, entry := range e.cfg.Imports.Catalog {
		catalog.Add(owl.IRI(entry.IRI), entry.Path)
	}
	if err := catalog.AddPaths(e.cfg.Imports.Paths...); err != nil {
		engine.Close()
		return nil, err
	}
	if err := o.ImportAll(ctx, catalog); err != nil {
		engine.Close()
		return nil, err
	}

	nodes, _ := engine.NodeCount()
	edges, _ := engine.EdgeCount()
	e.log.Info("loaded ontology",
		slog.String("source", src),
		slog.String("ontology", string(o.IRI())),
		slog.Int64("nodes", nodes),
		slog.Int64("edges", edges),
		slog.Duration("took", time.Since(start)))
	return o, nil
}

// syncStore flushes a store that does not sync on every write.
func (e *env) syncStore(engine storage.Engine) error {
	s, ok := engine.(interface{ Sync() error })
	if !ok || e.cfg.Store.SyncWrites {
		return nil
	}
	if err := s.Sync(); err != nil {
		return fmt.Errorf("syncing store: %w", err)
	}
	return nil
}

func (e *env) writeMetrics() error {
	if e.cfg.Metrics.File == "" {
		return nil
	}
	if err := e.rec.WriteToTextfile(e.cfg.Metrics.File); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}

func runPropagate(cmd *cobra.Command, args []string) error {
	src, dst := args[0], args[1]
	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	o, err := e.openOntology(ctx, src)
	if err != nil {
		return err
	}
	defer o.Engine().Close()

	policy, _ := e.cfg.MissingPolicy()
	idx, report, err := specimen.Build(ctx, o, specimen.Options{Policy: policy, Logger: e.log})
	e.rec.ObserveIndex(report)
	if err != nil {
		return fmt.Errorf("building specimen index: %w", err)
	}

	p := propagate.New(o, propagate.Options{
		StrictDenotesProperty: e.cfg.Propagate.StrictDenotesProperty,
		Logger:                e.log,
	})
	res, err := p.Apply(ctx, idx)
	e.rec.ObservePropagation(res)
	if err != nil {
		return fmt.Errorf("propagating: %w", err)
	}

	if err := o.Save(dst); err != nil {
		return err
	}
	if err := e.syncStore(o.Engine()); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "✅ %d assertions from %d data (%d skipped, %d suppressed) written to %s\n",
		len(res.Assertions), res.Data, len(res.Skipped), res.Suppressed, dst)
	return e.writeMetrics()
}

func runCharacters(cmd *cobra.Command, args []string) error {
	src := args[0]
	concept := vocab.DefaultConcept
	if len(args) > 1 {
		concept = owl.IRI(args[1])
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	e, err := newEnv(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	o, err := e.openOntology(ctx, src)
	if err != nil {
		return err
	}
	defer o.Engine().Close()

	var r reasoner.Reasoner = reasoner.NewStructural(o, reasoner.WithLogger(e.log))
	if e.cfg.Reasoner.CacheEnabled {
		r = reasoner.NewCached(r, cache.NewResultCache(e.cfg.Reasoner.CacheSize, e.cfg.Reasoner.CacheTTL))
	}
	r = e.rec.Reasoner(r)
	if err := r.Classify(ctx); err != nil {
		return err
	}

	ids, err := retrieve.New(o, r, retrieve.WithLogger(e.log)).CharactersFor(ctx, concept)
	if err != nil {
		return err
	}
	e.rec.ObserveCharacters(len(ids))

	if asJSON {
		enc := json.NewEncoder(e.out)
		if err := enc.Encode(ids); err != nil {
			return err
		}
	} else {
		for _, id := range ids {
			fmt.Fprintln(e.out, id)
		}
	}
	return e.writeMetrics()
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "mxgraph.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	content := append([]byte("# mxgraph configuration\n"), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Configuration written to %s\n", path)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Propagate:   mxgraph propagate --config %s in.json out.json\n", path)
	fmt.Fprintf(out, "  2. Characters:  mxgraph characters --config %s out.json\n", path)
	return nil
}
