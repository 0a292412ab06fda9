package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/treetab/treetab/formatter"
	"github.com/treetab/treetab/internal"
	tt "github.com/treetab/treetab/internal/types"
	"github.com/treetab/treetab/pipeline"
)

// header modes
const (
	headerAuto   = "auto"
	headerAlways = "always"
	headerNever  = "never"
)

var (
	queryExpr         string
	corpus            string
	engineCmd         string
	outputFlags       string
	matchFlags        string
	columns           string
	outputFormat      string
	delimiter         string
	header            string
	null              string
	ragged            string
	failOnEngineError bool
	cacheDir          string
	cacheMaxAge       time.Duration
	clearCache        bool
	showProgress      bool
	watch             bool
	outPath           string
)

var queryCmd = &cobra.Command{
	Use:   "query [query-file]",
	Short: "Run the queries of a file (or -e) and print the result table",
	Long: `Runs every query of the file once per output flag and prints one row per match.
Example) treetab query --corpus wsj --flags ",t" queries.txt`,
	Run: runQueryCommand,
}

func runQueryCommand(cmd *cobra.Command, args []string) {
	if len(args) == 0 && queryExpr == "" {
		fmt.Println("error: Please provide a query file or a query with -e")
		os.Exit(1)
	}
	if len(args) > 1 {
		fmt.Println("error: Please provide a single query file")
		os.Exit(1)
	}
	if _, err := wantHeader(header, false); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	invoker, err := newInvoker(cfg, clearCache)
	if err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	if showProgress {
		opts.Progress = os.Stderr
	}

	ctx, cancel := rootContext()
	defer cancel()

	src := querySource{expr: queryExpr}
	if len(args) == 1 {
		src.file = args[0]
	}

	if watch {
		if src.file == "" {
			fmt.Println("error: --watch needs a query file")
			os.Exit(1)
		}
		if err := runWatch(ctx, logger, invoker, src, cfg, opts); err != nil && ctx.Err() == nil {
			logger.Error("Watch stopped", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	if err := runQuery(ctx, logger, invoker, src, cfg, opts); err != nil {
		logger.Error("Error running queries", zap.Error(err))
		os.Exit(1)
	}
}

func addQueryFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&queryExpr, "expr", "e", "", "Run this single query instead of a query file")
	fs.StringVar(&corpus, "corpus", "", "Corpus file or name (default from config or TGREP2_CORPUS)")
	fs.StringVar(&engineCmd, "engine", "", "Engine command (default tgrep2)")
	fs.StringVar(&outputFlags, "flags", "", `Comma-separated output flags, one engine run each (e.g. ",t" or "t,u"; "" for the default output only)`)
	fs.StringVar(&matchFlags, "match-flags", "", "Match flags passed to every engine run (default afi)")
	fs.StringVar(&columns, "columns", "", "Comma-separated column names")
	fs.StringVarP(&outputFormat, "format", "f", "", "Output format: csv, tsv, json or pretty")
	fs.StringVar(&delimiter, "delimiter", "", "CSV field delimiter")
	fs.StringVar(&header, "header", headerAuto, "Print a header line: auto, always or never")
	fs.StringVar(&null, "null", "", "Text printed for missing cells")
	fs.StringVar(&ragged, "ragged", "", "Policy when output flags disagree on match count: pad or reject")
	fs.BoolVar(&failOnEngineError, "fail-on-engine-error", false, "Abort when the engine exits with a non-zero status")
	fs.StringVar(&cacheDir, "cache-dir", "", "Cache engine results in this directory")
	fs.DurationVar(&cacheMaxAge, "cache-max-age", 0, "Ignore cached results older than this (0 keeps them)")
	fs.BoolVar(&clearCache, "clear-cache", false, "Drop every cached result before running")
	fs.BoolVar(&showProgress, "progress", false, "Show a progress bar on stderr")
	fs.BoolVarP(&watch, "watch", "w", false, "Re-run whenever the query file changes")
	fs.StringVarP(&outPath, "output", "o", "", "Write the table to this file instead of stdout")
}

func init() {
	addQueryFlags(queryCmd.Flags())
}

func rootContext() (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(context.Background(), timeout)
	}
	return context.WithCancel(context.Background())
}

// loadConfig reads the config file and applies the flags set on fs.
func loadConfig(fs *pflag.FlagSet) (pipeline.Config, error) {
	cfg, err := pipeline.LoadConfig(cfgFile)
	if err != nil {
		return cfg, err
	}

	override := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	override("corpus", &cfg.Corpus, corpus)
	override("engine", &cfg.Engine, engineCmd)
	override("match-flags", &cfg.MatchFlags, matchFlags)
	override("format", &cfg.Format, outputFormat)
	override("delimiter", &cfg.Delimiter, delimiter)
	override("null", &cfg.Null, null)
	override("ragged", &cfg.Ragged, ragged)
	override("cache-dir", &cfg.CacheDir, cacheDir)

	if fs.Changed("flags") {
		cfg.OutputFlags = nil
		for _, f := range tt.ParseFlags(outputFlags) {
			cfg.OutputFlags = append(cfg.OutputFlags, string(f))
		}
	}
	if fs.Changed("columns") {
		cfg.Columns = splitList(columns)
	}
	if fs.Changed("fail-on-engine-error") {
		cfg.FailOnEngineError = failOnEngineError
	}
	if fs.Changed("cache-max-age") {
		cfg.CacheMaxAge = cacheMaxAge
	}
	return cfg, nil
}

func newInvoker(cfg pipeline.Config, reset bool) (internal.Invoker, error) {
	dc, err := cfg.DispatcherConfig()
	if err != nil {
		return nil, err
	}
	d, err := internal.NewDispatcher(dc, logger)
	if err != nil {
		return nil, err
	}
	if cfg.CacheDir == "" {
		if reset {
			logger.Warn("--clear-cache has no effect without a cache directory")
		}
		return d, nil
	}

	cache, err := openCache(cfg, reset)
	if err != nil {
		return nil, err
	}
	d.WithCache(cache)
	return d, nil
}

func openCache(cfg pipeline.Config, reset bool) (*internal.Cache, error) {
	cache, err := internal.NewCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	cache.SetMaxAge(cfg.CacheMaxAge)
	if reset {
		if err := cache.InvalidateAll(); err != nil {
			return nil, fmt.Errorf("error clearing cache: %w", err)
		}
	}
	logger.Debug("Result cache ready",
		zap.String("dir", cfg.CacheDir),
		zap.Int("entries", cache.Len()),
		zap.Duration("max_age", cfg.CacheMaxAge))
	return cache, nil
}

type querySource struct {
	file string
	expr string
}

func (s querySource) run(
	ctx context.Context,
	logger *zap.Logger,
	invoker internal.Invoker,
	opts pipeline.Options,
) (*pipeline.Result, error) {
	if s.expr != "" {
		return pipeline.RunString(ctx, logger, invoker, s.expr, opts)
	}
	return pipeline.RunFile(ctx, logger, invoker, s.file, opts)
}

func runQuery(
	ctx context.Context,
	logger *zap.Logger,
	invoker internal.Invoker,
	src querySource,
	cfg pipeline.Config,
	opts pipeline.Options,
) error {
	result, err := src.run(ctx, logger, invoker, opts)
	if err != nil {
		return err
	}

	single := result.SingleQuery()
	if single {
		formatter.PrepareSingleQuery(result.Table)
	}
	withHeader, err := wantHeader(header, single)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer closeOut()

	return formatter.Write(out, result.Table, formatter.Options{
		Format:    cfg.Format,
		Delimiter: cfg.Delimiter,
		Header:    withHeader,
		Null:      cfg.Null,
	})
}

func runWatch(
	ctx context.Context,
	logger *zap.Logger,
	invoker internal.Invoker,
	src querySource,
	cfg pipeline.Config,
	opts pipeline.Options,
) error {
	if err := runQuery(ctx, logger, invoker, src, cfg, opts); err != nil {
		logger.Error("Error running queries", zap.Error(err))
	}

	w, err := internal.NewWatcher(logger, func(string) {
		if err := runQuery(ctx, logger, invoker, src, cfg, opts); err != nil {
			logger.Error("Error running queries", zap.Error(err))
		}
	}, src.file)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// wantHeader resolves a header mode. auto prints a header unless the run
// had a single query.
func wantHeader(mode string, single bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case headerAuto, "":
		return !single, nil
	case headerAlways:
		return true, nil
	case headerNever:
		return false, nil
	default:
		return false, fmt.Errorf("unknown header mode %q (want auto, always or never)", mode)
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
