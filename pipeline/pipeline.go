// Package pipeline runs a set of queries through the engine and assembles
// the outputs into a single table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/treetab/treetab/internal"
	"github.com/treetab/treetab/internal/assemble"
	"github.com/treetab/treetab/internal/table"
	tt "github.com/treetab/treetab/internal/types"
	"github.com/treetab/treetab/query"
)

var ErrNoFlags = errors.New("no output flags requested")

// Options controls a single run.
type Options struct {
	Flags []tt.OutputFlag
	// Columns names the data columns; empty means 0, 1, 2, ...
	Columns           []string
	Ragged            assemble.RaggedPolicy
	FailOnEngineError bool
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
}

// OptionsFromConfig maps the configuration onto run options.
func OptionsFromConfig(cfg Config) (Options, error) {
	policy, err := assemble.ParseRaggedPolicy(cfg.Ragged)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Flags:             cfg.Flags(),
		Columns:           cfg.Columns,
		Ragged:            policy,
		FailOnEngineError: cfg.FailOnEngineError,
	}, nil
}

// Result is a finished table together with the queries that produced it.
type Result struct {
	*table.Table
	Queries *query.Set
}

// SingleQuery reports whether the run had exactly one query, in which case
// the query index column carries no information.
func (r *Result) SingleQuery() bool {
	return r.Queries.Len() == 1
}

// RunFile parses a query file and runs every query in it.
func RunFile(ctx context.Context, logger *zap.Logger, invoker internal.Invoker, path string, opts Options) (*Result, error) {
	set, err := query.ParseFile(path)
	if err != nil {
		return nil, err
	}
	logWarnings(logger, path, set)
	return runSet(ctx, logger, invoker, set, opts)
}

// RunString runs a single ad-hoc query.
func RunString(ctx context.Context, logger *zap.Logger, invoker internal.Invoker, q string, opts Options) (*Result, error) {
	set, err := query.FromString(q)
	if err != nil {
		return nil, err
	}
	return runSet(ctx, logger, invoker, set, opts)
}

func runSet(ctx context.Context, logger *zap.Logger, invoker internal.Invoker, set *query.Set, opts Options) (*Result, error) {
	t, err := Run(ctx, logger, invoker, set, opts)
	if err != nil {
		return nil, err
	}
	return &Result{Table: t, Queries: set}, nil
}

// Run invokes the engine once per query and flag, strictly in order, then
// assembles each query's output and concatenates the fragments.
func Run(ctx context.Context, logger *zap.Logger, invoker internal.Invoker, set *query.Set, opts Options) (*table.Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if len(opts.Flags) == 0 {
		return nil, ErrNoFlags
	}

	width, err := set.MaxFieldCount()
	if err != nil {
		return nil, err
	}
	builder, err := table.NewBuilder(opts.Flags, width, opts.Columns)
	if err != nil {
		return nil, err
	}

	results, err := Collect(ctx, logger, invoker, set, opts)
	if err != nil {
		return nil, err
	}

	fragments, err := AssembleAll(ctx, set, results, width, opts.Ragged)
	if err != nil {
		return nil, err
	}

	for i, f := range fragments {
		if f == nil {
			logger.Info("Query produced no output", zap.Int("query", i))
			continue
		}
		if f.Ragged {
			logger.Warn("Output flags disagree on match count; shorter blocks padded",
				zap.Int("query", i), zap.Int("rows", f.Rows))
		}
		if err := builder.Append(i, f); err != nil {
			return nil, err
		}
	}

	return builder.Build()
}

// Collect runs the engine for every (query, flag) pair, one invocation at a
// time. results[i][j] holds the output of query i under flag j.
func Collect(
	ctx context.Context,
	logger *zap.Logger,
	invoker internal.Invoker,
	set *query.Set,
	opts Options,
) ([][]assemble.FlagResult, error) {
	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(set.Len()*len(opts.Flags),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("querying"),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
		defer fmt.Fprintln(opts.Progress)
	}

	texts := set.Texts()
	results := make([][]assemble.FlagResult, len(texts))
	for i, text := range texts {
		results[i] = make([]assemble.FlagResult, len(opts.Flags))
		for j, flag := range opts.Flags {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			raw, err := invoker.Invoke(ctx, text, flag)
			if err != nil {
				logger.Error("Error invoking engine",
					zap.Int("query", i), zap.String("flag", string(flag)), zap.Error(err))
				return nil, fmt.Errorf("query %d, flag %q: %w", i, flag, err)
			}
			if raw.Failed() && opts.FailOnEngineError {
				return nil, fmt.Errorf("%w: query %d, flag %q, exit code %d: %s",
					internal.ErrEngineFailed, i, flag, raw.ExitCode, firstLine(raw.Text))
			}

			results[i][j] = assemble.FlagResult{Flag: flag, Text: raw.Text}
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}
	return results, nil
}

// AssembleAll assembles every query independently. Fragments keep the
// position of their query; queries without output leave a nil entry.
func AssembleAll(
	ctx context.Context,
	set *query.Set,
	results [][]assemble.FlagResult,
	width int,
	policy assemble.RaggedPolicy,
) ([]*assemble.Fragment, error) {
	queries := set.Queries()
	if len(results) != len(queries) {
		return nil, fmt.Errorf("got results for %d queries, want %d", len(results), len(queries))
	}

	fragments := make([]*assemble.Fragment, len(results))
	g, _ := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			f, err := assemble.Assemble(results[i], queries[i].FieldCount, width, policy)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			fragments[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fragments, nil
}

func logWarnings(logger *zap.Logger, path string, set *query.Set) {
	if logger == nil {
		return
	}
	for _, w := range set.Warnings() {
		logger.Warn("Query file warning", zap.String("file", path), zap.Int("line", w.Line), zap.String("message", w.Message))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
