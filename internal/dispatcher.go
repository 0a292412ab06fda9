package internal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	tt "github.com/treetab/treetab/internal/types"
)

const (
	DefaultCommand    = "tgrep2"
	DefaultMatchFlags = "afi"
	// corpusFlag tells the engine that the corpus file follows the flags.
	corpusFlag = "c"
)

// ErrEngineFailed reports a non-zero engine exit when the caller asked for
// engine failures to be fatal.
var ErrEngineFailed = errors.New("engine exited with non-zero status")

// Invoker runs one query under one output flag.
type Invoker interface {
	Invoke(ctx context.Context, query string, flag tt.OutputFlag) (tt.RawResult, error)
}

// DispatcherConfig describes how the engine is started.
type DispatcherConfig struct {
	// Command is the engine command line, split with shell quoting rules.
	Command    string
	Corpus     string
	MatchFlags string
}

// Dispatcher runs the engine as a subprocess, one invocation per call.
type Dispatcher struct {
	argv       []string
	corpus     string
	matchFlags string
	cache      *Cache
	logger     *zap.Logger
}

// NewDispatcher creates a dispatcher. An empty command selects tgrep2.
func NewDispatcher(cfg DispatcherConfig, logger *zap.Logger) (*Dispatcher, error) {
	command := cfg.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("error parsing engine command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty engine command")
	}
	if cfg.Corpus == "" {
		return nil, fmt.Errorf("no corpus configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		argv:       argv,
		corpus:     cfg.Corpus,
		matchFlags: cfg.MatchFlags,
		logger:     logger,
	}, nil
}

// WithCache makes the dispatcher serve repeated invocations from c.
func (d *Dispatcher) WithCache(c *Cache) *Dispatcher {
	d.cache = c
	return d
}

// Args returns the arguments passed to the engine for the given flag:
// the combined flag argument, the corpus and "-" to read the query from
// standard input.
func (d *Dispatcher) Args(flag tt.OutputFlag) []string {
	args := make([]string, 0, len(d.argv)+2)
	args = append(args, d.argv[1:]...)
	return append(args, "-"+string(flag)+d.matchFlags+corpusFlag, d.corpus, "-")
}

// Invoke runs the engine with query on its standard input. Standard error
// is merged into the captured output. A non-zero exit is not an error: the
// captured text is returned together with the exit code.
func (d *Dispatcher) Invoke(ctx context.Context, query string, flag tt.OutputFlag) (tt.RawResult, error) {
	args := d.Args(flag)

	var key string
	if d.cache != nil {
		k, err := d.cache.Key(d.corpus, append([]string{d.argv[0]}, args...), query)
		if err != nil {
			d.logger.Debug("Result cache disabled for invocation", zap.Error(err))
		} else if result, ok := d.cache.Get(k); ok {
			d.logger.Debug("Serving engine result from cache", zap.String("flag", string(flag)))
			return result, nil
		} else {
			key = k
		}
	}

	cmd := exec.CommandContext(ctx, d.argv[0], args...)
	cmd.Stdin = strings.NewReader(query)

	d.logger.Debug("Running engine",
		zap.String("command", d.argv[0]),
		zap.Strings("args", args))

	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return tt.RawResult{}, ctxErr
	}

	result := tt.RawResult{Text: string(output)}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		d.logger.Warn("Engine exited with non-zero status",
			zap.String("flag", string(flag)),
			zap.Int("exit_code", result.ExitCode),
			zap.String("output", firstLine(result.Text)))
		return result, nil
	case err != nil:
		return tt.RawResult{}, fmt.Errorf("error running %s: %w", d.argv[0], err)
	}

	if key != "" {
		if err := d.cache.Set(key, result); err != nil {
			d.logger.Warn("Failed to store engine result in cache", zap.Error(err))
		}
	}
	return result, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
