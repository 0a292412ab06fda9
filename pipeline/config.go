package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/treetab/treetab/internal"
	tt "github.com/treetab/treetab/internal/types"
)

const (
	DefaultConfigFile = ".treetab.yaml"
	// CorpusExt is appended to bare corpus names resolved against CorpusDir.
	CorpusExt = ".t2c.gz"
	envPrefix = "TREETAB"
	// corpusEnv is the variable the engine itself reads its default corpus from.
	corpusEnv = "TGREP2_CORPUS"
)

// ErrNoCorpus is returned when no corpus was given by flag, config or environment.
var ErrNoCorpus = errors.New("no corpus configured (use --corpus, the config file or TGREP2_CORPUS)")

// DefaultOutputFlags are run for every query unless configured otherwise.
var DefaultOutputFlags = []string{"t", "u"}

// Config represents the overall configuration of a query run.
// CacheMaxAge expires cached results older than it (zero keeps them) and
// Null is printed for missing cells.
type Config struct {
	Name              string        `yaml:"name" mapstructure:"name"`
	Engine            string        `yaml:"engine" mapstructure:"engine"`
	Corpus            string        `yaml:"corpus" mapstructure:"corpus"`
	CorpusDir         string        `yaml:"corpus_dir" mapstructure:"corpus_dir"`
	MatchFlags        string        `yaml:"match_flags" mapstructure:"match_flags"`
	OutputFlags       []string      `yaml:"output_flags" mapstructure:"output_flags"`
	Columns           []string      `yaml:"columns,omitempty" mapstructure:"columns"`
	Ragged            string        `yaml:"ragged" mapstructure:"ragged"`
	FailOnEngineError bool          `yaml:"fail_on_engine_error" mapstructure:"fail_on_engine_error"`
	CacheDir          string        `yaml:"cache_dir,omitempty" mapstructure:"cache_dir"`
	CacheMaxAge       time.Duration `yaml:"cache_max_age,omitempty" mapstructure:"cache_max_age"`
	Format            string        `yaml:"format" mapstructure:"format"`
	Delimiter         string        `yaml:"delimiter" mapstructure:"delimiter"`
	Null              string        `yaml:"null,omitempty" mapstructure:"null"`
}

func DefaultConfig() Config {
	return Config{
		Name:        "treetab",
		Engine:      internal.DefaultCommand,
		MatchFlags:  internal.DefaultMatchFlags,
		OutputFlags: append([]string(nil), DefaultOutputFlags...),
		Ragged:      "pad",
		Format:      "csv",
		Delimiter:   ",",
	}
}

// LoadConfig reads the configuration file at path on top of the defaults,
// then applies TREETAB_* environment variables. TGREP2_CORPUS is honored
// for the corpus. An empty path reads DefaultConfigFile when it exists.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults := DefaultConfig()
	v.SetDefault("name", defaults.Name)
	v.SetDefault("engine", defaults.Engine)
	v.SetDefault("corpus", "")
	v.SetDefault("corpus_dir", "")
	v.SetDefault("match_flags", defaults.MatchFlags)
	v.SetDefault("output_flags", defaults.OutputFlags)
	v.SetDefault("columns", []string{})
	v.SetDefault("ragged", defaults.Ragged)
	v.SetDefault("fail_on_engine_error", false)
	v.SetDefault("cache_dir", "")
	v.SetDefault("cache_max_age", time.Duration(0))
	v.SetDefault("format", defaults.Format)
	v.SetDefault("delimiter", defaults.Delimiter)
	v.SetDefault("null", "")

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("corpus", envPrefix+"_CORPUS", corpusEnv); err != nil {
		return Config{}, err
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

// ResolveCorpus returns the corpus path. A bare name such as "wsj" is
// looked up as CorpusDir/wsj.t2c.gz when a corpus directory is set.
func (c Config) ResolveCorpus() (string, error) {
	corpus := strings.TrimSpace(c.Corpus)
	if corpus == "" {
		return "", ErrNoCorpus
	}
	if c.CorpusDir != "" && !strings.ContainsRune(corpus, filepath.Separator) && !strings.Contains(corpus, ".") {
		return filepath.Join(c.CorpusDir, corpus+CorpusExt), nil
	}
	return corpus, nil
}

// Flags returns the configured output flags.
func (c Config) Flags() []tt.OutputFlag {
	flags := make([]tt.OutputFlag, len(c.OutputFlags))
	for i, f := range c.OutputFlags {
		flags[i] = tt.OutputFlag(strings.TrimSpace(f))
	}
	return flags
}

// DispatcherConfig turns the configuration into engine settings.
func (c Config) DispatcherConfig() (internal.DispatcherConfig, error) {
	corpus, err := c.ResolveCorpus()
	if err != nil {
		return internal.DispatcherConfig{}, err
	}
	return internal.DispatcherConfig{
		Command:    c.Engine,
		Corpus:     corpus,
		MatchFlags: c.MatchFlags,
	}, nil
}
