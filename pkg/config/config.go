// Package config loads and validates the settings of a centrality run.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/dd0wney/cluso-centrality/pkg/algorithms"
	"github.com/dd0wney/cluso-centrality/pkg/graph"
	"github.com/dd0wney/cluso-centrality/pkg/validation"
)

// EnvPrefix prefixes every environment override, e.g. CENTRALITY_ENGINE_CONCURRENCY.
const EnvPrefix = "CENTRALITY"

// Selection strategy names.
const (
	StrategyAll    = "all"
	StrategyRandom = "random"
	StrategyDegree = "degree"
	StrategyIDs    = "ids"
)

// Output formats.
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
)

// GraphConfig describes the edge list to load.
type GraphConfig struct {
	Path        string `mapstructure:"path" yaml:"path" validate:"required"`
	Format      string `mapstructure:"format" yaml:"format" validate:"oneof=auto text snappy binary"`
	Undirected  bool   `mapstructure:"undirected" yaml:"undirected"`
	Deduplicate bool   `mapstructure:"deduplicate" yaml:"deduplicate"`
}

// EngineConfig sizes the worker pool and bounds the BFS.
type EngineConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"min=1"`
	MaxDepth    int `mapstructure:"max_depth" yaml:"max_depth" validate:"min=-1"` // -1 = unbounded
}

// SelectionConfig chooses the BFS sources.
type SelectionConfig struct {
	Strategy    string   `mapstructure:"strategy" yaml:"strategy" validate:"oneof=all random degree ids"`
	Probability float64  `mapstructure:"probability" yaml:"probability"`
	Seed        uint64   `mapstructure:"seed" yaml:"seed"`
	IDs         []uint64 `mapstructure:"ids" yaml:"ids"` // original node ids
}

// OutputConfig controls the report.
type OutputConfig struct {
	Top       int    `mapstructure:"top" yaml:"top" validate:"min=0"`
	Format    string `mapstructure:"format" yaml:"format" validate:"oneof=table yaml"`
	Normalize bool   `mapstructure:"normalize" yaml:"normalize"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

// Config holds all runtime configuration for a centrality run.
// Values are populated from a YAML file, CENTRALITY_* env vars, and CLI flags.
type Config struct {
	Graph     GraphConfig     `mapstructure:"graph" yaml:"graph"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Selection SelectionConfig `mapstructure:"selection" yaml:"selection"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// New returns a viper instance wired for CENTRALITY_* environment overrides
// with every default registered.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("graph.path", "")
	v.SetDefault("graph.format", string(graph.FormatAuto))
	v.SetDefault("graph.undirected", false)
	v.SetDefault("graph.deduplicate", true)
	v.SetDefault("engine.concurrency", runtime.NumCPU())
	v.SetDefault("engine.max_depth", -1)
	v.SetDefault("selection.strategy", StrategyAll)
	v.SetDefault("selection.probability", 0.1)
	v.SetDefault("selection.seed", uint64(42))
	v.SetDefault("selection.ids", []uint64{})
	v.SetDefault("output.top", 10)
	v.SetDefault("output.format", OutputTable)
	v.SetDefault("output.normalize", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
}

// Load unmarshals v into a Config and validates it. Configuration errors are
// all reported together.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Engine.Concurrency = validation.DefaultOrInt(cfg.Engine.Concurrency, runtime.NumCPU())

	if err := validation.ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the rules that span several fields.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}

	sampled := c.Selection.Strategy == StrategyRandom || c.Selection.Strategy == StrategyDegree
	return validation.NewConfigValidator("selection").
		When(sampled, func(cv *validation.ConfigValidator) {
			cv.Probability("probability", c.Selection.Probability)
		}).
		When(c.Selection.Strategy == StrategyIDs, func(cv *validation.ConfigValidator) {
			cv.NotEmpty("ids", len(c.Selection.IDs))
		}).
		Validate()
}

// BuildOptions returns the loader options for the graph section.
func (c *Config) BuildOptions() graph.BuildOptions {
	return graph.BuildOptions{
		Undirected:  c.Graph.Undirected,
		Deduplicate: c.Graph.Deduplicate,
	}
}

// SelectionStrategy builds the configured strategy for g. Explicit ids are
// original node ids and must exist in g.
func (c *Config) SelectionStrategy(g *graph.AdjacencyGraph) (algorithms.SelectionStrategy, error) {
	switch c.Selection.Strategy {
	case StrategyAll:
		return algorithms.NewAllSelection(g.NodeCount()), nil
	case StrategyRandom:
		return algorithms.NewRandomSelection(g.NodeCount(), c.Selection.Probability, c.Selection.Seed)
	case StrategyDegree:
		return algorithms.NewDegreeSelection(g, c.Selection.Probability, c.Selection.Seed)
	case StrategyIDs:
		dense := make([]int, 0, len(c.Selection.IDs))
		for _, id := range c.Selection.IDs {
			node, ok := g.DenseID(id)
			if !ok {
				return nil, fmt.Errorf("%w: node %d is not in the graph", algorithms.ErrInvalidSourceID, id)
			}
			dense = append(dense, node)
		}
		return algorithms.NewIDSelection(g.NodeCount(), dense)
	default:
		return nil, fmt.Errorf("unknown selection strategy %q", c.Selection.Strategy)
	}
}

// EngineOptions returns engine options without the selection and
// instrumentation, which depend on the loaded graph and the process.
func (c *Config) EngineOptions() algorithms.RABrandesOptions {
	return algorithms.RABrandesOptions{
		Concurrency: c.Engine.Concurrency,
		Undirected:  c.Graph.Undirected,
	}
}
