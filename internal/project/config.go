package project

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"lirc/internal/lir"
	"lirc/internal/trace"
)

// Config mirrors lirc.toml.
type Config struct {
	Check    CheckConfig    `toml:"check"`
	Trace    TraceConfig    `toml:"trace"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

type CheckConfig struct {
	MaxSimplifySteps      int `toml:"max_simplify_steps"`
	MaxTypeDepth          int `toml:"max_type_depth"`
	MaxInstantiationDepth int `toml:"max_instantiation_depth"`
	// MaxStackMB is the goroutine stack ceiling for one compilation.
	MaxStackMB int `toml:"max_stack_mb"`
}

type TraceConfig struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

type PipelineConfig struct {
	// Jobs is the number of bundles checked at once; 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

// Manifest is a loaded configuration together with where it came from.
type Manifest struct {
	Path   string // empty when defaults are used
	Root   string
	Config Config
}

// DefaultConfig matches lir.DefaultLimits.
func DefaultConfig() Config {
	l := lir.DefaultLimits()
	return Config{
		Check: CheckConfig{
			MaxSimplifySteps:      l.MaxSimplifySteps,
			MaxTypeDepth:          l.MaxTypeDepth,
			MaxInstantiationDepth: l.MaxInstantiationDepth,
			MaxStackMB:            512,
		},
		Trace: TraceConfig{Level: "off"},
	}
}

// LoadConfig decodes path over the defaults. Keys not in Config are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadManifest uses explicitPath when set, otherwise searches upward from
// startDir. A missing lirc.toml yields the defaults.
func LoadManifest(startDir, explicitPath string) (*Manifest, error) {
	path := explicitPath
	if path == "" {
		found, ok, err := FindConfig(startDir)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &Manifest{Config: DefaultConfig()}, nil
		}
		path = found
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, nil
}

func (c Config) Validate() error {
	checks := []struct {
		key string
		val int
	}{
		{"check.max_simplify_steps", c.Check.MaxSimplifySteps},
		{"check.max_type_depth", c.Check.MaxTypeDepth},
		{"check.max_instantiation_depth", c.Check.MaxInstantiationDepth},
		{"check.max_stack_mb", c.Check.MaxStackMB},
	}
	for _, ch := range checks {
		if ch.val <= 0 {
			return fmt.Errorf("[%s] must be positive, got %d", ch.key, ch.val)
		}
	}
	if c.Pipeline.Jobs < 0 {
		return fmt.Errorf("[pipeline.jobs] must not be negative, got %d", c.Pipeline.Jobs)
	}
	if _, err := trace.ParseLevel(c.Trace.Level); err != nil {
		return fmt.Errorf("[trace.level]: %w", err)
	}
	return nil
}

// Limits converts the [check] section for the checker.
func (c Config) Limits() lir.Limits {
	return lir.Limits{
		MaxSimplifySteps:      c.Check.MaxSimplifySteps,
		MaxTypeDepth:          c.Check.MaxTypeDepth,
		MaxInstantiationDepth: c.Check.MaxInstantiationDepth,
	}
}

// Jobs resolves the worker count.
func (c Config) Jobs() int {
	if c.Pipeline.Jobs > 0 {
		return c.Pipeline.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

// MaxStackBytes converts max_stack_mb for debug.SetMaxStack.
func (c Config) MaxStackBytes() int {
	return c.Check.MaxStackMB << 20
}
