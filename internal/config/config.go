// Package config is the small options surface spec §6.3 names
// ({boundsChecks, canonicalize, verifyAfterEachPass, optLevel}) plus
// YAML-loaded named pass-pipeline presets, so a pipeline can be
// described declaratively the way this corpus's toolchains externalize
// build/pass configuration (grounded on the teacher's own YAML-driven
// eval harness config, internal/eval_harness).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/viper-lang/viper/internal/passmgr"
)

// OptLevel selects a named pass-pipeline preset.
type OptLevel string

const (
	O0 OptLevel = "O0"
	O1 OptLevel = "O1"
)

// Options is spec §6.3's enumerated option set.
type Options struct {
	BoundsChecks        bool
	Canonicalize        bool
	VerifyAfterEachPass bool
	OptLevel            OptLevel
}

// Option mutates an Options value being built.
type Option func(*Options)

// WithBoundsChecks toggles array bounds-check instrumentation.
func WithBoundsChecks(on bool) Option { return func(o *Options) { o.BoundsChecks = on } }

// WithCanonicalize toggles canonical-form text-IL printing (stable
// block/value numbering) on serialization.
func WithCanonicalize(on bool) Option { return func(o *Options) { o.Canonicalize = on } }

// WithVerifyAfterEachPass enables the pass manager's per-step
// re-verification (spec §4.7's debug-build mode).
func WithVerifyAfterEachPass(on bool) Option {
	return func(o *Options) { o.VerifyAfterEachPass = on }
}

// WithOptLevel selects a named pipeline preset.
func WithOptLevel(level OptLevel) Option { return func(o *Options) { o.OptLevel = level } }

// New builds Options from defaults (bounds checks and canonicalize on,
// verify-after-each-pass off, O1) overridden by each opt in order.
func New(opts ...Option) Options {
	o := Options{BoundsChecks: true, Canonicalize: true, OptLevel: O1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// presets maps an OptLevel to the ordered pass names passmgr.NewPipeline
// resolves against the registry every transform registers itself into.
// O1's ordering runs mem2reg before the dataflow/peephole passes that
// benefit from operating on registers rather than stack slots, and
// loopsimplify before licm, which requires the canonical preheader
// shape loopsimplify produces.
var presets = map[OptLevel][]string{
	O0: {},
	O1: {"mem2reg", "sccp", "constfold", "peephole", "dce", "simplifycfg", "loopsimplify", "licm"},
}

// Pipeline resolves o.OptLevel's preset into a runnable pipeline.
func (o Options) Pipeline() (*passmgr.Pipeline, error) {
	names, ok := presets[o.OptLevel]
	if !ok {
		return nil, fmt.Errorf("config: unknown opt level %q", o.OptLevel)
	}
	return passmgr.NewPipeline(names...)
}

// PipelineOptions projects the subset of Options passmgr.Pipeline.Run
// consumes.
func (o Options) PipelineOptions() passmgr.Options {
	return passmgr.Options{VerifyAfterEachPass: o.VerifyAfterEachPass}
}

// file is the on-disk YAML shape: a named map of presets, each an
// ordered list of registered pass names, plus the scalar option
// defaults. A file may override only the presets it names; any level
// config.Pipeline is asked to resolve but this file doesn't define
// falls through to the built-in presets map above.
type file struct {
	BoundsChecks        *bool               `yaml:"boundsChecks,omitempty"`
	Canonicalize        *bool               `yaml:"canonicalize,omitempty"`
	VerifyAfterEachPass *bool               `yaml:"verifyAfterEachPass,omitempty"`
	OptLevel            string              `yaml:"optLevel,omitempty"`
	Pipelines           map[string][]string `yaml:"pipelines,omitempty"`
}

// Load reads a YAML config file at path, applying it over New()'s
// defaults and registering any custom pipeline presets it declares
// (which then become selectable via WithOptLevel).
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Options{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	o := New()
	if f.BoundsChecks != nil {
		o.BoundsChecks = *f.BoundsChecks
	}
	if f.Canonicalize != nil {
		o.Canonicalize = *f.Canonicalize
	}
	if f.VerifyAfterEachPass != nil {
		o.VerifyAfterEachPass = *f.VerifyAfterEachPass
	}
	if f.OptLevel != "" {
		o.OptLevel = OptLevel(f.OptLevel)
	}
	for name, steps := range f.Pipelines {
		presets[OptLevel(name)] = steps
	}
	return o, nil
}
