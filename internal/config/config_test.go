package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	// Blank-imported so the O1 preset's pass names resolve against the
	// registry transform's init() functions populate; production
	// callers (cmd/ilc) get this for free by importing transform
	// directly to run the pipeline.
	_ "github.com/viper-lang/viper/internal/transform"
)

func TestNewAppliesDefaults(t *testing.T) {
	o := New()
	require.True(t, o.BoundsChecks)
	require.True(t, o.Canonicalize)
	require.False(t, o.VerifyAfterEachPass)
	require.Equal(t, O1, o.OptLevel)
}

func TestOptionsOverrideDefaults(t *testing.T) {
	o := New(WithBoundsChecks(false), WithOptLevel(O0), WithVerifyAfterEachPass(true))
	require.False(t, o.BoundsChecks)
	require.Equal(t, O0, o.OptLevel)
	require.True(t, o.VerifyAfterEachPass)
}

func TestO0PipelineIsEmpty(t *testing.T) {
	o := New(WithOptLevel(O0))
	p, err := o.Pipeline()
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestO1PipelineResolvesRegisteredPasses(t *testing.T) {
	o := New(WithOptLevel(O1))
	p, err := o.Pipeline()
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestUnknownOptLevelFails(t *testing.T) {
	o := New(WithOptLevel("O9"))
	_, err := o.Pipeline()
	require.Error(t, err)
}

func TestLoadYAMLOverridesDefaultsAndAddsPreset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viper.yaml")
	content := `
boundsChecks: false
optLevel: O2
verifyAfterEachPass: true
pipelines:
  O2:
    - mem2reg
    - dce
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	require.False(t, o.BoundsChecks)
	require.True(t, o.VerifyAfterEachPass)
	require.Equal(t, OptLevel("O2"), o.OptLevel)

	p, err := o.Pipeline()
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
