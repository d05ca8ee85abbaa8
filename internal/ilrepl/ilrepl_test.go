package ilrepl

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleModule = `il 0.1
func @main() -> i64 {
entry:
  %0 = add 1, 2
  ret %0
}
`

func TestLoadPrintVerifyRoundTrip(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.cmdLoad(sampleModule, &out)
	require.Contains(t, out.String(), "loaded: 1 function(s), 0 extern(s)")

	out.Reset()
	r.HandleCommand(":verify", &out)
	require.Contains(t, out.String(), "ok: module verifies")

	out.Reset()
	r.HandleCommand(":print", &out)
	require.Contains(t, out.String(), "func @main")
}

func TestLoadWithSyntaxErrorReportsParseError(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.cmdLoad("not valid il", &out)
	require.Contains(t, out.String(), "parse error")
	require.Nil(t, r.mod)
}

func TestVerifyWithoutLoadWarns(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.HandleCommand(":verify", &out)
	require.Contains(t, out.String(), "no module loaded")
}

func TestOptCommandReportsAndSetsLevel(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.HandleCommand(":opt", &out)
	require.Contains(t, out.String(), "current level: O1")

	out.Reset()
	r.HandleCommand(":opt O0", &out)
	require.Contains(t, out.String(), "level set to O0")

	out.Reset()
	r.HandleCommand(":opt bogus", &out)
	require.Contains(t, out.String(), "unknown level")
}

func TestPassesListsRegisteredPasses(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.HandleCommand(":passes", &out)
	got := out.String()
	for _, name := range []string{"constfold", "dce", "mem2reg", "sccp"} {
		require.Contains(t, got, name)
	}
}

func TestRunAppliesPipelineToFixpoint(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.cmdLoad(sampleModule, &out)
	out.Reset()

	r.HandleCommand(":run", &out)
	require.Contains(t, out.String(), "done: changed=")

	out.Reset()
	r.HandleCommand(":print", &out)
	require.Contains(t, out.String(), "ret 3")
}

func TestUnknownCommandReportsError(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.HandleCommand(":bogus", &out)
	require.Contains(t, out.String(), "unknown command")
}

func TestResetClearsLoadedModule(t *testing.T) {
	var out bytes.Buffer
	r := New()

	r.cmdLoad(sampleModule, &out)
	require.NotNil(t, r.mod)

	out.Reset()
	r.HandleCommand(":reset", &out)
	require.Contains(t, out.String(), "module cleared")
	require.Nil(t, r.mod)
}
