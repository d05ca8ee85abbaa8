package diag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceManagerSnippet(t *testing.T) {
	sm := NewSourceManager()
	id := sm.AddFile("a.il", "il 0.1.2\nfunc @main() -> i64 {\nentry:\n  bogus\n}\n")
	loc := SourceLoc{FileID: id, Line: 4, Col: 3}
	snippet := sm.Snippet(loc)
	require.Contains(t, snippet, "bogus")
	require.Contains(t, snippet, "^")
}

func TestExpected(t *testing.T) {
	ok := Ok(42)
	v, good := ok.Unwrap()
	require.True(t, good)
	require.Equal(t, 42, v)

	bad := Err[int](New(PAR001, "boom", SourceLoc{}))
	_, good2 := bad.Unwrap()
	require.False(t, good2)
	require.Equal(t, PAR001, bad.Diag().Code)
}

func TestDiagSink(t *testing.T) {
	sink := NewDiagSink()
	sink.Add(New(STR001, "dup", SourceLoc{}))
	require.True(t, sink.HasErrors())
	require.Equal(t, 1, sink.Len())
}
