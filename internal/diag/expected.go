package diag

// Expected is the core's fallible-result type (spec §4.4, §7): either
// a value or a diagnostic, threaded explicitly instead of panicking or
// relying on a sentinel error value.
type Expected[T any] struct {
	value T
	diag  *Diag
	ok    bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Expected[T] {
	return Expected[T]{value: v, ok: true}
}

// Err wraps a failing diagnostic.
func Err[T any](d *Diag) Expected[T] {
	return Expected[T]{diag: d, ok: false}
}

// IsOk reports whether e holds a value.
func (e Expected[T]) IsOk() bool { return e.ok }

// Unwrap returns the held value and true, or the zero value and false.
func (e Expected[T]) Unwrap() (T, bool) { return e.value, e.ok }

// Diag returns the held diagnostic, or nil if e holds a value.
func (e Expected[T]) Diag() *Diag { return e.diag }

// MapExpected transforms a held value, passing through a held diagnostic
// unchanged.
func MapExpected[T, U any](e Expected[T], f func(T) U) Expected[U] {
	if !e.ok {
		return Expected[U]{diag: e.diag}
	}
	return Ok(f(e.value))
}

// DiagSink collects multiple diagnostics for passes that continue past
// local errors (spec §4.4, §4.5.2 collecting mode).
type DiagSink struct {
	diags []*Diag
}

// NewDiagSink returns an empty sink.
func NewDiagSink() *DiagSink { return &DiagSink{} }

// Add appends a diagnostic.
func (s *DiagSink) Add(d *Diag) { s.diags = append(s.diags, d) }

// HasErrors reports whether any collected diagnostic is Error severity.
func (s *DiagSink) HasErrors() bool {
	for _, d := range s.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Diags returns all collected diagnostics in insertion order.
func (s *DiagSink) Diags() []*Diag { return s.diags }

// Len returns the number of collected diagnostics.
func (s *DiagSink) Len() int { return len(s.diags) }
