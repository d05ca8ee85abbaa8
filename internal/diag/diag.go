package diag

import (
	"encoding/json"
	"fmt"
)

// Severity classifies a Diag.
type Severity uint8

const (
	Note Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Diag is a single diagnostic: severity, message, code, location, and
// optional span length (spec §4.4, §7). Every user-visible message
// includes severity, code (if assigned), file/line/column, and a
// single-line snippet with a caret where possible.
type Diag struct {
	Severity Severity       `json:"severity"`
	Code     string         `json:"code,omitempty"`
	Message  string         `json:"message"`
	Loc      SourceLoc      `json:"loc"`
	SpanLen  int            `json:"spanLen,omitempty"`
	Snippet  string         `json:"snippet,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Error implements the error interface so a Diag can be returned
// anywhere a plain error is expected (e.g. wrapped into Expected[T]).
func (d *Diag) Error() string {
	if d.Code != "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// ToJSON renders d as deterministic JSON for tool consumption.
func (d *Diag) ToJSON(indent bool) (string, error) {
	var (
		b   []byte
		err error
	)
	if indent {
		b, err = json.MarshalIndent(d, "", "  ")
	} else {
		b, err = json.Marshal(d)
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// New builds an error-severity Diag with a code and message.
func New(code, message string, loc SourceLoc) *Diag {
	return &Diag{Severity: Error, Code: code, Message: message, Loc: loc}
}

// Newf builds an error-severity Diag with a formatted message.
func Newf(code string, loc SourceLoc, format string, args ...any) *Diag {
	return New(code, fmt.Sprintf(format, args...), loc)
}

// WithSnippet attaches a rendered source snippet, typically produced by
// SourceManager.Snippet, and returns d for chaining.
func (d *Diag) WithSnippet(snippet string) *Diag {
	d.Snippet = snippet
	return d
}

// WithData attaches structured key/value context and returns d for
// chaining.
func (d *Diag) WithData(key string, value any) *Diag {
	if d.Data == nil {
		d.Data = map[string]any{}
	}
	d.Data[key] = value
	return d
}
