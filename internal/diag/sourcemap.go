package diag

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/viper-lang/viper/internal/il"
)

// SourceLoc is re-exported from il so callers needn't import both
// packages to thread a location through. il defines the struct because
// every Instr carries one; diag defines how locations are registered,
// resolved, and rendered.
type SourceLoc = il.SourceLoc

// SourceManager assigns stable file ids to normalized paths and retains
// source text so diagnostics can render caret-annotated snippets
// (spec §4.4). It is safe for concurrent use.
type SourceManager struct {
	mu    sync.RWMutex
	paths []string // index 0 unused; fileID 0 means "unregistered"
	lines [][]string
}

// NewSourceManager returns an empty manager; file id 0 is reserved for
// unregistered locations.
func NewSourceManager() *SourceManager {
	return &SourceManager{paths: []string{""}, lines: [][]string{nil}}
}

// AddFile registers `path` with `text` as its source and returns a
// stable file id. Re-registering the same normalized path returns the
// same id.
func (sm *SourceManager) AddFile(path, text string) uint32 {
	norm := normalizePath(path)
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for i, p := range sm.paths {
		if p == norm {
			return uint32(i)
		}
	}
	sm.paths = append(sm.paths, norm)
	sm.lines = append(sm.lines, splitLines(text))
	return uint32(len(sm.paths) - 1)
}

// AddFileFromDisk reads path and registers its contents.
func (sm *SourceManager) AddFileFromDisk(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var sb strings.Builder
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	first := true
	for sc.Scan() {
		if !first {
			sb.WriteByte('\n')
		}
		sb.WriteString(sc.Text())
		first = false
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return sm.AddFile(path, sb.String()), nil
}

// Path returns the normalized path registered under id, or "" if
// unregistered.
func (sm *SourceManager) Path(id uint32) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if int(id) >= len(sm.paths) {
		return ""
	}
	return sm.paths[id]
}

// Line returns the 1-indexed source line `line` of file `id`, or "" if
// unavailable.
func (sm *SourceManager) Line(id uint32, line uint32) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if int(id) >= len(sm.lines) || line == 0 || int(line) > len(sm.lines[id]) {
		return ""
	}
	return sm.lines[id][line-1]
}

// Snippet renders a single-line caret-annotated snippet for loc, or ""
// if loc is unregistered or out of range.
func (sm *SourceManager) Snippet(loc SourceLoc) string {
	line := sm.Line(loc.FileID, loc.Line)
	if line == "" {
		return ""
	}
	col := loc.Col
	if col == 0 {
		col = 1
	}
	pad := strings.Repeat(" ", int(col-1))
	return line + "\n" + pad + "^"
}

func normalizePath(p string) string {
	return filepathToSlash(p)
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
