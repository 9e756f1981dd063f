package scribec

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// ModuleID indexes into a ModuleLocRegistry's interned path table.
type ModuleID uint32

// ModuleLoc is a (moduleId, byteOffset) pair. It is the only location
// representation that survives into the typed tree; line/column are
// computed on demand from it by a ModuleLocRegistry.
type ModuleLoc struct {
	ModuleID ModuleID
	Offset   uint32
}

// LineCol is the human-facing line/column rendering of a ModuleLoc,
// 1-indexed on both axes.
type LineCol struct {
	Line   int
	Column int
}

func (lc LineCol) String() string {
	return fmt.Sprintf("%d:%d", lc.Line, lc.Column)
}

// moduleEntry holds one interned module's path and line index.
type moduleEntry struct {
	path      string
	lineIndex *lineIndex
	source    []byte
}

// ModuleLocRegistry interns source paths and lazily builds a per-module
// line index so that (moduleId, offset) pairs can be converted to
// line/column without the caller threading that state around.
type ModuleLocRegistry struct {
	modules []moduleEntry
	byPath  map[string]ModuleID
}

// NewModuleLocRegistry returns an empty registry.
func NewModuleLocRegistry() *ModuleLocRegistry {
	return &ModuleLocRegistry{byPath: map[string]ModuleID{}}
}

// Intern registers path/source under a stable ModuleID, reusing the
// existing id if the path was already interned.
func (r *ModuleLocRegistry) Intern(path string, source []byte) ModuleID {
	if id, ok := r.byPath[path]; ok {
		return id
	}
	id := ModuleID(len(r.modules))
	r.modules = append(r.modules, moduleEntry{path: path, lineIndex: newLineIndex(source), source: source})
	r.byPath[path] = id
	return id
}

// Path returns the interned path for id.
func (r *ModuleLocRegistry) Path(id ModuleID) string {
	if int(id) >= len(r.modules) {
		return "<unknown>"
	}
	return r.modules[id].path
}

// LineCol converts a ModuleLoc into 1-indexed line/column coordinates.
func (r *ModuleLocRegistry) LineCol(loc ModuleLoc) LineCol {
	if int(loc.ModuleID) >= len(r.modules) {
		return LineCol{Line: 1, Column: 1}
	}
	return r.modules[loc.ModuleID].lineIndex.at(int(loc.Offset))
}

// Format renders a ModuleLoc as "<path>:<line>:<col>", the prefix
// every diagnostic line uses (spec.md §6).
func (r *ModuleLocRegistry) Format(loc ModuleLoc) string {
	lc := r.LineCol(loc)
	return fmt.Sprintf("%s:%d:%d", r.Path(loc.ModuleID), lc.Line, lc.Column)
}

// lineIndex allows O(log lines) conversion from a byte cursor to a
// line/column pair. Construction is O(n) over the module source and
// is cached once per module in the registry.
type lineIndex struct {
	source    []byte
	lineStart []int
}

func newLineIndex(source []byte) *lineIndex {
	starts := make([]int, 1, 64)
	starts[0] = 0
	for i, b := range source {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{source: source, lineStart: starts}
}

func (li *lineIndex) at(cursor int) LineCol {
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(li.source) {
		cursor = len(li.source)
	}
	lineIdx := sort.Search(len(li.lineStart), func(i int) bool {
		return li.lineStart[i] > cursor
	}) - 1
	if lineIdx < 0 {
		lineIdx = 0
	}
	lineStart := li.lineStart[lineIdx]
	col := utf8.RuneCount(li.source[lineStart:cursor]) + 1
	return LineCol{Line: lineIdx + 1, Column: col}
}
