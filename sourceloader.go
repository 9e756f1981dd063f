package scribec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Env is the capability the orchestrator uses to look up HOME/PATH
// when resolving `@import` paths (spec.md §1: "environment lookup ...
// injected as the ... Env capability", §6's "Environment" list).
type Env interface {
	Getenv(key string) string
}

// OSEnv is the production Env backed by the process's real
// environment.
type OSEnv struct{}

func (OSEnv) Getenv(key string) string { return os.Getenv(key) }

// SourceLoader is the capability the orchestrator uses for
// filesystem I/O (spec.md §1: "filesystem I/O ... injected as the
// SourceLoader ... capability"). GetPath resolves an `@import`
// argument against the importing module's own path into a stable key
// the orchestrator dedupes on; GetContent reads the bytes at that
// key.
//
// Grounded on the teacher's RelativeImportLoader/InMemoryImportLoader
// (grammar_import_loaders.go), adapted from langlang's single
// "must start with ./" rule to spec.md §6's full resolution order:
// relative, `~`-prefixed, and bare (searched in an install lib dir),
// each gaining a `.sc` suffix when missing.
type SourceLoader interface {
	GetPath(importPath, parentPath string) (string, error)
	GetContent(path string) ([]byte, error)
}

func withScSuffix(path string) string {
	if strings.HasSuffix(path, ".sc") {
		return path
	}
	return path + ".sc"
}

// resolveImportPath implements spec.md §6's "Module import paths"
// rule in isolation from any particular backing store, so both
// FileSourceLoader and InMemorySourceLoader (tests) share it.
func resolveImportPath(importPath, parentPath string, env Env, libDir string) (string, error) {
	if importPath == parentPath {
		return importPath, nil // root node: the main module importing itself never happens, but splice re-entry does pass this through unchanged
	}
	switch {
	case strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../"):
		return withScSuffix(filepath.Join(filepath.Dir(parentPath), importPath)), nil
	case strings.HasPrefix(importPath, "~"):
		home := env.Getenv("HOME")
		if home == "" {
			return "", fmt.Errorf("cannot resolve '%s': HOME is not set", importPath)
		}
		return withScSuffix(filepath.Join(home, strings.TrimPrefix(importPath, "~"))), nil
	case filepath.IsAbs(importPath):
		return withScSuffix(importPath), nil
	default:
		return withScSuffix(filepath.Join(libDir, importPath)), nil
	}
}

// FileSourceLoader is the production SourceLoader: real files under
// an install-relative library directory (spec.md §6:
// "<install>/lib/<lang>/").
type FileSourceLoader struct {
	LibDir string
	Env    Env
}

// NewFileSourceLoader sets LibDir to "<installDir>/lib/scribe" for the
// given installDir and Env to OSEnv.
func NewFileSourceLoader(installDir string) *FileSourceLoader {
	return &FileSourceLoader{LibDir: filepath.Join(installDir, "lib", "scribe"), Env: OSEnv{}}
}

func (l *FileSourceLoader) GetPath(importPath, parentPath string) (string, error) {
	return resolveImportPath(importPath, parentPath, l.Env, l.LibDir)
}

func (l *FileSourceLoader) GetContent(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// InMemorySourceLoader backs unit and cross-module tests: a virtual
// filesystem of path -> source, with a fake library directory and
// HOME so the relative/`~`/bare resolution rules are exercised
// without touching disk (see orchestrator_test.go).
type InMemorySourceLoader struct {
	files  map[string][]byte
	libDir string
	env    Env
}

// NewInMemorySourceLoader returns a loader rooted at libDir for bare
// imports, using env for `~` expansion.
func NewInMemorySourceLoader(libDir string, env Env) *InMemorySourceLoader {
	if env == nil {
		env = fakeEnv{}
	}
	return &InMemorySourceLoader{files: map[string][]byte{}, libDir: libDir, env: env}
}

// Add registers path's content for later GetContent lookups.
func (l *InMemorySourceLoader) Add(path string, content []byte) {
	l.files[path] = content
}

func (l *InMemorySourceLoader) GetPath(importPath, parentPath string) (string, error) {
	return resolveImportPath(importPath, parentPath, l.env, l.libDir)
}

func (l *InMemorySourceLoader) GetContent(path string) ([]byte, error) {
	b, ok := l.files[path]
	if !ok {
		return nil, fmt.Errorf("import not found: %s", path)
	}
	return b, nil
}

// fakeEnv is the default Env for tests that don't care about `~`
// expansion.
type fakeEnv struct{}

func (fakeEnv) Getenv(key string) string {
	if key == "HOME" {
		return "/home/test"
	}
	return ""
}
