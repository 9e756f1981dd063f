package scribec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveImportPath(t *testing.T) {
	tests := []struct {
		name       string
		importPath string
		parentPath string
		expected   string
		expectErr  bool
	}{
		{
			name:       "relative import in same directory",
			importPath: "./foo",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/proj/dir/foo.sc",
		},
		{
			name:       "relative import already carrying .sc",
			importPath: "./foo.sc",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/proj/dir/foo.sc",
		},
		{
			name:       "relative import into nested directory",
			importPath: "./sub/other",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/proj/dir/sub/other.sc",
		},
		{
			name:       "parent directory traversal",
			importPath: "../sibling/other",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/proj/sibling/other.sc",
		},
		{
			name:       "home-relative import",
			importPath: "~/scribe/util",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/home/test/scribe/util.sc",
		},
		{
			name:       "bare import searched in the library directory",
			importPath: "std/io",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/usr/lib/scribe/std/io.sc",
		},
		{
			name:       "root node handling: import path equals parent path",
			importPath: "/proj/dir/bar.sc",
			parentPath: "/proj/dir/bar.sc",
			expected:   "/proj/dir/bar.sc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := resolveImportPath(tt.importPath, tt.parentPath, fakeEnv{}, "/usr/lib/scribe")
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestInMemorySourceLoaderRoundTrip(t *testing.T) {
	l := NewInMemorySourceLoader("/usr/lib/scribe", nil)
	l.Add("/proj/std/io.sc", []byte("let println = fn(s: *const i8) {};"))

	path, err := l.GetPath("./io", "/proj/main.sc")
	require.NoError(t, err)
	assert.Equal(t, "/proj/io.sc", path)

	_, err = l.GetContent("/proj/io.sc")
	require.Error(t, err, "nothing registered at that exact path")

	content, err := l.GetContent("/proj/std/io.sc")
	require.NoError(t, err)
	assert.Contains(t, string(content), "println")
}
