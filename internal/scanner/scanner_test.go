package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path string
		want analysis.Language
		ok   bool
	}{
		{"app.js", analysis.LanguageJavaScript, true},
		{"App.JSX", analysis.LanguageJavaScript, true},
		{"src/index.ts", analysis.LanguageTypeScript, true},
		{"view.tsx", analysis.LanguageTypeScript, true},
		{"main.py", analysis.LanguagePython, true},
		{"main.go", "", false},
		{"Makefile", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := DetectLanguage(tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDiscoverSources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.js"), "const a = 1;")
	writeFile(t, filepath.Join(root, "lib", "b.py"), "x = 1")
	writeFile(t, filepath.Join(root, "lib", "notes.md"), "# notes")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "x")
	writeFile(t, filepath.Join(root, "vendor", "v.ts"), "x")
	writeFile(t, filepath.Join(root, ".git", "hook.js"), "x")
	writeFile(t, filepath.Join(root, ".hidden.js"), "x")

	sources, err := DiscoverSources([]string{root})
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, filepath.Join(root, "a.js"), sources[0].Path)
	assert.Equal(t, analysis.LanguageJavaScript, sources[0].Language)
	assert.Equal(t, int64(len("const a = 1;")), sources[0].Size)
	assert.Equal(t, filepath.Join(root, "lib", "b.py"), sources[1].Path)
	assert.Equal(t, analysis.LanguagePython, sources[1].Language)
}

func TestDiscoverSources_FilesAndDuplicates(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.ts")
	writeFile(t, file, "let a = 1;")

	sources, err := DiscoverSources([]string{file, root, filepath.Join(root, "missing")})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, analysis.LanguageTypeScript, sources[0].Language)
}

func TestDiscoverSources_UnsupportedFileArgument(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "README.md")
	writeFile(t, file, "# hi")

	sources, err := DiscoverSources([]string{file})
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func report(errors, warnings, maintainability int) FileReport {
	a := analysis.CodeAnalysis{Complexity: analysis.ComplexityMetrics{Maintainability: maintainability}}
	for i := 0; i < errors; i++ {
		a.Errors = append(a.Errors, analysis.AnalysisResult{Severity: analysis.SeverityError})
	}
	for i := 0; i < warnings; i++ {
		a.Warnings = append(a.Warnings, analysis.AnalysisResult{Severity: analysis.SeverityWarning})
	}
	return FileReport{Analysis: a}
}

func TestComputeHealth(t *testing.T) {
	tests := []struct {
		name    string
		reports []FileReport
		want    float64
	}{
		{"empty", nil, 0},
		{"perfect", []FileReport{report(0, 0, 100)}, 100},
		{"errors everywhere", []FileReport{report(1, 0, 100)}, 75},
		{"warning heavy", []FileReport{report(0, 10, 100)}, 85},
		{"mixed", []FileReport{report(0, 0, 100), report(2, 5, 50)}, 65},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, ComputeHealth(tc.reports).Score, 0.001)
		})
	}
}

func TestComputeHealth_Totals(t *testing.T) {
	h := ComputeHealth([]FileReport{report(0, 1, 90), report(2, 3, 70)})
	assert.Equal(t, Health{
		Files:           2,
		ErrorFreeFiles:  1,
		Errors:          2,
		Warnings:        4,
		Maintainability: 80,
		Score:           h.Score,
	}, h)
}

func TestSkipDir(t *testing.T) {
	assert.True(t, SkipDir(".git"))
	assert.True(t, SkipDir("node_modules"))
	assert.True(t, SkipDir("__pycache__"))
	assert.False(t, SkipDir("src"))
}
