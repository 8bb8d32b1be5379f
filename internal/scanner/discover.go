package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// extensions maps file extensions to analysis languages.
var extensions = map[string]analysis.Language{
	".js":  analysis.LanguageJavaScript,
	".jsx": analysis.LanguageJavaScript,
	".mjs": analysis.LanguageJavaScript,
	".cjs": analysis.LanguageJavaScript,
	".ts":  analysis.LanguageTypeScript,
	".tsx": analysis.LanguageTypeScript,
	".mts": analysis.LanguageTypeScript,
	".py":  analysis.LanguagePython,
	".pyw": analysis.LanguagePython,
}

// skippedDirs are never descended into.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	"venv":         true,
}

// SkipDir reports whether a directory with this name is never scanned.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") || skippedDirs[name]
}

// DetectLanguage infers the language of a file from its extension.
// It returns false for unsupported files.
func DetectLanguage(path string) (analysis.Language, bool) {
	lang, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// DiscoverSources expands paths into the supported source files they name.
// Files are included when their extension is supported; directories are
// walked recursively, skipping hidden and dependency directories. Missing
// paths are ignored. The result is sorted by path and deduplicated.
func DiscoverSources(paths []string) ([]Source, error) {
	var sources []Source
	seen := make(map[string]bool)

	add := func(path string, size int64) {
		lang, ok := DetectLanguage(path)
		if !ok {
			return
		}
		key := path
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
		if seen[key] {
			return
		}
		seen[key] = true
		sources = append(sources, Source{Path: path, Language: lang, Size: size})
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !info.IsDir() {
			add(root, info.Size())
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != root && SkipDir(name) {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			add(path, fi.Size())
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Path < sources[j].Path
	})
	return sources, nil
}
