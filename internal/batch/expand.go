package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ManifestExtensions are the file extensions picked up from directories.
var ManifestExtensions = []string{".json", ".yaml", ".yml"}

// IsManifestFile reports whether path has a manifest extension.
func IsManifestFile(path string) bool {
	return slices.Contains(ManifestExtensions, strings.ToLower(filepath.Ext(path)))
}

// Expand turns file and directory arguments into a list of manifest paths.
// Directories contribute their manifest files in lexical order, descending
// into subdirectories when recursive is set. Plain file arguments are kept
// as given, even when they do not exist, so the validator reports them.
// Duplicates are dropped.
func Expand(args []string, recursive bool) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		clean := filepath.Clean(p)
		if !seen[clean] {
			seen[clean] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			add(arg)
			continue
		}

		if !recursive {
			entries, err := os.ReadDir(arg)
			if err != nil {
				return nil, fmt.Errorf("reading directory %s: %w", arg, err)
			}
			for _, e := range entries {
				if !e.IsDir() && IsManifestFile(e.Name()) {
					add(filepath.Join(arg, e.Name()))
				}
			}
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if IsManifestFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking directory %s: %w", arg, err)
		}
	}
	return out, nil
}
