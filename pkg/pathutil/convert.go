// Package pathutil converts between absolute and relative paths.
//
// The pipeline works with the paths it was given, which may be absolute once
// a config file resolved them. User-facing output should be relative to the
// working directory where possible.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path is already
// relative, or it lies outside root.
//
// Examples:
//   - ToRelative("/home/user/mod/build/reobf.jar", "/home/user/mod") → "build/reobf.jar"
//   - ToRelative("/opt/mappings/joined.srg", "/home/user/mod") → "/opt/mappings/joined.srg" (outside root)
//   - ToRelative("build/reobf.jar", "/home/user/mod") → "build/reobf.jar" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}

	// Outside the root the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// ToRelativeAll applies ToRelative to every path in place through pointers,
// skipping empty ones. It is meant for output boundaries such as reports.
func ToRelativeAll(rootDir string, paths ...*string) {
	for _, p := range paths {
		if p != nil && *p != "" {
			*p = ToRelative(*p, rootDir)
		}
	}
}
