package usecase

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrPathOutsideDataDir is returned when a CSV path escapes the data directory.
	ErrPathOutsideDataDir = errors.New("csv path outside data directory")
	// ErrCSVSourceDisabled is returned when no data directory is configured.
	ErrCSVSourceDisabled = errors.New("csv retraining is disabled")
)

// ResolveDataPath resolves p against dir and returns the cleaned absolute
// path. Relative paths are joined to dir; absolute paths must already lie
// inside it. Symlinks are followed for paths that exist.
func ResolveDataPath(dir, p string) (string, error) {
	if dir == "" {
		return "", ErrCSVSourceDisabled
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("data directory %q: %w", dir, err)
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(root, target)
	}
	target = filepath.Clean(target)
	if !within(root, target) {
		return "", fmt.Errorf("%q: %w", p, ErrPathOutsideDataDir)
	}

	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		realRoot, rerr := filepath.EvalSymlinks(root)
		if rerr != nil {
			realRoot = root
		}
		if !within(realRoot, resolved) {
			return "", fmt.Errorf("%q: %w", p, ErrPathOutsideDataDir)
		}
	}
	return target, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
