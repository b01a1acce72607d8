package discovery

import (
	"path/filepath"
	"strings"

	"github.com/openfroyo/ceres/pkg/engine"
)

// AspFromPath parses a base-dir relative resource directory path into an Asp.
//
// The path must consist of exactly four normal components
// "<project>/ansible-setup-package/resources/<resource>". The two middle
// components are required but not checked; FindAsps already did. Absolute paths
// and paths containing "." or ".." components fail.
func AspFromPath(path string) (engine.Asp, error) {
	fail := engine.NewError(engine.KindFailedParseAspFromPath, path)

	if path == "" || filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return engine.Asp{}, fail
	}

	var components []string
	for _, c := range strings.Split(filepath.ToSlash(path), "/") {
		switch c {
		case "":
			continue
		case ".", "..":
			return engine.Asp{}, fail
		}
		components = append(components, c)
	}
	if len(components) != 4 {
		return engine.Asp{}, fail
	}

	return engine.Asp{
		Project:  components[0],
		Resource: components[3],
	}, nil
}

// AspsFromPaths parses every resource directory below baseDir into an Asp.
// Paths that are not below baseDir are dropped.
func AspsFromPaths(baseDir string, paths []string) ([]engine.Asp, error) {
	asps := make([]engine.Asp, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(baseDir, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		asp, err := AspFromPath(rel)
		if err != nil {
			return nil, err
		}
		asps = append(asps, asp)
	}
	return asps, nil
}
