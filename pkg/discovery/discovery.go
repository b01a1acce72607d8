package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/openfroyo/ceres/pkg/engine"
)

const (
	// MakefileName marks a directory as a resource candidate.
	MakefileName = "Makefile"

	// ResourcesSegment must appear in the path of a resource directory.
	ResourcesSegment = "ansible-setup-package/resources"

	// ProjectManifestName must exist next to the resource directories of a project.
	ProjectManifestName = "project.cfg"
)

// ignoreFileNames are read in every walked directory.
var ignoreFileNames = []string{".gitignore", ".ignore"}

// FindAsps walks baseDir and returns the directories of all deployable resource units.
//
// A directory is returned when it contains a Makefile, its path contains
// "ansible-setup-package/resources", and the directory holding it contains a
// project.cfg file. Hidden entries and entries excluded by .gitignore or .ignore
// files are skipped; a rule in a deeper ignore file overrides the rules of its
// ancestors. A symlinked baseDir is followed, and returned paths stay below
// baseDir. Any error while walking aborts the scan. Results are in walk order.
func FindAsps(baseDir string) ([]string, error) {
	root, err := filepath.EvalSymlinks(baseDir)
	if err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToFindAsps, "")
	}
	w := &walker{base: root}

	var asps []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if w.skip(path, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.enter(path)
		}

		if d.Name() != MakefileName {
			return nil
		}
		candidate := filepath.Dir(path)
		if !strings.Contains(filepath.ToSlash(candidate), ResourcesSegment) {
			return nil
		}
		if !hasProjectManifest(candidate) {
			log.Debug().Str("path", candidate).Msg("Skipping resource without project manifest")
			return nil
		}

		rel, err := filepath.Rel(root, candidate)
		if err != nil {
			return err
		}
		asps = append(asps, filepath.Join(baseDir, rel))
		return nil
	})
	if err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToFindAsps, "")
	}

	return asps, nil
}

// hasProjectManifest reports whether the directory containing the resource
// directory dir has a regular project.cfg file.
func hasProjectManifest(dir string) bool {
	info, err := os.Stat(filepath.Join(filepath.Dir(dir), ProjectManifestName))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// scope holds the ignore rules read from one directory, anchored at the walk root.
type scope struct {
	dir   string
	lines []string
}

// walker tracks the ignore rules that apply to the current walk position.
// All active scopes are compiled into one matcher, outermost first, so the last
// matching rule wins across files the way git resolves nested ignore files.
type walker struct {
	base    string
	scopes  []scope
	matcher *ignore.GitIgnore
}

// skip reports whether path is hidden or ignored.
func (w *walker) skip(path string, d fs.DirEntry) bool {
	if path == w.base {
		return false
	}
	if strings.HasPrefix(d.Name(), ".") {
		return true
	}

	w.leave(path)
	if w.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(w.base, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if d.IsDir() {
		return w.matcher.MatchesPath(rel + "/")
	}
	return w.matcher.MatchesPath(rel)
}

// enter loads the ignore files of directory dir.
func (w *walker) enter(dir string) error {
	rel, err := filepath.Rel(w.base, dir)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)

	for _, name := range ignoreFileNames {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
		s := scope{dir: dir}
		for _, line := range strings.Split(string(data), "\n") {
			s.lines = append(s.lines, anchorPattern(rel, line))
		}
		w.scopes = append(w.scopes, s)
		w.compile()
	}
	return nil
}

// leave drops the scopes of directories that do not contain path.
func (w *walker) leave(path string) {
	dropped := false
	for len(w.scopes) > 0 {
		top := w.scopes[len(w.scopes)-1]
		if isWithin(top.dir, path) {
			break
		}
		w.scopes = w.scopes[:len(w.scopes)-1]
		dropped = true
	}
	if dropped {
		w.compile()
	}
}

func (w *walker) compile() {
	if len(w.scopes) == 0 {
		w.matcher = nil
		return
	}
	var lines []string
	for _, s := range w.scopes {
		lines = append(lines, s.lines...)
	}
	w.matcher = ignore.CompileIgnoreLines(lines...)
}

// anchorPattern rewrites an ignore pattern read in directory rel so that it only
// applies below that directory when matched against root-relative paths.
func anchorPattern(rel, line string) string {
	line = strings.TrimRight(line, "\r")
	p := strings.TrimSpace(line)
	if rel == "." || p == "" || strings.HasPrefix(p, "#") {
		return line
	}

	negate := ""
	if strings.HasPrefix(p, "!") {
		negate, p = "!", p[1:]
	}
	rel = literalPath.Replace(rel)
	if strings.HasPrefix(p, "/") {
		return negate + "/" + rel + p
	}
	return negate + "/" + rel + "/**/" + p
}

// literalPath escapes the characters of a directory name that the ignore matcher
// would otherwise read as regular expression syntax.
var literalPath = strings.NewReplacer(
	`\`, `\\`, "+", `\+`, "(", `\(`, ")", `\)`, "[", `\[`, "]", `\]`,
	"{", `\{`, "}", `\}`, "^", `\^`, "$", `\$`, "|", `\|`,
)

func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
