// Package sweep finds source files under a set of directories that no
// execution record mentioned.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tturner/pccov/internal/coverage"
	"github.com/tturner/pccov/internal/logging"
	"github.com/tturner/pccov/internal/resolve"
)

var errNotDir = errors.New("not a directory")

// DefaultInclude matches script sources.
var DefaultInclude = []string{"*.{js,jsm}"}

// Options configures a Sweeper.
type Options struct {
	// Include patterns select files; empty means DefaultInclude.
	Include []string
	// Exclude patterns drop files selected by Include.
	Exclude []string
}

// Canonicalizer maps a path to its canonical absolute form.
// *resolve.Resolver implements it.
type Canonicalizer interface {
	Canonical(path string) (string, bool)
	FileSystem() resolve.FileSystem
}

// VisitFunc receives each newly claimed file and its empty entry.
type VisitFunc func(path string, entry *coverage.FileAggregate)

// Result summarises one Sweep.
type Result struct {
	Matched int
	Claimed int
	Known   int
	Errors  int
}

// Sweeper walks directories and claims unseen source files.
type Sweeper struct {
	paths   Canonicalizer
	fs      resolve.FileSystem
	include []string
	exclude []string
	logger  *logging.Logger
}

// New creates a Sweeper. Patterns are checked up front.
func New(paths Canonicalizer, opts Options, logger *logging.Logger) (*Sweeper, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, p := range append(append([]string{}, include...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid source pattern %q", p)
		}
	}
	return &Sweeper{
		paths:   paths,
		fs:      paths.FileSystem(),
		include: include,
		exclude: opts.Exclude,
		logger:  logger,
	}, nil
}

// Sweep walks every root in full depth. Each matching file that is not in
// agg yet is claimed and passed to visit; files already present are left
// alone. Traversal problems are logged and counted and the walk continues.
// Only cancellation of ctx stops it early.
func (s *Sweeper) Sweep(ctx context.Context, roots []string, agg *coverage.Aggregate, visit VisitFunc) (Result, error) {
	var res Result
	visited := make(map[string]struct{})

	for _, root := range roots {
		dir, err := s.canonicalDir(root)
		if err != nil {
			s.logger.Warn("Skipping sweep root %s: %v", root, err)
			res.Errors++
			continue
		}
		if err := s.walk(ctx, dir, dir, agg, visit, visited, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Sweeper) canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	resolved, err := s.fs.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := s.fs.Stat(resolved)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", errNotDir
	}
	return resolved, nil
}

func (s *Sweeper) walk(ctx context.Context, root, dir string, agg *coverage.Aggregate, visit VisitFunc, visited map[string]struct{}, res *Result) error {
	if _, ok := visited[dir]; ok {
		return nil
	}
	visited[dir] = struct{}{}

	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		s.logger.Warn("Cannot read directory %s: %v", dir, err)
		res.Errors++
		return nil
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(dir, e.Name())

		mode := e.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := s.fs.Stat(p)
			if err != nil {
				s.logger.Warn("Broken symlink %s: %v", p, err)
				res.Errors++
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			sub, err := s.fs.EvalSymlinks(p)
			if err != nil {
				s.logger.Warn("Cannot resolve directory %s: %v", p, err)
				res.Errors++
				continue
			}
			if err := s.walk(ctx, root, sub, agg, visit, visited, res); err != nil {
				return err
			}
		case mode.IsRegular():
			canon, ok := s.paths.Canonical(p)
			if !ok {
				s.logger.Warn("Cannot canonicalise %s", p)
				res.Errors++
				continue
			}
			if !s.selects(relPath(root, p), filepath.Base(canon)) {
				continue
			}
			res.Matched++
			s.claim(canon, agg, visit, res)
		}
	}
	return nil
}

func (s *Sweeper) claim(canon string, agg *coverage.Aggregate, visit VisitFunc, res *Result) {
	entry, ok := agg.Claim(canon)
	if !ok {
		res.Known++
		return
	}
	res.Claimed++
	s.logger.Debug("sweep claimed %s", canon)
	if visit != nil {
		visit(canon, entry)
	}
}

// Match reports whether file, found under root, is selected by the include
// patterns and not dropped by an exclude pattern. Patterns without a slash
// match the base name; others match the slash-separated path below root.
// During a sweep a symlinked file is matched by its target's name.
func (s *Sweeper) Match(root, file string) bool {
	return s.selects(relPath(root, file), filepath.Base(file))
}

// selects matches rel, with its last element replaced by name.
func (s *Sweeper) selects(rel, name string) bool {
	rel = path.Join(path.Dir(rel), name)
	return matchAny(s.include, name, rel) && !matchAny(s.exclude, name, rel)
}

func relPath(root, file string) string {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		rel = file
	}
	return filepath.ToSlash(rel)
}

func matchAny(patterns []string, name, rel string) bool {
	for _, p := range patterns {
		subject := name
		if strings.Contains(p, "/") {
			subject = rel
		}
		if ok, _ := doublestar.Match(p, subject); ok {
			return true
		}
	}
	return false
}
