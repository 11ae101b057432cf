// Package resolve maps the file identifiers reported by the script engine
// (relative paths, URIs, "a -> b" redirect chains) to canonical source paths.
package resolve

import (
	"path/filepath"
	"strings"

	"github.com/tturner/pccov/internal/logging"
)

const (
	redirectDelim = " -> "
	fileScheme    = "file://"
)

// Status classifies a resolution result.
type Status int

const (
	// Resolved means Path is a canonical path of an existing file.
	Resolved Status = iota
	// Missing means the identifier maps to no file on disk.
	Missing
	// Opaque means the identifier could not be turned into a path and is
	// returned unchanged.
	Opaque
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case Missing:
		return "missing"
	case Opaque:
		return "opaque"
	}
	return "unknown"
}

// Resolution is the outcome of Lookup.
type Resolution struct {
	Path   string
	Status Status
}

// Resolver resolves raw identifiers against a base directory.
type Resolver struct {
	fs     FileSystem
	uris   URIResolver
	logger *logging.Logger
}

// New creates a Resolver. A nil uris resolver passes every URI through
// unchanged, so only file:// URIs resolve.
func New(fsys FileSystem, uris URIResolver, logger *logging.Logger) *Resolver {
	if fsys == nil {
		fsys = OS
	}
	if uris == nil {
		uris = NewMappingURIResolver(nil)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Resolver{fs: fsys, uris: uris, logger: logger}
}

// Resolve returns the canonical path for raw, the identifier unchanged when
// it cannot be interpreted, or "" when it names no file on disk.
func (r *Resolver) Resolve(raw, base string) string {
	return r.Lookup(raw, base).Path
}

// Lookup is Resolve with the outcome classified.
func (r *Resolver) Lookup(raw, base string) Resolution {
	file := raw
	if i := strings.LastIndex(file, redirectDelim); i >= 0 {
		file = file[i+len(redirectDelim):]
	}

	if strings.Contains(file, ":") {
		mapped, err := r.uris.ResolveURI(file)
		if err != nil {
			r.logger.WarnOnce("view:"+file, "Unable to view URL %s: %v", file, err)
			return Resolution{Path: file, Status: Opaque}
		}
		file = mapped
	}

	if strings.HasPrefix(file, fileScheme) {
		file = strings.TrimPrefix(file, fileScheme)
	} else if strings.Contains(file, ":") {
		r.logger.WarnOnce("scheme:"+file, "Unknown URL: %s", file)
		return Resolution{Path: file, Status: Opaque}
	}

	if !filepath.IsAbs(file) {
		file = filepath.Join(base, file)
	}

	path, ok := r.Canonical(file)
	if !ok {
		r.logger.Debug("no source for %s (from %s)", file, raw)
		return Resolution{Status: Missing}
	}
	return Resolution{Path: path, Status: Resolved}
}

// Canonical makes path absolute and resolves every symlink along it, so a
// file reached through a linked directory and through its real location
// gets the same key. It reports false when nothing exists at path.
func (r *Resolver) Canonical(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	if _, err := r.fs.Stat(abs); err != nil {
		return "", false
	}
	resolved, err := r.fs.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}

// FileSystem returns the file system the resolver reads.
func (r *Resolver) FileSystem() FileSystem {
	return r.fs
}
