package taproot

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/jward/taproot/internal/stubrepo"
)

// Project describes the analyzed source tree: where modules are found, how
// imports resolve, which interpreter version gates stub selection, and
// where the stub repository lives. Projects are cheap and immutable;
// analysis state lives in sessions.
type Project struct {
	rootDir    string
	searchPath []string
	stubRoot   string
	version    stubrepo.Version
	logger     *log.Logger
}

// Option configures a Project.
type Option func(*Project)

// WithSearchPath sets the module search path. The project root is always
// searched first.
func WithSearchPath(paths ...string) Option {
	return func(p *Project) {
		p.searchPath = append(p.searchPath, paths...)
	}
}

// WithStubRepository points the project at a version-gated stub repository
// root (see internal/stubrepo for the expected layout).
func WithStubRepository(dir string) Option {
	return func(p *Project) {
		p.stubRoot = dir
	}
}

// WithPythonVersion sets the analyzed interpreter version used for stub
// selection.
func WithPythonVersion(major, minor int) Option {
	return func(p *Project) {
		p.version = stubrepo.Version{Major: major, Minor: minor}
	}
}

// WithLogger installs a logger for engine trace output. The default logger
// discards everything.
func WithLogger(l *log.Logger) Option {
	return func(p *Project) {
		p.logger = l
	}
}

// NewProject creates a project rooted at rootDir.
func NewProject(rootDir string, opts ...Option) *Project {
	p := &Project{
		rootDir: rootDir,
		version: stubrepo.Version{Major: 3, Minor: 9},
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.searchPath = append([]string{rootDir}, p.searchPath...)
	return p
}

// SearchPath returns the effective module search path.
func (p *Project) SearchPath() []string {
	return p.searchPath
}

// importNamesFor derives the dotted import path of a source file from its
// location on the search path. A file outside the search path imports as
// its bare basename.
func (p *Project) importNamesFor(path string) []string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(strings.TrimSuffix(base, ".pyi"), ".py")

	for _, root := range p.searchPath {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = strings.TrimSuffix(strings.TrimSuffix(rel, ".pyi"), ".py")
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if parts[len(parts)-1] == "__init__" {
			parts = parts[:len(parts)-1]
		}
		if len(parts) > 0 && parts[0] != "" {
			return parts
		}
	}
	if stem == "__init__" {
		stem = filepath.Base(filepath.Dir(path))
	}
	return []string{stem}
}

// moduleCandidates lists the file-system locations an import specification
// could resolve to, in search-path order: a module file, then a package
// __init__.
func (p *Project) moduleCandidates(names []string) []string {
	var candidates []string
	sub := filepath.Join(names...)
	for _, root := range p.searchPath {
		candidates = append(candidates,
			filepath.Join(root, sub+".py"),
			filepath.Join(root, sub, "__init__.py"),
		)
	}
	return candidates
}
