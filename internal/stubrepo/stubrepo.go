// Package stubrepo indexes a repository of type stub files (.pyi) organized
// by category and interpreter version:
//
//	<root>/<category>/<version-selector>/<module-path>.pyi
//
// where category is "stdlib" or "third_party" and the version selector is a
// major version ("3"), a major.minor pair ("3.9"), or the version-agnostic
// marker ("2and3"). The index maps importable module names to stub file
// paths and is memoized process-wide per (root, version): repeated queries
// against the same repository cost one disk scan.
package stubrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
)

// AgnosticDir is the version-agnostic selector directory.
const AgnosticDir = "2and3"

// categories are scanned in order; later categories do not override earlier
// ones for the same module name.
var categories = []string{"stdlib", "third_party"}

// Version identifies the analyzed interpreter version.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

type cacheKey struct {
	root    string
	version Version
}

var (
	cacheMu sync.Mutex
	cache   = map[cacheKey]map[string]string{}
)

var minorDirRe = regexp.MustCompile(`^(\d+)\.(\d+)$`)

// Map returns the stub map for a repository root and version: importable
// module name to stub file path. Missing or unreadable directories are
// skipped silently; an absent repository yields an empty map, never an
// error.
func Map(root string, version Version) map[string]string {
	key := cacheKey{root: root, version: version}
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if m, ok := cache[key]; ok {
		return m
	}
	m := map[string]string{}
	// Least specific first so later, more specific selectors override.
	for _, dir := range Directories(root, version) {
		for name, path := range ScanDir(dir) {
			m[name] = path
		}
	}
	cache[key] = m
	return m
}

// Directories lists the selector directories to scan for a version, least
// specific first: the agnostic marker, then the major version, then every
// major.minor directory present on disk that is compatible (same major,
// minor not newer than the requested one), in ascending minor order.
func Directories(root string, version Version) []string {
	var dirs []string
	for _, category := range categories {
		base := filepath.Join(root, category)
		selectors := []string{AgnosticDir, strconv.Itoa(version.Major)}

		entries, err := os.ReadDir(base)
		if err != nil {
			continue
		}
		var minors []int
		for _, e := range entries {
			m := minorDirRe.FindStringSubmatch(e.Name())
			if m == nil {
				continue
			}
			major, _ := strconv.Atoi(m[1])
			minor, _ := strconv.Atoi(m[2])
			if major == version.Major && minor <= version.Minor {
				minors = append(minors, minor)
			}
		}
		for i := 0; i < len(minors); i++ {
			for j := i + 1; j < len(minors); j++ {
				if minors[j] < minors[i] {
					minors[i], minors[j] = minors[j], minors[i]
				}
			}
		}
		for _, minor := range minors {
			selectors = append(selectors, fmt.Sprintf("%d.%d", version.Major, minor))
		}
		for _, sel := range selectors {
			dirs = append(dirs, filepath.Join(base, sel))
		}
	}
	return dirs
}

// ScanDir maps importable names to stub files within one directory: a
// `foo.pyi` file maps "foo", a `foo/__init__.pyi` package maps "foo".
// Unreadable directories yield an empty map.
func ScanDir(dir string) map[string]string {
	m := map[string]string{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return m
	}
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)
		if e.IsDir() {
			init := filepath.Join(path, "__init__.pyi")
			if _, err := os.Stat(init); err == nil {
				m[name] = init
			}
			continue
		}
		if filepath.Ext(name) == ".pyi" {
			base := name[:len(name)-len(".pyi")]
			if base != "__init__" {
				m[base] = path
			}
		}
	}
	return m
}

// Reset drops the process-wide index. Only tests need this.
func Reset() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cache = map[cacheKey]map[string]string{}
}
