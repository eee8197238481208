package indexer

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultExclusions are always excluded. User exclusions extend this set.
var DefaultExclusions = []string{"node_modules", ".git", "vendor", "dist", "build", "target"}

// Policy decides which directories and paths are eligible for indexing.
// A Policy is immutable once built and safe for concurrent use.
type Policy struct {
	excluded map[string]struct{}
}

// NewPolicy builds a Policy from the default exclusions plus extra.
// Extra names are matched exactly; empty names are ignored.
func NewPolicy(extra []string) *Policy {
	p := &Policy{excluded: make(map[string]struct{}, len(DefaultExclusions)+len(extra))}
	for _, name := range DefaultExclusions {
		p.excluded[name] = struct{}{}
	}
	for _, name := range extra {
		name = strings.TrimSpace(name)
		if name != "" {
			p.excluded[name] = struct{}{}
		}
	}
	return p
}

// IsExcludedDir reports whether a single path component is excluded.
func (p *Policy) IsExcludedDir(name string) bool {
	if isHiddenName(name) {
		return true
	}
	_, ok := p.excluded[name]
	return ok
}

// IsExcludedPath reports whether any component of path is excluded.
// It works on full paths so the watcher can apply it without walk context.
func (p *Policy) IsExcludedPath(path string) bool {
	path = filepath.Clean(path)
	vol := filepath.VolumeName(path)
	for _, part := range strings.Split(path[len(vol):], string(filepath.Separator)) {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if p.IsExcludedDir(part) {
			return true
		}
	}
	return false
}

// Exclusions returns the full exclusion set, defaults included.
func (p *Policy) Exclusions() []string {
	out := make([]string, 0, len(p.excluded))
	for name := range p.excluded {
		out = append(out, name)
	}
	return out
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsMarkdownPath reports whether path has an .md or .mdx extension, ignoring case.
func IsMarkdownPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".mdx":
		return true
	}
	return false
}

// ExpandRoot replaces a leading "~" with the current user's home directory.
// If the home directory cannot be resolved the literal path is returned.
func ExpandRoot(raw string) string {
	if raw != "~" && !strings.HasPrefix(raw, "~/") && !strings.HasPrefix(raw, "~"+string(filepath.Separator)) {
		return raw
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return raw
	}
	if raw == "~" {
		return home
	}
	return filepath.Join(home, raw[2:])
}
