package facet

import (
	"fmt"
	"strings"
)

// Kind is the classification of a facet name.
type Kind string

// Facet kinds.
const (
	// Conjunctive refinements are ANDed with everything else.
	Conjunctive Kind = "conjunctive"
	// Disjunctive refinements are ORed among themselves.
	Disjunctive  Kind = "disjunctive"
	Hierarchical Kind = "hierarchical"
)

// DefaultSeparator joins hierarchical path segments.
const DefaultSeparator = " > "

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == Conjunctive || k == Disjunctive || k == Hierarchical
}

// Hierarchy describes a multi-level facet. Attributes are ordered root to leaf;
// the value stored in the attribute of level N is the full path of N+1 segments.
type Hierarchy struct {
	name       string
	attributes []string
	separator  string
	rootPath   string
}

// NewHierarchy validates and creates a hierarchical facet descriptor.
// An empty separator defaults to DefaultSeparator.
func NewHierarchy(name string, attributes []string, separator, rootPath string) (Hierarchy, error) {
	if name == "" {
		return Hierarchy{}, fmt.Errorf("hierarchical facet name is required")
	}
	if len(attributes) == 0 {
		return Hierarchy{}, fmt.Errorf("hierarchical facet %q needs at least one attribute", name)
	}
	seen := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		if a == "" {
			return Hierarchy{}, fmt.Errorf("hierarchical facet %q has an empty attribute", name)
		}
		if _, dup := seen[a]; dup {
			return Hierarchy{}, fmt.Errorf("hierarchical facet %q repeats attribute %q", name, a)
		}
		seen[a] = struct{}{}
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	h := Hierarchy{
		name:       name,
		attributes: append([]string(nil), attributes...),
		separator:  separator,
		rootPath:   rootPath,
	}
	if rootPath != "" && h.Depth(rootPath) > len(attributes) {
		return Hierarchy{}, fmt.Errorf("root path %q of %q is deeper than its attributes", rootPath, name)
	}
	return h, nil
}

// Name returns the facet name.
func (h Hierarchy) Name() string { return h.name }

// Attributes returns the per-level attribute names, root first.
func (h Hierarchy) Attributes() []string { return append([]string(nil), h.attributes...) }

// Separator returns the path separator.
func (h Hierarchy) Separator() string { return h.separator }

// RootPath returns the path that scopes the top of the tree ("" = whole tree).
func (h Hierarchy) RootPath() string { return h.rootPath }

// Levels returns the number of levels.
func (h Hierarchy) Levels() int { return len(h.attributes) }

// LevelKey returns the generic "<name>.lvl<N>" key of a level.
func (h Hierarchy) LevelKey(level int) string { return fmt.Sprintf("%s.lvl%d", h.name, level) }

// Attribute returns the attribute of the given level, clamped to the last one.
func (h Hierarchy) Attribute(level int) string {
	if level < 0 {
		level = 0
	}
	if level >= len(h.attributes) {
		level = len(h.attributes) - 1
	}
	return h.attributes[level]
}

// Level returns the level of an attribute, or -1.
func (h Hierarchy) Level(attribute string) int {
	for i, a := range h.attributes {
		if a == attribute {
			return i
		}
	}
	return -1
}

// Split breaks a path into its segments.
func (h Hierarchy) Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, h.separator)
}

// Join builds a path from segments.
func (h Hierarchy) Join(segments []string) string {
	return strings.Join(segments, h.separator)
}

// Depth returns the number of segments in a path (0 for "").
func (h Hierarchy) Depth(path string) int {
	return len(h.Split(path))
}

// Parent returns the path without its last segment ("" at the root).
func (h Hierarchy) Parent(path string) string {
	i := strings.LastIndex(path, h.separator)
	if i < 0 {
		return ""
	}
	return path[:i]
}

// LastSegment returns the last segment of a path.
func (h Hierarchy) LastSegment(path string) string {
	i := strings.LastIndex(path, h.separator)
	if i < 0 {
		return path
	}
	return path[i+len(h.separator):]
}

// IsAncestorOrSelf reports whether candidate equals path or is one of its ancestors.
func (h Hierarchy) IsAncestorOrSelf(candidate, path string) bool {
	if candidate == "" {
		return false
	}
	return path == candidate || strings.HasPrefix(path, candidate+h.separator)
}

// Equal compares two descriptors.
func (h Hierarchy) Equal(o Hierarchy) bool {
	if h.name != o.name || h.separator != o.separator || h.rootPath != o.rootPath {
		return false
	}
	if len(h.attributes) != len(o.attributes) {
		return false
	}
	for i := range h.attributes {
		if h.attributes[i] != o.attributes[i] {
			return false
		}
	}
	return true
}
