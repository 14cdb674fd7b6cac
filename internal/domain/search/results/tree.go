package results

import (
	"maps"
	"slices"

	"github.com/kailas-cloud/facetdex/internal/domain/search/facet"
)

type node struct {
	path     string
	count    int
	children []int
}

// tree is an arena of nodes; children are indices into nodes.
type tree struct {
	nodes []node
	roots []int
}

// buildTree turns the per-level path→count maps into a tree. Children are
// attached only under nodes on the refined path or the root path, and levels
// above the root path keep only its ancestors.
func buildTree(h facet.Hierarchy, levels []counts, refined string) tree {
	var t tree
	root := h.RootPath()
	rootDepth := h.Depth(root)
	expanded := func(path string) bool {
		return h.IsAncestorOrSelf(path, refined) || h.IsAncestorOrSelf(path, root)
	}

	index := make(map[string]int)
	for level, c := range levels {
		for _, path := range slices.Sorted(maps.Keys(c.values)) {
			if h.Depth(path) != level+1 {
				continue
			}
			if level < rootDepth && !h.IsAncestorOrSelf(path, root) {
				continue
			}

			id := len(t.nodes)
			if level == 0 {
				t.roots = append(t.roots, id)
			} else {
				parent, ok := index[h.Parent(path)]
				if !ok || !expanded(t.nodes[parent].path) {
					continue
				}
				t.nodes[parent].children = append(t.nodes[parent].children, id)
			}
			t.nodes = append(t.nodes, node{path: path, count: c.values[path]})
			index[path] = id
		}
	}
	return t
}
