// Package report builds per-directory coverage summaries and renders them
// as JSON or for the terminal.
package report

import (
	"path"
	"sort"
	"strings"

	"github.com/tturner/pccov/internal/coverage"
)

// Node is one directory or file in the summary tree. A file has no
// children.
type Node struct {
	Name     string  `json:"name"`
	Lines    int     `json:"lines"`
	LinesHit int     `json:"lines-hit"`
	Funcs    int     `json:"funcs"`
	FuncsHit int     `json:"funcs-hit"`
	Files    []*Node `json:"files"`
}

// IsFile reports whether n is a leaf.
func (n *Node) IsFile() bool { return len(n.Files) == 0 }

func (n *Node) add(st coverage.Stats) {
	n.Lines += st.LinesFound
	n.LinesHit += st.LinesHit
	n.Funcs += st.FuncsFound
	n.FuncsHit += st.FuncsHit
}

func (n *Node) child(name string) *Node {
	for _, c := range n.Files {
		if c.Name == name {
			return c
		}
	}
	c := &Node{Name: name, Files: []*Node{}}
	n.Files = append(n.Files, c)
	return c
}

func (n *Node) sort() {
	sort.Slice(n.Files, func(i, j int) bool { return n.Files[i].Name < n.Files[j].Name })
	for _, c := range n.Files {
		c.sort()
	}
}

// BuildTree groups agg by path component. Each node carries the sums of
// everything below it. The returned root is the deepest directory shared
// by every file, and dir is its path.
func BuildTree(agg *coverage.Aggregate) (root *Node, dir string) {
	root = &Node{Files: []*Node{}}
	for _, p := range agg.Paths() {
		entry := agg.Lookup(p)
		if entry == nil {
			continue
		}
		st := entry.Stats()
		root.add(st)
		n := root
		for _, part := range splitPath(p) {
			n = n.child(part)
			n.add(st)
		}
	}
	root.sort()

	var parts []string
	for len(root.Files) == 1 && !root.Files[0].IsFile() {
		root = root.Files[0]
		parts = append(parts, root.Name)
	}
	dir = strings.Join(parts, "/")
	if len(parts) > 0 && parts[0] == "" {
		dir = "/" + strings.Join(parts[1:], "/")
	}
	return root, dir
}

func splitPath(p string) []string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	if strings.HasPrefix(p, "/") {
		return append([]string{""}, strings.Split(p[1:], "/")...)
	}
	return strings.Split(p, "/")
}

// Percent returns hit as a percentage of found, or -1 when found is zero.
func Percent(hit, found int) float64 {
	if found == 0 {
		return -1
	}
	return 100 * float64(hit) / float64(found)
}
