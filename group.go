package zarr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Groups organize arrays and other groups. A group exists at a logical path
// when a "zarr.json" document with node_type "group" is stored there.
type Group struct {
	path  Path
	store Store
	meta  *GroupMeta
}

// CreateGroup writes the group document at path with all of its attributes
// in a single Put. There is deliberately no call to patch attributes later:
// everything a group will ever say about itself is known at creation.
func CreateGroup(store Store, path string, attrs Attributes) (*Group, error) {
	p, err := NewPath(path)
	if err != nil {
		return nil, err
	}
	return createGroup(store, p, attrs)
}

func createGroup(store Store, p Path, attrs Attributes) (*Group, error) {
	meta := newGroupMeta(attrs)
	doc, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encoding group attributes: %w", err)
	}
	if err := store.Put(p.Key(MetadataKey), bytes.NewReader(doc)); err != nil {
		return nil, err
	}
	return &Group{path: p, store: store, meta: meta}, nil
}

// OpenGroup loads the group stored at path
func OpenGroup(store Store, path string) (*Group, error) {
	n, err := OpenNode(store, path)
	if err != nil {
		return nil, err
	}
	g, ok := n.AsGroup()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotGroup, path)
	}
	return g, nil
}

func (g *Group) Path() string            { return g.path.String() }
func (g *Group) Name() string            { return g.path.Name() }
func (g *Group) Meta() *GroupMeta        { return g.meta }
func (g *Group) Attributes() Attributes  { return g.meta.Attributes }
func (g *Group) Store() Store            { return g.store }
func (g *Group) AsGroup() (*Group, bool) { return g, true }
func (g *Group) AsArray() (*Array, bool) { return nil, false }

// CreateGroup adds a child group
func (g *Group) CreateGroup(name string, attrs Attributes) (*Group, error) {
	if err := checkChildName(name); err != nil {
		return nil, err
	}
	return createGroup(g.store, g.path.Join(name), attrs)
}

// CreateArray adds a child array, writing only its metadata document
func (g *Group) CreateArray(name string, spec ArraySpec) (*Array, error) {
	if err := checkChildName(name); err != nil {
		return nil, err
	}
	return createArray(g.store, g.path.Join(name), spec)
}

// Children loads the nodes directly beneath g. Names that parse as
// non-negative integers come first in numeric order ("2" before "10"), then
// the rest in lexical order. Entries without a node document are skipped.
func (g *Group) Children() ([]Node, error) {
	names, err := g.store.ListDir(g.path.String())
	if err != nil {
		return nil, err
	}
	SortNodeNames(names)

	nodes := make([]Node, 0, len(names))
	for _, name := range names {
		if name == MetadataKey {
			continue
		}
		n, err := openNode(g.store, g.path.Join(name), ModeRead)
		if errors.Is(err, ErrNotfound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// SortNodeNames orders names numerically where they are integers, so level
// paths "0".."10" come back in resolution order
func SortNodeNames(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, aErr := strconv.ParseUint(names[i], 10, 64)
		b, bErr := strconv.ParseUint(names[j], 10, 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return names[i] < names[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return names[i] < names[j]
	})
}

func checkChildName(name string) error {
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return fmt.Errorf("invalid node name %q", name)
	}
	if strings.HasPrefix(name, "__") {
		return fmt.Errorf("node name %q uses the reserved \"__\" prefix", name)
	}
	if name == MetadataKey {
		return fmt.Errorf("node name %q is reserved", name)
	}
	return nil
}
