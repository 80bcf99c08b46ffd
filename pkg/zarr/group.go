package zarr

import (
	"encoding/json"
	"sort"
	"strings"

	"NDZarr/pkg/store"

	"github.com/pkg/errors"
)

// NodeKind distinguishes hierarchy members.
type NodeKind string

const (
	KindArray NodeKind = "array"
	KindGroup NodeKind = "group"
)

// Node is one member of a group listing.
type Node struct {
	Name string
	Kind NodeKind
}

// Group is a namespace node that holds arrays and other groups.
type Group struct {
	store   store.Store
	path    string
	version int
	attrs   map[string]interface{}
}

// GroupOptions configures a new group; zero values mean v2 with no attributes.
type GroupOptions struct {
	Version    int
	Attributes map[string]interface{}
	Overwrite  bool
}

type zgroupDoc struct {
	ZarrFormat int `json:"zarr_format"`
}

// CreateGroup creates a group node at path and persists its metadata.
func CreateGroup(s store.Store, path string, opts *GroupOptions) (*Group, error) {
	if s.Info().ReadOnly {
		return nil, errors.Wrap(store.ErrReadOnly, path)
	}
	if opts == nil {
		opts = &GroupOptions{}
	}
	version := opts.Version
	if version == 0 {
		version = 2
	}
	if version != 2 && version != 3 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "format version %d", version)
	}
	if !opts.Overwrite {
		if _, err := OpenGroup(s, path); err == nil {
			return nil, errors.Wrapf(ErrNodeExists, "group at %q", path)
		} else if !errors.Is(err, ErrPathNotFound) {
			return nil, err
		}
	}
	g := &Group{store: s, path: path, version: version, attrs: opts.Attributes}
	if err := g.write(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Group) write() error {
	if g.version == 3 {
		attrs := g.attrs
		if attrs == nil {
			attrs = map[string]interface{}{}
		}
		data, err := json.MarshalIndent(&v3Doc{ZarrFormat: 3, NodeType: "group", Attributes: attrs}, "", "    ")
		if err != nil {
			return err
		}
		return errors.Wrapf(g.store.Put(metaKey(g.path, v3Key), data), "write group %q", g.path)
	}
	data, err := json.MarshalIndent(&zgroupDoc{ZarrFormat: 2}, "", "    ")
	if err != nil {
		return err
	}
	if err := g.store.Put(metaKey(g.path, v2GroupKey), data); err != nil {
		return errors.Wrapf(err, "write group %q", g.path)
	}
	if len(g.attrs) > 0 {
		attrs, err := json.MarshalIndent(g.attrs, "", "    ")
		if err != nil {
			return err
		}
		if err := g.store.Put(metaKey(g.path, v2AttrsKey), attrs); err != nil {
			return errors.Wrapf(err, "write group attributes %q", g.path)
		}
	}
	return nil
}

// OpenGroup reopens the group node at path, detecting the dialect.
func OpenGroup(s store.Store, path string) (*Group, error) {
	if data, err := s.Get(metaKey(path, v3Key)); err == nil {
		var doc v3Doc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: %s in %.120q", path, err, data)
		}
		if doc.ZarrFormat != 3 || doc.NodeType != "group" {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: not a v3 group document", path)
		}
		return &Group{store: s, path: path, version: 3, attrs: doc.Attributes}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(err, "read group %q", path)
	}

	data, err := s.Get(metaKey(path, v2GroupKey))
	if errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(ErrPathNotFound, "no group at %q", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read group %q", path)
	}
	var doc zgroupDoc
	if err := json.Unmarshal(data, &doc); err != nil || doc.ZarrFormat != 2 {
		return nil, errors.Wrapf(ErrInvalidMetadata, "%s: not a v2 group document: %.120q", path, data)
	}
	g := &Group{store: s, path: path, version: 2}
	if ad, err := s.Get(metaKey(path, v2AttrsKey)); err == nil {
		if err := json.Unmarshal(ad, &g.attrs); err != nil {
			return nil, errors.Wrapf(ErrInvalidMetadata, "%s: attributes: %s", path, err)
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, errors.Wrapf(err, "read group attributes %q", path)
	}
	return g, nil
}

func (g *Group) Path() string                  { return g.path }
func (g *Group) Version() int                  { return g.version }
func (g *Group) Attrs() map[string]interface{} { return g.attrs }

// SetAttrs replaces the group attributes and persists them.
func (g *Group) SetAttrs(attrs map[string]interface{}) error {
	if g.store.Info().ReadOnly {
		return errors.Wrap(store.ErrReadOnly, g.path)
	}
	g.attrs = attrs
	return g.write()
}

func (g *Group) child(name string) string {
	return metaKey(g.path, name)
}

// CreateArray creates a member array. The group's dialect is inherited unless
// the options say otherwise.
func (g *Group) CreateArray(name string, opts *CreateOptions) (*Array, error) {
	if opts.Version == 0 {
		opts.Version = g.version
	}
	return CreateArray(g.store, g.child(name), opts)
}

// CreateGroup creates a nested member group of the same dialect.
func (g *Group) CreateGroup(name string) (*Group, error) {
	return CreateGroup(g.store, g.child(name), &GroupOptions{Version: g.version})
}

func (g *Group) OpenArray(name string) (*Array, error) {
	return OpenArray(g.store, g.child(name))
}

func (g *Group) OpenGroup(name string) (*Group, error) {
	return OpenGroup(g.store, g.child(name))
}

// Children lists the direct members of this group, sorted by name. Requires
// a store with listing support.
func (g *Group) Children() ([]Node, error) {
	if !g.store.Info().SupportsListing {
		return nil, errors.Wrap(store.ErrNotSupported, "list group members")
	}
	prefix := ""
	if g.path != "" {
		prefix = g.path + "/"
	}
	keys, err := g.store.List(prefix)
	if err != nil {
		return nil, errors.Wrapf(err, "list group %q", g.path)
	}
	kinds := make(map[string]NodeKind)
	for _, key := range keys {
		rel := strings.TrimPrefix(key, prefix)
		parts := strings.Split(rel, "/")
		if len(parts) != 2 {
			continue
		}
		name, doc := parts[0], parts[1]
		switch doc {
		case v2ArrayKey:
			kinds[name] = KindArray
		case v2GroupKey:
			kinds[name] = KindGroup
		case v3Key:
			data, err := g.store.Get(key)
			if err != nil {
				return nil, storeErr(err, "read member %q", key)
			}
			var d v3Doc
			if json.Unmarshal(data, &d) == nil && d.NodeType == string(KindGroup) {
				kinds[name] = KindGroup
			} else {
				kinds[name] = KindArray
			}
		}
	}
	nodes := make([]Node, 0, len(kinds))
	for name, kind := range kinds {
		nodes = append(nodes, Node{Name: name, Kind: kind})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, nil
}

// DeleteNode removes every key under the node at path (its metadata and all
// chunk payloads). Requires listing and delete support.
func DeleteNode(s store.Store, path string) error {
	info := s.Info()
	if info.ReadOnly {
		return errors.Wrap(store.ErrReadOnly, path)
	}
	if !info.SupportsListing || !info.SupportsDeletes {
		return errors.Wrap(store.ErrNotSupported, "delete node")
	}
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}
	keys, err := s.List(prefix)
	if err != nil {
		return errors.Wrapf(err, "list %q", path)
	}
	if len(keys) == 0 {
		return errors.Wrapf(ErrPathNotFound, "no node at %q", path)
	}
	for _, key := range keys {
		if err := s.Delete(key); err != nil {
			return errors.Wrapf(err, "delete %q", key)
		}
	}
	return nil
}
