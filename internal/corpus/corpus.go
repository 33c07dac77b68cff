package corpus

import (
	"sort"
	"strings"

	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Corpus is one loaded rustdoc export: the item graph plus the indexes
// derived from it at load time. A Corpus is immutable after Load and owns
// its item data for the life of the request scope that loaded it.
type Corpus struct {
	name        types.CrateName
	version     string
	source      string
	fingerprint uint64
	crate       *Crate
	topLevel    map[string][]ID
}

// Name returns the crate name this corpus was loaded as.
func (c *Corpus) Name() types.CrateName { return c.name }

// Version returns the crate version, or "" when the export omits it.
func (c *Corpus) Version() string { return c.version }

// Source returns the path of the JSON file this corpus was loaded from.
func (c *Corpus) Source() string { return c.source }

// Fingerprint is the xxhash64 of the source file content at load time.
func (c *Corpus) Fingerprint() uint64 { return c.fingerprint }

// Root returns the identifier of the crate's root module.
func (c *Corpus) Root() ID { return c.crate.Root }

// ItemByID returns the item for id, or nil when id is external or unknown.
func (c *Corpus) ItemByID(id ID) *Item { return c.crate.Index[id] }

// PathOf returns the canonical path segments recorded for id, which may
// exist even for items whose bodies live in another crate.
func (c *Corpus) PathOf(id ID) []string {
	if p := c.crate.Paths[id]; p != nil {
		return p.Path
	}
	return nil
}

// PathEntry returns the paths-table record for id, present for local
// items and for external items referenced by re-exports.
func (c *Corpus) PathEntry(id ID) (*ItemPath, bool) {
	p, ok := c.crate.Paths[id]
	return p, ok
}

// ExternalCrateName maps a crate_id from an item reference to the crate
// name it belongs to. crate_id 0 is the corpus itself.
func (c *Corpus) ExternalCrateName(crateID uint32) (string, bool) {
	if crateID == 0 {
		return c.name.Original(), true
	}
	ext, ok := c.crate.ExternalCrates[crateID]
	return ext.Name, ok
}

// IsLocal reports whether id refers to an item documented in this corpus.
func (c *Corpus) IsLocal(id ID) bool {
	_, ok := c.crate.Index[id]
	return ok
}

// TopLevel returns the root-module children declared under name, in
// declaration order. Glob re-exports are not flattened here; full
// expansion is the traversal layer's job.
func (c *Corpus) TopLevel(name string) []ID { return c.topLevel[name] }

// TopLevelNames returns the sorted visible names of the root module.
func (c *Corpus) TopLevelNames() []string {
	names := make([]string, 0, len(c.topLevel))
	for name := range c.topLevel {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DisplayPath joins the canonical path of id with "::", falling back to
// the crate-qualified declared name when the paths table has no entry.
func (c *Corpus) DisplayPath(id ID) string {
	if segs := c.PathOf(id); len(segs) > 0 {
		return strings.Join(segs, "::")
	}
	if it := c.ItemByID(id); it != nil && it.DeclaredName() != "" {
		return c.name.Normalized() + "::" + it.DeclaredName()
	}
	return c.name.Normalized()
}

// CanonicalityScore orders the multiple public paths an item can be
// reachable under: shorter paths win, and paths routed through private
// looking modules lose. Higher is more canonical.
func CanonicalityScore(path string) int {
	segments := strings.Split(path, "::")
	score := 100 - 8*len(segments)
	for _, seg := range segments {
		if strings.HasPrefix(seg, "_") || seg == "private" || seg == "internal" || seg == "imp" {
			score -= 40
		}
	}
	return score
}

// buildTopLevel indexes the visible names of the root module for O(1)
// first-segment lookup. Re-exports index under their visible (possibly
// renamed) name; glob imports contribute no static entries.
func (c *Corpus) buildTopLevel() {
	c.topLevel = make(map[string][]ID)
	root := c.ItemByID(c.crate.Root)
	if root == nil || root.Inner.Module == nil {
		return
	}
	for _, childID := range root.Inner.Module.Items {
		child := c.ItemByID(childID)
		if child == nil {
			continue
		}
		name := child.DeclaredName()
		if u := child.Inner.Use; u != nil {
			if u.IsGlob {
				continue
			}
			name = u.Name
		}
		if name == "" {
			continue
		}
		c.topLevel[name] = append(c.topLevel[name], childID)
	}
}
