package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// LoadReason classifies why a corpus failed to load.
type LoadReason int

const (
	// ReasonUnreadable covers I/O failures reading the export.
	ReasonUnreadable LoadReason = iota
	// ReasonMalformed covers JSON errors, schema violations, and
	// format-version mismatches.
	ReasonMalformed
)

func (r LoadReason) String() string {
	if r == ReasonUnreadable {
		return "unreadable"
	}
	return "malformed"
}

// LoadError is a per-corpus load failure. It is fatal to that corpus only
// and never aborts sibling corpora loading in the same request.
type LoadError struct {
	Reason LoadReason
	Path   string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("corpus %s: %s: %v", e.Reason, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads and validates one rustdoc JSON export. Transient I/O
// failures are retried once; parse and schema errors are not retried,
// since re-reading a malformed file cannot help. The declared name is
// taken from the root item when name is empty.
func Load(path string, name string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Reason: ReasonUnreadable, Path: path, Err: err}
		}
	}

	var crate Crate
	if err := json.Unmarshal(data, &crate); err != nil {
		return nil, &LoadError{Reason: ReasonMalformed, Path: path, Err: err}
	}
	if crate.FormatVersion != SupportedFormatVersion {
		return nil, &LoadError{
			Reason: ReasonMalformed,
			Path:   path,
			Err: fmt.Errorf("format version %d, want %d",
				crate.FormatVersion, SupportedFormatVersion),
		}
	}
	if err := validate(&crate); err != nil {
		return nil, &LoadError{Reason: ReasonMalformed, Path: path, Err: err}
	}

	if name == "" {
		if root := crate.Index[crate.Root]; root != nil {
			name = root.DeclaredName()
		}
	}
	version := ""
	if crate.CrateVersion != nil {
		version = *crate.CrateVersion
	}

	c := &Corpus{
		name:        types.NewCrateName(name),
		version:     version,
		source:      path,
		fingerprint: xxhash.Sum64(data),
		crate:       &crate,
	}
	c.buildTopLevel()
	return c, nil
}

// validate checks that every structurally referenced identifier resolves
// within the corpus, and that re-export targets resolve locally or appear
// in the paths table as external.
func validate(crate *Crate) error {
	if crate.Index == nil {
		return fmt.Errorf("missing item index")
	}
	if _, ok := crate.Index[crate.Root]; !ok {
		return fmt.Errorf("root item %d not in index", crate.Root)
	}

	local := func(id ID) bool {
		_, ok := crate.Index[id]
		return ok
	}
	known := func(id ID) bool {
		if local(id) {
			return true
		}
		_, ok := crate.Paths[id]
		return ok
	}
	checkAll := func(owner ID, ids []ID) error {
		for _, id := range ids {
			if !local(id) {
				return fmt.Errorf("item %d references %d, which is not in the index", owner, id)
			}
		}
		return nil
	}

	for id, it := range crate.Index {
		var err error
		switch {
		case it.Inner.Module != nil:
			err = checkAll(id, it.Inner.Module.Items)
		case it.Inner.Struct != nil:
			err = checkAll(id, it.Inner.Struct.Impls)
			if err == nil && it.Inner.Struct.Kind.Plain != nil {
				err = checkAll(id, it.Inner.Struct.Kind.Plain.Fields)
			}
		case it.Inner.Union != nil:
			err = checkAll(id, it.Inner.Union.Fields)
			if err == nil {
				err = checkAll(id, it.Inner.Union.Impls)
			}
		case it.Inner.Enum != nil:
			err = checkAll(id, it.Inner.Enum.Variants)
			if err == nil {
				err = checkAll(id, it.Inner.Enum.Impls)
			}
		case it.Inner.Trait != nil:
			err = checkAll(id, it.Inner.Trait.Items)
		case it.Inner.Impl != nil:
			err = checkAll(id, it.Inner.Impl.Items)
		case it.Inner.Use != nil:
			if t := it.Inner.Use.ID; t != nil && !known(*t) {
				err = fmt.Errorf("re-export %d targets %d, which is neither local nor marked external", id, *t)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
