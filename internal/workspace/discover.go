// Package workspace discovers the corpora belonging to a project root and
// holds the process-wide session snapshot built from them.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Target is one discovered corpus: a crate and the rustdoc JSON export
// expected for it.
type Target struct {
	Name    types.CrateName
	Version string
	DocPath string
}

// Discovery is the result of probing a project root: the project's own
// crates, every dependency, and optionally the standard library set.
type Discovery struct {
	Root          string
	Members       []string
	Targets       []Target
	DefaultCorpus string
}

// Discoverer probes a project root for its corpora. The engine treats the
// result purely as an input list and tolerates it being empty or partial.
type Discoverer interface {
	Discover(ctx context.Context, root string) (*Discovery, error)
}

// CargoDiscoverer shells out to cargo metadata and maps each package to
// the rustdoc JSON file cargo places under target/doc.
type CargoDiscoverer struct {
	log zerolog.Logger
}

// NewCargoDiscoverer returns a Discoverer backed by the cargo binary.
func NewCargoDiscoverer(log zerolog.Logger) *CargoDiscoverer {
	return &CargoDiscoverer{log: log}
}

type cargoMetadata struct {
	Packages         []cargoPackage `json:"packages"`
	WorkspaceMembers []string       `json:"workspace_members"`
	TargetDirectory  string         `json:"target_directory"`
	WorkspaceRoot    string         `json:"workspace_root"`
}

type cargoPackage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Discover runs cargo metadata at root and derives the corpus list.
func (d *CargoDiscoverer) Discover(ctx context.Context, root string) (*Discovery, error) {
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--format-version", "1")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("cargo metadata failed in %s: %w", root, err)
	}

	var meta cargoMetadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, fmt.Errorf("cargo metadata produced invalid JSON: %w", err)
	}

	disc := parseMetadata(&meta, root)
	disc.Targets = append(disc.Targets, d.stdlibTargets(ctx)...)

	d.log.Debug().
		Str("root", root).
		Int("members", len(disc.Members)).
		Int("targets", len(disc.Targets)).
		Msg("workspace discovered")
	return disc, nil
}

// parseMetadata derives the corpus list from a decoded cargo metadata
// payload. Split out so tests can feed a fixture payload without cargo.
func parseMetadata(meta *cargoMetadata, root string) *Discovery {
	memberIDs := make(map[string]struct{}, len(meta.WorkspaceMembers))
	for _, id := range meta.WorkspaceMembers {
		memberIDs[id] = struct{}{}
	}

	docDir := filepath.Join(meta.TargetDirectory, "doc")
	disc := &Discovery{Root: root}
	if meta.WorkspaceRoot != "" {
		disc.Root = meta.WorkspaceRoot
	}

	for _, pkg := range meta.Packages {
		name := types.NewCrateName(pkg.Name)
		disc.Targets = append(disc.Targets, Target{
			Name:    name,
			Version: pkg.Version,
			DocPath: filepath.Join(docDir, name.Normalized()+".json"),
		})
		if _, ok := memberIDs[pkg.ID]; ok {
			disc.Members = append(disc.Members, pkg.Name)
			if disc.DefaultCorpus == "" {
				disc.DefaultCorpus = pkg.Name
			}
		}
	}
	return disc
}

// stdlibTargets probes the toolchain sysroot for pre-built standard
// library exports. Absence is normal and not an error.
func (d *CargoDiscoverer) stdlibTargets(ctx context.Context) []Target {
	out, err := exec.CommandContext(ctx, "rustc", "--print", "sysroot").Output()
	if err != nil {
		return nil
	}
	sysroot := strings.TrimSpace(string(out))
	if sysroot == "" {
		return nil
	}

	jsonDir := filepath.Join(sysroot, "share", "doc", "rust", "json")
	matches, err := filepath.Glob(filepath.Join(jsonDir, "*.json"))
	if err != nil {
		return nil
	}

	targets := make([]Target, 0, len(matches))
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), ".json")
		targets = append(targets, Target{
			Name:    types.NewCrateName(name),
			DocPath: path,
		})
	}
	return targets
}
