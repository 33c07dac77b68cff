package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/Xevion/rustdoc-mcp/internal/fuzzy"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// ProjectAlias is the reserved first path segment meaning "the active
// project's own corpus".
const ProjectAlias = "crate"

// OutcomeKind classifies a resolution result.
type OutcomeKind int

const (
	// Unique means exactly one item matched the full path.
	Unique OutcomeKind = iota
	// Ambiguous means the final segment matched several items, each
	// distinguishable by kind. The resolver never silently picks one.
	Ambiguous
	// NotFound means a segment matched nothing; Suggestions carries
	// ranked alternatives, or Reason explains why there are none.
	NotFound
	// ExternalRef means the path crosses into a corpus the session never
	// discovered. A missing dependency, not a typo.
	ExternalRef
)

func (k OutcomeKind) String() string {
	switch k {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	case NotFound:
		return "not_found"
	case ExternalRef:
		return "external"
	default:
		return "unknown"
	}
}

// Outcome is a first-class resolution result; NotFound and Ambiguous are
// results the caller branches on, not errors.
type Outcome struct {
	Kind          OutcomeKind
	Ref           Ref
	Candidates    []Ref
	Suggestions   []types.Suggestion
	Reason        string
	MissingCorpus string
}

// Resolver turns a qualified path into refs, following re-exports and
// glob imports across corpus boundaries through its scope.
type Resolver struct {
	scope         *Scope
	defaultCorpus string
	knownCorpora  []types.CrateName
}

// NewResolver builds a resolver over scope. defaultCorpus is the active
// project corpus ("" when no workspace is selected); known lists every
// corpus name the session discovered.
func NewResolver(scope *Scope, defaultCorpus string, known []string) *Resolver {
	names := make([]types.CrateName, len(known))
	for i, n := range known {
		names[i] = types.NewCrateName(n)
	}
	return &Resolver{scope: scope, defaultCorpus: defaultCorpus, knownCorpora: names}
}

// SplitPath normalizes a query path and splits it into segments. Dots are
// accepted as separators and normalized to "::".
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, ".", "::")
	parts := strings.Split(path, "::")
	segments := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// Resolve resolves a qualified path to zero, one, or many refs. The first
// segment selects a corpus (the "crate" alias, a declared corpus name
// under hyphen/underscore normalization, or an item in the default
// corpus); remaining segments walk children with transparent re-export
// expansion, lenient case/separator matching, and fuzzy suggestions on a
// miss. Resolution stops at the first failing segment.
func (r *Resolver) Resolve(ctx context.Context, path string) (Outcome, error) {
	segments := SplitPath(path)
	if len(segments) == 0 {
		return Outcome{Kind: NotFound, Reason: "empty path"}, nil
	}

	current, outcome, err := r.resolveFirst(ctx, segments[0])
	if err != nil || outcome != nil {
		return derefOutcome(outcome), err
	}

	for _, seg := range segments[1:] {
		next, outcome, err := r.resolveSegment(ctx, current, seg)
		if err != nil || outcome != nil {
			return derefOutcome(outcome), err
		}
		current = next
	}

	if len(current) == 1 {
		return Outcome{Kind: Unique, Ref: current[0]}, nil
	}
	return Outcome{Kind: Ambiguous, Candidates: current}, nil
}

func derefOutcome(o *Outcome) Outcome {
	if o == nil {
		return Outcome{}
	}
	return *o
}

// resolveFirst anchors the walk: returns the refs the remaining segments
// resolve against, or a terminal outcome.
func (r *Resolver) resolveFirst(ctx context.Context, seg string) ([]Ref, *Outcome, error) {
	name := seg
	if seg == ProjectAlias {
		if r.defaultCorpus == "" {
			return nil, &Outcome{
				Kind:   NotFound,
				Reason: "no workspace selected, so the \"crate\" alias is unbound",
			}, nil
		}
		name = r.defaultCorpus
	}

	for _, known := range r.knownCorpora {
		if known.Matches(name) {
			c, err := r.scope.Load(ctx, known.Original())
			if err != nil {
				return nil, nil, fmt.Errorf("load corpus %s: %w", known.Original(), err)
			}
			return []Ref{r.scope.NewRef(c, c.Root(), "")}, nil, nil
		}
	}

	// A bare identifier with no corpus qualifier resolves against the
	// default corpus's top-level declarations.
	if r.defaultCorpus == "" {
		return nil, &Outcome{
			Kind:        NotFound,
			Reason:      fmt.Sprintf("%q names no known corpus and no workspace is selected", seg),
			Suggestions: r.corpusSuggestions(seg),
		}, nil
	}
	c, err := r.scope.Load(ctx, r.defaultCorpus)
	if err != nil {
		return nil, nil, fmt.Errorf("load corpus %s: %w", r.defaultCorpus, err)
	}
	root := r.scope.NewRef(c, c.Root(), "")

	matches, outcome, err := r.resolveSegment(ctx, []Ref{root}, seg)
	if err != nil {
		return nil, nil, err
	}
	if outcome != nil && outcome.Kind == NotFound {
		// Fold corpus-name suggestions in: the caller may have typoed a
		// crate rather than an item.
		outcome.Suggestions = mergeSuggestions(outcome.Suggestions, r.corpusSuggestions(seg))
	}
	return matches, outcome, nil
}

// resolveSegment advances one hop from every current ref.
func (r *Resolver) resolveSegment(ctx context.Context, current []Ref, seg string) ([]Ref, *Outcome, error) {
	var matches []Ref
	var siblings []string
	for _, ref := range current {
		children, err := r.scope.Children(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		for _, child := range children {
			siblings = append(siblings, child.DisplayName())
			if child.DisplayName() == seg {
				matches = appendUnique(matches, child)
			}
		}
	}
	if len(matches) > 0 {
		return matches, nil, nil
	}

	// Lenient pass: case-insensitive with hyphen/underscore folding, for
	// variants of the same conceptual name.
	want := types.NormalizeCrateName(seg)
	for _, ref := range current {
		children, err := r.scope.Children(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		for _, child := range children {
			if types.NormalizeCrateName(child.DisplayName()) == want {
				matches = appendUnique(matches, child)
			}
		}
	}
	if len(matches) > 0 {
		return matches, nil, nil
	}

	// The segment may name a re-export into a corpus the session never
	// discovered; report the missing dependency distinctly.
	for _, ref := range current {
		if crate, ok := r.scope.unresolvedExternal(ctx, ref, seg); ok {
			return nil, &Outcome{
				Kind:          ExternalRef,
				MissingCorpus: crate,
				Reason:        fmt.Sprintf("%q is re-exported from corpus %q, which is not part of this workspace", seg, crate),
			}, nil
		}
	}

	suggestions := fuzzy.Suggest(seg, siblings)
	reason := ""
	if len(suggestions) == 0 {
		if len(siblings) == 0 {
			reason = "the containing item has no children to suggest from"
		} else {
			reason = fmt.Sprintf("no sibling name is close enough to %q to suggest", seg)
		}
	}
	return nil, &Outcome{Kind: NotFound, Suggestions: suggestions, Reason: reason}, nil
}

func (r *Resolver) corpusSuggestions(seg string) []types.Suggestion {
	names := make([]string, len(r.knownCorpora))
	for i, c := range r.knownCorpora {
		names[i] = c.Original()
	}
	return fuzzy.Suggest(seg, names)
}

func appendUnique(refs []Ref, ref Ref) []Ref {
	for _, existing := range refs {
		if existing.Equal(ref) {
			return refs
		}
	}
	return append(refs, ref)
}

func mergeSuggestions(a, b []types.Suggestion) []types.Suggestion {
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[s.Name] = struct{}{}
	}
	for _, s := range b {
		if _, dup := seen[s.Name]; !dup {
			a = append(a, s)
		}
	}
	if len(a) > fuzzy.MaxSuggestions {
		a = a[:fuzzy.MaxSuggestions]
	}
	return a
}
