package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/internal/query"
	"github.com/Xevion/rustdoc-mcp/internal/search"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

const searchTips = "No results. Try fewer or different terms; identifiers are matched on " +
	"sub-words (HashMap matches 'hash' and 'map'), and singular forms match plurals."

// summarize builds the renderer-facing view of an item: display path,
// kind, first doc line, and the structural data for its kind.
func summarize(ctx context.Context, scope *query.Scope, ref query.Ref) (types.ItemSummary, error) {
	it := ref.Item()
	if it == nil {
		return types.ItemSummary{}, types.ErrScopeClosed
	}

	summary := types.ItemSummary{
		DisplayPath: ref.DisplayPath(),
		Name:        ref.DisplayName(),
		Kind:        ref.Kind(),
		DocExcerpt:  types.DocExcerpt(it.DocBody()),
		Generics:    corpus.RenderGenerics(genericsOf(it)),
	}

	switch ref.Kind() {
	case types.KindFunction:
		summary.Signature = corpus.RenderSignature(ref.DisplayName(), it.Inner.Function)

	case types.KindStruct, types.KindUnion:
		children, err := scope.Children(ctx, ref)
		if err != nil {
			return summary, err
		}
		// Children mixes fields with impl-block methods; only fields
		// belong in the summary.
		for _, field := range children {
			fieldItem := field.Item()
			if fieldItem == nil || fieldItem.Inner.StructField == nil {
				continue
			}
			summary.Fields = append(summary.Fields, types.FieldInfo{
				Name: field.DisplayName(),
				Type: fieldItem.Inner.StructField.Render(),
			})
		}

	case types.KindEnum:
		children, err := scope.Children(ctx, ref)
		if err != nil {
			return summary, err
		}
		for _, variant := range children {
			if variant.Kind() != types.KindVariant {
				continue
			}
			summary.Variants = append(summary.Variants, variant.DisplayName())
		}

	case types.KindField:
		if it.Inner.StructField != nil {
			summary.Signature = ref.DisplayName() + ": " + it.Inner.StructField.Render()
		}

	case types.KindTypeAlias:
		if it.Inner.TypeAlias != nil {
			summary.Signature = "type " + ref.DisplayName() + " = " + it.Inner.TypeAlias.Type.Render()
		}

	case types.KindConstant:
		if it.Inner.Constant != nil {
			summary.Signature = "const " + ref.DisplayName() + ": " + it.Inner.Constant.Type.Render()
		}

	case types.KindStatic:
		if it.Inner.Static != nil {
			summary.Signature = "static " + ref.DisplayName() + ": " + it.Inner.Static.Type.Render()
		}
	}

	return summary, nil
}

// genericsOf extracts the declared generics of the kinds that carry them.
func genericsOf(it *corpus.Item) *corpus.Generics {
	switch {
	case it.Inner.Struct != nil:
		return &it.Inner.Struct.Generics
	case it.Inner.Union != nil:
		return &it.Inner.Union.Generics
	case it.Inner.Enum != nil:
		return &it.Inner.Enum.Generics
	case it.Inner.Trait != nil:
		return &it.Inner.Trait.Generics
	case it.Inner.Function != nil:
		return &it.Inner.Function.Generics
	case it.Inner.TypeAlias != nil:
		return &it.Inner.TypeAlias.Generics
	default:
		return nil
	}
}

// disambiguationResponse lists ambiguous candidates ordered by path
// canonicality, capped with an "and N more" note.
func disambiguationResponse(ctx context.Context, scope *query.Scope, candidates []query.Ref) map[string]interface{} {
	ordered := make([]query.Ref, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return corpus.CanonicalityScore(ordered[i].DisplayPath()) >
			corpus.CanonicalityScore(ordered[j].DisplayPath())
	})

	shown := ordered
	if len(shown) > maxDisambiguation {
		shown = shown[:maxDisambiguation]
	}
	items := make([]types.ItemSummary, 0, len(shown))
	for _, c := range shown {
		summary, err := summarize(ctx, scope, c)
		if err != nil {
			continue
		}
		items = append(items, summary)
	}

	resp := map[string]interface{}{
		"found":      false,
		"ambiguous":  true,
		"candidates": items,
	}
	if extra := len(ordered) - len(shown); extra > 0 {
		resp["note"] = fmt.Sprintf("... and %d more", extra)
	}
	return resp
}

// notFoundResponse carries ranked suggestions, or the explicit reason the
// suggestion list is empty. Never a bare not-found.
func notFoundResponse(outcome query.Outcome) map[string]interface{} {
	resp := map[string]interface{}{
		"found":       false,
		"suggestions": outcome.Suggestions,
	}
	if outcome.Suggestions == nil {
		resp["suggestions"] = []types.Suggestion{}
	}
	if outcome.Reason != "" {
		resp["reason"] = outcome.Reason
	}
	return resp
}

// nonUniqueResponse maps a non-unique outcome to its response body;
// done is false for Unique outcomes, which the handler continues with.
func nonUniqueResponse(ctx context.Context, scope *query.Scope, outcome query.Outcome) (map[string]interface{}, bool) {
	switch outcome.Kind {
	case query.Unique:
		return nil, false
	case query.Ambiguous:
		return disambiguationResponse(ctx, scope, outcome.Candidates), true
	case query.ExternalRef:
		return map[string]interface{}{
			"found":         false,
			"external":      true,
			"missing_crate": outcome.MissingCorpus,
			"reason":        outcome.Reason,
		}, true
	default:
		return notFoundResponse(outcome), true
	}
}

// searchSummaries converts ranked hits to summaries with a relevance
// percentage normalized against the top score.
func searchSummaries(results []search.Result) []types.ItemSummary {
	top := results[0].Score
	summaries := make([]types.ItemSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, types.ItemSummary{
			DisplayPath: r.DisplayPath,
			Kind:        r.Kind,
			Relevance:   100 * r.Score / top,
		})
	}
	return summaries
}
