package search

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/internal/query"
	"github.com/Xevion/rustdoc-mcp/internal/tokenizer"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// document is one item's index entry before it is written out.
type document struct {
	id          corpus.ID
	displayPath string
	kind        types.ItemKind
	nameTF      map[string]int
	docTF       map[string]int
}

// ensureFresh compares the stored fingerprint for the corpus against the
// loaded one and triggers an unconditional full rebuild on mismatch.
// There is no incremental path: rebuilds are rare relative to queries.
func (s *Service) ensureFresh(ctx context.Context, scope *query.Scope, c *corpus.Corpus) error {
	key := c.Name().Normalized()
	want := strconv.FormatUint(c.Fingerprint(), 16)

	var stored string
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint FROM corpora WHERE name = ?", key).Scan(&stored)
	if err == nil && stored == want {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read index fingerprint: %w", err)
	}

	s.log.Info().
		Str("corpus", key).
		Str("fingerprint", want).
		Msg("rebuilding search index")
	return s.rebuild(ctx, scope, c)
}

// rebuild indexes every local item reachable from the corpus root and
// replaces the persisted entries in one transaction. The previous index
// stays queryable until the commit swaps it out.
func (s *Service) rebuild(ctx context.Context, scope *query.Scope, c *corpus.Corpus) error {
	docs, err := collectDocuments(ctx, scope, c)
	if err != nil {
		return fmt.Errorf("failed to walk corpus %s: %w", c.Name(), err)
	}

	key := c.Name().Normalized()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"postings", "documents", "term_stats", "corpora"} {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE "+tableKeyColumn(table)+" = ?", key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	termDocs := make(map[string]int)
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (corpus, item_id, display_path, kind) VALUES (?, ?, ?, ?)",
			key, doc.id, doc.displayPath, string(doc.kind)); err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		terms := make(map[string]struct{}, len(doc.nameTF)+len(doc.docTF))
		for term := range doc.nameTF {
			terms[term] = struct{}{}
		}
		for term := range doc.docTF {
			terms[term] = struct{}{}
		}
		for term := range terms {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO postings (corpus, term, item_id, name_tf, doc_tf) VALUES (?, ?, ?, ?, ?)",
				key, term, doc.id, doc.nameTF[term], doc.docTF[term]); err != nil {
				return fmt.Errorf("failed to insert posting: %w", err)
			}
			termDocs[term]++
		}
	}

	for term, count := range termDocs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO term_stats (corpus, term, doc_count) VALUES (?, ?, ?)",
			key, term, count); err != nil {
			return fmt.Errorf("failed to insert term stats: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO corpora (name, version, fingerprint, doc_count) VALUES (?, ?, ?, ?)",
		key, c.Version(), strconv.FormatUint(c.Fingerprint(), 16), len(docs)); err != nil {
		return fmt.Errorf("failed to record corpus fingerprint: %w", err)
	}

	return tx.Commit()
}

func tableKeyColumn(table string) string {
	if table == "corpora" {
		return "name"
	}
	return "corpus"
}

// collectDocuments walks the item graph from the root, indexing every
// local named item once. Re-exports are expanded by the traversal layer;
// items pulled in from other corpora are left to their own index.
func collectDocuments(ctx context.Context, scope *query.Scope, c *corpus.Corpus) ([]document, error) {
	root := scope.NewRef(c, c.Root(), "")
	visited := map[corpus.ID]struct{}{c.Root(): {}}
	var docs []document

	var walk func(ref query.Ref) error
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	walk = func(ref query.Ref) error {
		children, err := scope.Children(ctx, ref)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.Corpus() != c {
				continue
			}
			if _, seen := visited[child.ID()]; seen {
				continue
			}
			visited[child.ID()] = struct{}{}

			if doc, ok := indexItem(c, child); ok {
				docs = append(docs, doc)
			}

			switch child.Kind() {
			case types.KindModule, types.KindStruct, types.KindUnion, types.KindEnum, types.KindTrait:
				if err := walk(child); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return docs, nil
}

func indexItem(c *corpus.Corpus, ref query.Ref) (document, bool) {
	it := ref.Item()
	if it == nil || it.DeclaredName() == "" {
		return document{}, false
	}
	// Exports built without --document-private-items never contain
	// restricted items, but ones built with it do; keep them out of
	// search results either way.
	if !it.Public() {
		return document{}, false
	}
	switch ref.Kind() {
	case types.KindUse, types.KindImpl, types.KindUnknown:
		return document{}, false
	}

	doc := document{
		id:          ref.ID(),
		displayPath: c.DisplayPath(ref.ID()),
		kind:        ref.Kind(),
		nameTF:      termFrequencies(tokenizer.Tokenize(it.DeclaredName())),
		docTF:       termFrequencies(tokenizer.TokenizeText(it.DocBody())),
	}
	return doc, true
}

func termFrequencies(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}
	return tf
}
