package search

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/internal/query"
	"github.com/Xevion/rustdoc-mcp/internal/tokenizer"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

const (
	// DefaultLimit caps result counts when the caller does not specify one.
	DefaultLimit = 10
	// nameWeight multiplies name-field term frequency relative to
	// documentation-body matches.
	nameWeight = 2.0
	// minRelevance excludes zero-overlap results instead of returning
	// them with near-zero scores.
	minRelevance = 1e-9

	cacheSize = 256
)

// Result is one ranked search hit.
type Result struct {
	ItemID      corpus.ID
	DisplayPath string
	Kind        types.ItemKind
	Score       float64
}

type cacheKey struct {
	fingerprint uint64
	query       string
	limit       int
}

// Service owns the persistent relevance index and answers ranked
// multi-term queries over item names and documentation bodies.
type Service struct {
	db    *sql.DB
	log   zerolog.Logger
	cache *lru.Cache[cacheKey, []Result]
}

// New opens (or resets) the index database at dbPath.
func New(ctx context.Context, dbPath string, log zerolog.Logger) (*Service, error) {
	db, err := openOrReset(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[cacheKey, []Result](cacheSize)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	return &Service{db: db, log: log, cache: cache}, nil
}

// Close closes the index database.
func (s *Service) Close() error {
	return s.db.Close()
}

// Search runs a ranked query against one corpus, building or rebuilding
// its index first when the stored fingerprint does not match the loaded
// corpus. Results are cached keyed by (fingerprint, query, limit), so a
// rebuild naturally invalidates prior entries.
func (s *Service) Search(ctx context.Context, scope *query.Scope, corpusName, queryText string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	c, err := scope.Load(ctx, corpusName)
	if err != nil {
		return nil, err
	}

	key := cacheKey{fingerprint: c.Fingerprint(), query: queryText, limit: limit}
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	if err := s.ensureFresh(ctx, scope, c); err != nil {
		return nil, err
	}

	results, err := s.rankedQuery(ctx, c, queryText, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, results)
	return results, nil
}

// rankedQuery scores candidates per term with TF-IDF, weighting name
// matches over documentation matches, and sums per-term scores additively
// so longer matching queries never score below their prefixes.
func (s *Service) rankedQuery(ctx context.Context, c *corpus.Corpus, queryText string, limit int) ([]Result, error) {
	terms := dedup(tokenizer.TokenizeText(queryText))
	if len(terms) == 0 {
		return nil, nil
	}

	corpusKey := c.Name().Normalized()

	var totalDocs int
	err := s.db.QueryRowContext(ctx,
		"SELECT doc_count FROM corpora WHERE name = ?", corpusKey).Scan(&totalDocs)
	if err != nil || totalDocs == 0 {
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to read corpus stats: %w", err)
		}
		return nil, nil
	}

	scores := make(map[corpus.ID]*Result)
	for _, term := range terms {
		if err := s.scoreTerm(ctx, corpusKey, term, totalDocs, scores); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(scores))
	for _, r := range scores {
		if r.Score > minRelevance {
			results = append(results, *r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DisplayPath < results[j].DisplayPath
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (s *Service) scoreTerm(ctx context.Context, corpusKey, term string, totalDocs int, scores map[corpus.ID]*Result) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.item_id, p.name_tf, p.doc_tf, t.doc_count, d.display_path, d.kind
		FROM postings p
		JOIN term_stats t ON t.corpus = p.corpus AND t.term = p.term
		JOIN documents d ON d.corpus = p.corpus AND d.item_id = p.item_id
		WHERE p.corpus = ? AND p.term = ?`,
		corpusKey, term)
	if err != nil {
		return fmt.Errorf("failed to query postings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			itemID        corpus.ID
			nameTF, docTF int
			termDocs      int
			displayPath   string
			kind          string
		)
		if err := rows.Scan(&itemID, &nameTF, &docTF, &termDocs, &displayPath, &kind); err != nil {
			return fmt.Errorf("failed to scan posting: %w", err)
		}

		idf := 1.0 + math.Log(float64(totalDocs)/float64(termDocs))
		score := (nameWeight*float64(nameTF) + float64(docTF)) * idf

		if existing, ok := scores[itemID]; ok {
			existing.Score += score
			continue
		}
		scores[itemID] = &Result{
			ItemID:      itemID,
			DisplayPath: displayPath,
			Kind:        types.ItemKind(kind),
			Score:       score,
		}
	}
	return rows.Err()
}

func dedup(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
