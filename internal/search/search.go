// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package search implements the hybrid query engine: semantic and keyword
// sub-queries over the embedding records, merged into one ranked,
// deduplicated result list.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/embeddings"
)

// Search modes
const (
	ModeSemantic = "semantic"
	ModeKeyword  = "keyword"
	ModeHybrid   = "hybrid"
)

// Result origins
const (
	OriginSemantic = "semantic"
	OriginKeyword  = "keyword"
)

const defaultLimit = 10

// Query describes one search request.
type Query struct {
	ProjectID   string
	Text        string
	Mode        string   // semantic, keyword or hybrid (default hybrid)
	ContentType string   // optional filter
	Tags        []string // optional filter, all tags must be present
	Limit       int
}

// Result is one ranked search hit with provenance.
type Result struct {
	SourceKind  string              `json:"source_kind"`
	SourceID    string              `json:"source_id"`
	ContentType string              `json:"content_type"`
	Text        string              `json:"text"`
	Tags        database.StringList `json:"tags,omitempty"`
	Score       float64             `json:"score"`
	Origin      string              `json:"origin"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// Searcher executes hybrid queries against the store.
type Searcher struct {
	db      *gorm.DB
	gateway *embeddings.Gateway
	logger  zerolog.Logger
}

// NewSearcher creates a new searcher
func NewSearcher(db *gorm.DB, gateway *embeddings.Gateway, logger zerolog.Logger) *Searcher {
	return &Searcher{db: db, gateway: gateway, logger: logger}
}

// Search runs the requested sub-queries and merges their results. Hybrid
// mode concatenates semantic hits first, then keyword hits, drops duplicate
// records keeping the first (highest ranked) occurrence, and truncates to
// the limit. An unreachable embedding service silently reduces hybrid to
// keyword-only; it is never an error.
func (s *Searcher) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Mode == "" {
		q.Mode = ModeHybrid
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}

	switch q.Mode {
	case ModeSemantic:
		return s.semanticSearch(ctx, q)
	case ModeKeyword:
		return s.keywordSearch(ctx, q)
	case ModeHybrid:
		semantic, err := s.semanticSearch(ctx, q)
		if err != nil {
			return nil, err
		}
		keyword, err := s.keywordSearch(ctx, q)
		if err != nil {
			return nil, err
		}
		return mergeResults(semantic, keyword, q.Limit), nil
	default:
		return nil, fmt.Errorf("unknown search mode: %s", q.Mode)
	}
}

// filtered applies the scope, content-type and tag filters. Filters restrict
// the candidate set of both sub-queries before ranking and limiting, so a
// tag filter shrinks what gets ranked, not just the final slice.
func (s *Searcher) filtered(ctx context.Context, q Query) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&database.EmbeddingRecord{}).
		Where("project_id = ?", q.ProjectID)
	if q.ContentType != "" {
		tx = tx.Where("content_type = ?", q.ContentType)
	}
	for _, tag := range q.Tags {
		// Tags are stored as a JSON array; matching the quoted element keeps
		// the filter inside the store instead of post-filtering a full scan.
		tx = tx.Where(`tags LIKE ? ESCAPE '\'`, "%\""+EscapeLike(tag)+"\"%")
	}
	return tx
}

// semanticSearch embeds the query text and ranks candidate vectors by cosine
// similarity, best first. No vector for the query (service unreachable,
// empty query text) yields zero results, not an error.
func (s *Searcher) semanticSearch(ctx context.Context, q Query) ([]Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return []Result{}, nil
	}

	queryVec, ok := s.gateway.EmbedOne(ctx, q.Text)
	if !ok {
		s.logger.Debug().Msg("No query vector available, semantic results empty")
		return []Result{}, nil
	}

	var records []database.EmbeddingRecord
	err := s.filtered(ctx, q).
		Where("vector IS NOT NULL").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("semantic candidate query failed: %w", err)
	}

	results := make([]Result, 0, len(records))
	for _, rec := range records {
		vec := embeddings.BlobToFloat32Slice(rec.Vector)
		if vec == nil || len(vec) != len(queryVec) {
			continue
		}
		sim := embeddings.CosineSimilarity(queryVec, vec)
		results = append(results, resultFromRecord(rec, OriginSemantic, embeddings.NormalizeScore(sim)))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

// keywordSearch does a case-insensitive substring match of the query against
// record text, most recent first. Wildcard characters in the query are
// escaped so user input always matches literally. A keyword result carries a
// sentinel score of 0: recency is its only ranking signal.
func (s *Searcher) keywordSearch(ctx context.Context, q Query) ([]Result, error) {
	if strings.TrimSpace(q.Text) == "" {
		return []Result{}, nil
	}

	pattern := "%" + EscapeLike(q.Text) + "%"
	var records []database.EmbeddingRecord
	err := s.filtered(ctx, q).
		Where(`LOWER(text) LIKE LOWER(?) ESCAPE '\'`, pattern).
		Order("updated_at DESC").
		Limit(q.Limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("keyword query failed: %w", err)
	}

	results := make([]Result, 0, len(records))
	for _, rec := range records {
		results = append(results, resultFromRecord(rec, OriginKeyword, 0))
	}
	return results, nil
}

// mergeResults concatenates semantic results before keyword results, removes
// duplicate records keeping the first occurrence, and truncates.
func mergeResults(semantic, keyword []Result, limit int) []Result {
	seen := make(map[string]bool, len(semantic)+len(keyword))
	merged := make([]Result, 0, len(semantic)+len(keyword))
	for _, list := range [][]Result{semantic, keyword} {
		for _, r := range list {
			key := r.SourceKind + "|" + r.SourceID + "|" + r.ContentType
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
		}
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func resultFromRecord(rec database.EmbeddingRecord, origin string, score float64) Result {
	return Result{
		SourceKind:  rec.SourceKind,
		SourceID:    rec.SourceID,
		ContentType: rec.ContentType,
		Text:        rec.Text,
		Tags:        rec.Tags,
		Score:       score,
		Origin:      origin,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// EscapeLike escapes LIKE wildcards (%, _) and the escape character itself
// so query text is always treated as a literal substring.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
