// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package search

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cortexmemory/cortex-mcp/internal/database"
	"github.com/cortexmemory/cortex-mcp/internal/embeddings"
)

const testProject = "default"

func setupSearchDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect(&database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   gormlogger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { database.Close(db) })
	return db
}

// axisClient embeds known phrases onto fixed axes so cosine ranking in tests
// is deterministic.
type axisClient struct {
	axes map[string]int
}

func (c *axisClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 4)
		axis, ok := c.axes[text]
		if !ok {
			return nil, fmt.Errorf("no axis for %q", text)
		}
		vec[axis] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func (c *axisClient) Health(ctx context.Context) error { return nil }

func (c *axisClient) Dimensions() int { return 4 }

func axisVector(axis int, weight float32) []byte {
	vec := make([]float32, 4)
	vec[axis] = weight
	return embeddings.Float32SliceToBlob(vec)
}

func newSearcher(t *testing.T, db *gorm.DB, client embeddings.Client) *Searcher {
	t.Helper()
	gateway := embeddings.NewGateway(embeddings.GatewayConfig{
		Client: client,
		Logger: zerolog.Nop(),
	})
	return NewSearcher(db, gateway, zerolog.Nop())
}

func seedRecord(t *testing.T, db *gorm.DB, rec database.EmbeddingRecord) {
	t.Helper()
	if rec.ProjectID == "" {
		rec.ProjectID = testProject
	}
	require.NoError(t, db.Create(&rec).Error)
}

func TestSearch_KeywordMatch(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "Use JWT for authentication",
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n2", ContentType: "general",
		Text: "Prefer table driven tests",
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].SourceID)
	assert.Equal(t, OriginKeyword, results[0].Origin)
	assert.Equal(t, 0.0, results[0].Score, "keyword hits carry the sentinel score")
}

func TestSearch_KeywordCaseInsensitive(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "The ECONNRESET error comes from the proxy",
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "econnreset", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_KeywordEscapesWildcards(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "rollout is at 100% of traffic",
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n2", ContentType: "general",
		Text: "rollout is at 100x of traffic",
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n3", ContentType: "general",
		Text: "the env_var convention uses underscores",
	})

	s := newSearcher(t, db, nil)

	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "100%", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	require.Len(t, results, 1, "%% must match literally, not as a wildcard")
	assert.Equal(t, "n1", results[0].SourceID)

	results, err = s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "env_var", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	require.Len(t, results, 1, "_ must match literally, not as a wildcard")
	assert.Equal(t, "n3", results[0].SourceID)
}

func TestSearch_KeywordRecencyOrder(t *testing.T) {
	db := setupSearchDB(t)
	old := time.Now().Add(-time.Hour)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "old", ContentType: "general",
		Text: "shared term", UpdatedAt: old,
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "new", ContentType: "general",
		Text: "shared term too", UpdatedAt: time.Now(),
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "shared term", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "new", results[0].SourceID)
}

func TestSearch_SemanticRanking(t *testing.T) {
	db := setupSearchDB(t)
	// Axis 0 is the query concept; n1 aligns fully, n2 partially, n3 not at all.
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "exact concept", Vector: axisVector(0, 1),
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n2", ContentType: "general",
		Text: "related concept", Vector: embeddings.Float32SliceToBlob([]float32{1, 1, 0, 0}),
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n3", ContentType: "general",
		Text: "unrelated", Vector: axisVector(1, 1),
	})

	s := newSearcher(t, db, &axisClient{axes: map[string]int{"the query": 0}})
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "the query", Mode: ModeSemantic,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "n1", results[0].SourceID)
	assert.Equal(t, "n2", results[1].SourceID)
	assert.Equal(t, "n3", results[2].SourceID)
	assert.Equal(t, OriginSemantic, results[0].Origin)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestSearch_SemanticSkipsVectorlessRecords(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "degraded", ContentType: "general",
		Text: "written while the sidecar was down",
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "indexed", ContentType: "general",
		Text: "fully indexed", Vector: axisVector(0, 1),
	})

	s := newSearcher(t, db, &axisClient{axes: map[string]int{"query": 0}})
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "query", Mode: ModeSemantic,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "indexed", results[0].SourceID)
}

func TestSearch_HybridMergeDedup(t *testing.T) {
	db := setupSearchDB(t)
	// One record matches both sub-queries: semantically aligned and contains
	// the query substring. It must appear once, with its semantic ranking.
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "both", ContentType: "general",
		Text: "jwt everywhere", Vector: axisVector(0, 1),
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "keyword-only", ContentType: "general",
		Text: "jwt mentioned in passing", Vector: axisVector(1, 1),
	})

	s := newSearcher(t, db, &axisClient{axes: map[string]int{"jwt": 0}})
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeHybrid,
	})
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, r := range results {
		ids[r.SourceID]++
	}
	assert.Equal(t, 1, ids["both"], "a record found by both sub-queries appears once")
	assert.Equal(t, 1, ids["keyword-only"])
	// Semantic hits come first in the merged order.
	assert.Equal(t, "both", results[0].SourceID)
	assert.Equal(t, OriginSemantic, results[0].Origin)
}

func TestSearch_HybridDegradedFallsBackToKeyword(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "jwt note", Vector: axisVector(0, 1),
	})

	failing := &embeddings.MockClient{
		HealthFunc: func() error { return fmt.Errorf("connection refused") },
	}
	s := newSearcher(t, db, failing)

	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeHybrid,
	})
	require.NoError(t, err, "degraded hybrid search is not an error")
	require.Len(t, results, 1)
	assert.Equal(t, OriginKeyword, results[0].Origin)
}

func TestSearch_ContentTypeFilter(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "architecture",
		Text: "jwt decision",
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindError, SourceID: "e1", ContentType: database.ContentTypeError,
		Text: "jwt parse failure",
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword, ContentType: "architecture",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "n1", results[0].SourceID)
}

func TestSearch_TagFilter(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "tagged", ContentType: "general",
		Text: "jwt with tags", Tags: database.StringList{"auth", "security"},
	})
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "untagged", ContentType: "general",
		Text: "jwt without tags",
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword, Tags: []string{"auth", "security"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tagged", results[0].SourceID)

	results, err = s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword, Tags: []string{"auth", "missing"},
	})
	require.NoError(t, err)
	assert.Empty(t, results, "all requested tags must be present")
}

func TestSearch_FiltersApplyBeforeLimit(t *testing.T) {
	db := setupSearchDB(t)
	// Many untagged matches plus one tagged match; with the filter on, the
	// tagged record must be found even though the limit is 1.
	for i := 0; i < 5; i++ {
		seedRecord(t, db, database.EmbeddingRecord{
			SourceKind: database.KindNote, SourceID: fmt.Sprintf("n%d", i), ContentType: "general",
			Text: "jwt filler", UpdatedAt: time.Now(),
		})
	}
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "tagged", ContentType: "general",
		Text: "jwt tagged", Tags: database.StringList{"auth"},
		UpdatedAt: time.Now().Add(-time.Hour),
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword, Tags: []string{"auth"}, Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "tagged", results[0].SourceID)
}

func TestSearch_ScopeIsolation(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		ProjectID:  "other-project",
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "jwt elsewhere",
	})

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_EmptyQuery(t *testing.T) {
	db := setupSearchDB(t)
	seedRecord(t, db, database.EmbeddingRecord{
		SourceKind: database.KindNote, SourceID: "n1", ContentType: "general",
		Text: "anything",
	})

	s := newSearcher(t, db, nil)
	for _, mode := range []string{ModeSemantic, ModeKeyword, ModeHybrid} {
		results, err := s.Search(context.Background(), Query{
			ProjectID: testProject, Text: "   ", Mode: mode,
		})
		require.NoError(t, err)
		assert.Empty(t, results, "mode %s", mode)
	}
}

func TestSearch_UnknownMode(t *testing.T) {
	db := setupSearchDB(t)
	s := newSearcher(t, db, nil)

	_, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: "fuzzy",
	})
	assert.Error(t, err)
}

func TestSearch_LimitTruncates(t *testing.T) {
	db := setupSearchDB(t)
	for i := 0; i < 20; i++ {
		seedRecord(t, db, database.EmbeddingRecord{
			SourceKind: database.KindNote, SourceID: fmt.Sprintf("n%d", i), ContentType: "general",
			Text: "jwt filler",
		})
	}

	s := newSearcher(t, db, nil)
	results, err := s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword, Limit: 3,
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)

	// Zero limit falls back to the default of 10.
	results, err = s.Search(context.Background(), Query{
		ProjectID: testProject, Text: "jwt", Mode: ModeKeyword,
	})
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `env\_var`, EscapeLike("env_var"))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}

func TestMergeResults(t *testing.T) {
	semantic := []Result{
		{SourceKind: "note", SourceID: "a", ContentType: "general", Score: 0.9, Origin: OriginSemantic},
		{SourceKind: "note", SourceID: "b", ContentType: "general", Score: 0.7, Origin: OriginSemantic},
	}
	keyword := []Result{
		{SourceKind: "note", SourceID: "b", ContentType: "general", Origin: OriginKeyword},
		{SourceKind: "note", SourceID: "c", ContentType: "general", Origin: OriginKeyword},
	}

	merged := mergeResults(semantic, keyword, 10)
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].SourceID)
	assert.Equal(t, "b", merged[1].SourceID)
	assert.Equal(t, OriginSemantic, merged[1].Origin, "first occurrence wins for duplicates")
	assert.Equal(t, "c", merged[2].SourceID)

	truncated := mergeResults(semantic, keyword, 2)
	assert.Len(t, truncated, 2)
}
