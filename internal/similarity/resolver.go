// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package similarity

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/cortexmemory/cortex-mcp/internal/database"
)

// candidateLimit bounds how many recent records the in-process strategy
// scores per lookup.
const candidateLimit = 500

// MatchQuery describes one duplicate lookup on the write path.
type MatchQuery struct {
	ProjectID    string
	Kind         string  // database.KindNote, KindInstruction or KindError
	Discriminant string  // secondary grouping key, e.g. note category
	Text         string
	Threshold    float64 // kind-specific, from config
}

// Match is a resolved duplicate.
type Match struct {
	ID    string
	Score float64
}

// strategy is one way of answering a duplicate lookup. A strategy either
// gives a definitive answer (found or not found) or errors, in which case the
// resolver tries the next one. Making the fallback order an explicit list
// keeps it testable instead of burying it in nested error handling.
type strategy interface {
	name() string
	find(ctx context.Context, db *gorm.DB, q MatchQuery) (Match, bool, error)
}

// Resolver finds the best existing match for candidate text within a scope.
// Strategies run in order: store-side trigram similarity (postgres pg_trgm),
// in-process trigram scoring, exact equality. The resolver never fails the
// write path; running out of strategies just reports no match.
type Resolver struct {
	strategies []strategy
	logger     zerolog.Logger
}

// NewResolver creates a resolver with the default strategy chain.
func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{
		strategies: []strategy{
			storeSimilarity{},
			localTrigram{},
			exactMatch{},
		},
		logger: logger,
	}
}

// newResolverWithStrategies is for tests that pin a specific chain.
func newResolverWithStrategies(logger zerolog.Logger, strategies ...strategy) *Resolver {
	return &Resolver{strategies: strategies, logger: logger}
}

// FindMatch returns the best existing record above the query's threshold, or
// ok=false when nothing in scope is close enough.
func (r *Resolver) FindMatch(ctx context.Context, db *gorm.DB, q MatchQuery) (Match, bool) {
	if q.Text == "" {
		return Match{}, false
	}

	for _, s := range r.strategies {
		match, found, err := s.find(ctx, db, q)
		if err != nil {
			r.logger.Debug().Err(err).Str("strategy", s.name()).Str("kind", q.Kind).
				Msg("Match strategy unavailable, trying next")
			continue
		}
		if found && match.Score >= q.Threshold {
			return match, true
		}
		// Definitive answer below threshold: no duplicate.
		return Match{}, false
	}

	return Match{}, false
}

// tableSpec maps a memory kind to its table and columns.
type tableSpec struct {
	table        string
	textColumn   string
	discriminant string // empty when the kind has no secondary grouping key
}

func specForKind(kind string) (tableSpec, error) {
	switch kind {
	case database.KindNote:
		return tableSpec{table: "notes", textColumn: "content", discriminant: "category"}, nil
	case database.KindInstruction:
		return tableSpec{table: "instructions", textColumn: "content"}, nil
	case database.KindError:
		return tableSpec{table: "error_patterns", textColumn: "error_message", discriminant: "error_type"}, nil
	default:
		return tableSpec{}, fmt.Errorf("kind %q has no duplicate resolution", kind)
	}
}

// scopedQuery applies the scope and discriminant filters for a lookup.
func scopedQuery(db *gorm.DB, spec tableSpec, q MatchQuery) *gorm.DB {
	tx := db.Table(spec.table).Where("project_id = ?", q.ProjectID)
	if spec.discriminant != "" && q.Discriminant != "" {
		tx = tx.Where(spec.discriminant+" = ?", q.Discriminant)
	}
	return tx
}

// storeSimilarity asks the store itself to rank candidates, using the
// pg_trgm similarity() function. Only attempted on postgres; anywhere else
// it errors immediately so the chain moves on.
type storeSimilarity struct{}

func (storeSimilarity) name() string { return "store_similarity" }

func (storeSimilarity) find(ctx context.Context, db *gorm.DB, q MatchQuery) (Match, bool, error) {
	if !database.IsPostgres(db) {
		return Match{}, false, fmt.Errorf("store similarity requires postgres")
	}

	spec, err := specForKind(q.Kind)
	if err != nil {
		return Match{}, false, err
	}

	var row struct {
		ID    string
		Score float64
	}
	tx := scopedQuery(db.WithContext(ctx), spec, q).
		Select("id, similarity("+spec.textColumn+", ?) AS score", q.Text).
		Order("score DESC").
		Limit(1).
		Scan(&row)
	if tx.Error != nil {
		// pg_trgm missing or query failure; fall through to the next strategy.
		return Match{}, false, fmt.Errorf("similarity query failed: %w", tx.Error)
	}
	if tx.RowsAffected == 0 || row.ID == "" {
		return Match{}, false, nil
	}
	return Match{ID: row.ID, Score: row.Score}, true, nil
}

// localTrigram loads a bounded set of recent candidates and scores them
// in-process with the same trigram measure pg_trgm uses.
type localTrigram struct{}

func (localTrigram) name() string { return "local_trigram" }

func (localTrigram) find(ctx context.Context, db *gorm.DB, q MatchQuery) (Match, bool, error) {
	spec, err := specForKind(q.Kind)
	if err != nil {
		return Match{}, false, err
	}

	var rows []struct {
		ID   string
		Text string
	}
	tx := scopedQuery(db.WithContext(ctx), spec, q).
		Select("id, " + spec.textColumn + " AS text").
		Order("created_at DESC").
		Limit(candidateLimit).
		Scan(&rows)
	if tx.Error != nil {
		return Match{}, false, fmt.Errorf("candidate query failed: %w", tx.Error)
	}

	best := Match{}
	for _, row := range rows {
		score := Similarity(q.Text, row.Text)
		if score > best.Score {
			best = Match{ID: row.ID, Score: score}
		}
	}
	if best.ID == "" {
		return Match{}, false, nil
	}
	return best, true, nil
}

// exactMatch is the last resort when no fuzzy capability worked: plain
// string equality on the same scope and discriminant.
type exactMatch struct{}

func (exactMatch) name() string { return "exact_match" }

func (exactMatch) find(ctx context.Context, db *gorm.DB, q MatchQuery) (Match, bool, error) {
	spec, err := specForKind(q.Kind)
	if err != nil {
		return Match{}, false, err
	}

	var row struct {
		ID string
	}
	tx := scopedQuery(db.WithContext(ctx), spec, q).
		Select("id").
		Where(spec.textColumn+" = ?", q.Text).
		Limit(1).
		Scan(&row)
	if tx.Error != nil {
		return Match{}, false, fmt.Errorf("exact match query failed: %w", tx.Error)
	}
	if tx.RowsAffected == 0 || row.ID == "" {
		return Match{}, false, nil
	}
	return Match{ID: row.ID, Score: 1}, true, nil
}
