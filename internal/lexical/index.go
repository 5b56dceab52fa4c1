// Package lexical implements the Lexical Index Gateway (component I): a
// BM25 index over chunk text, keyed by document/chunk identity, queried
// by the hybrid-retrieval pipeline alongside dense search results.
// Index construction (component I's write path) is the ingestion
// pipeline's responsibility; read access is through Query, matching the
// spec's "read-only from retrieval's perspective" framing.
//
// No pack example builds a text-search index (the teacher's closest
// analogue, internal/retrieval/sparse.go, shells out to ripgrep over a
// code repository — a different problem entirely, so nothing there was
// adaptable). BM25 itself is implemented directly against the standard
// library (see DESIGN.md): no example repo imports a BM25/inverted-index
// library (e.g. no bleve, no blevesearch), so this is the one place the
// domain logic itself, not just its plumbing, is hand-written rather than
// grounded on a pack dependency.
package lexical

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Result is one scored BM25 hit: (point_id, document_id, score, rank),
// matching spec §4.I's (document_id, score, rank) contract at chunk
// granularity so fusion in internal/retrieval can key on the same point
// identity the dense side uses.
type Result struct {
	PointID    string
	DocumentID string
	Score      float64
	Rank       int // 0-based, per spec §8 scenario 3
}

// Index is the BM25 lexical index, backed by a SQLite postings table.
type Index struct {
	conn *sql.DB
}

// New constructs an Index and ensures its backing tables exist.
func New(ctx context.Context, conn *sql.DB) (*Index, error) {
	idx := &Index{conn: conn}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lexical_chunks (
			point_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			length INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lexical_postings (
			term TEXT NOT NULL,
			point_id TEXT NOT NULL,
			term_freq INTEGER NOT NULL,
			PRIMARY KEY (term, point_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lexical_postings_term ON lexical_postings(term)`,
		`CREATE INDEX IF NOT EXISTS idx_lexical_chunks_document ON lexical_chunks(document_id)`,
	}
	for _, s := range stmts {
		if _, err := idx.conn.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("create lexical index schema: %w", err)
		}
	}
	return nil
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}

// AddDocument indexes (or reindexes) one chunk's text under pointID,
// associated with documentID for result grouping.
func (idx *Index) AddDocument(ctx context.Context, pointID, documentID, text string) error {
	tokens := tokenize(text)

	tx, err := idx.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lexical index transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM lexical_postings WHERE point_id = ?`, pointID); err != nil {
		return fmt.Errorf("clear prior postings: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO lexical_chunks (point_id, document_id, length) VALUES (?, ?, ?)`,
		pointID, documentID, len(tokens))
	if err != nil {
		return fmt.Errorf("upsert lexical chunk: %w", err)
	}

	freqs := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freqs[t]++
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lexical_postings (term, point_id, term_freq) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare postings insert: %w", err)
	}
	defer stmt.Close()
	for term, freq := range freqs {
		if _, err := stmt.ExecContext(ctx, term, pointID, freq); err != nil {
			return fmt.Errorf("insert posting for %q: %w", term, err)
		}
	}

	return tx.Commit()
}

// Remove deletes a chunk's postings and length record, used when a chunk
// is re-indexed under a different point_id or a document is reprocessed.
func (idx *Index) Remove(ctx context.Context, pointID string) error {
	tx, err := idx.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM lexical_postings WHERE point_id = ?`, pointID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lexical_chunks WHERE point_id = ?`, pointID); err != nil {
		return err
	}
	return tx.Commit()
}

// Query scores every chunk containing at least one query term by BM25,
// returning the topK highest-scoring results ordered desc with 0-based
// ranks assigned by position.
func (idx *Index) Query(ctx context.Context, queryText string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}
	terms := uniqueTerms(tokenize(queryText))
	if len(terms) == 0 {
		return nil, nil
	}

	var totalChunks int
	if err := idx.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM lexical_chunks`).Scan(&totalChunks); err != nil {
		return nil, fmt.Errorf("count lexical chunks: %w", err)
	}
	if totalChunks == 0 {
		return nil, nil
	}
	var totalLength int64
	if err := idx.conn.QueryRowContext(ctx, `SELECT COALESCE(SUM(length), 0) FROM lexical_chunks`).Scan(&totalLength); err != nil {
		return nil, fmt.Errorf("sum lexical chunk lengths: %w", err)
	}
	avgLength := float64(totalLength) / float64(totalChunks)
	if avgLength == 0 {
		avgLength = 1
	}

	scores := make(map[string]float64)
	docIDs := make(map[string]string)

	for _, term := range terms {
		var df int
		if err := idx.conn.QueryRowContext(ctx,
			`SELECT COUNT(DISTINCT point_id) FROM lexical_postings WHERE term = ?`, term).Scan(&df); err != nil {
			return nil, fmt.Errorf("count document frequency for %q: %w", term, err)
		}
		if df == 0 {
			continue
		}
		idf := math.Log((float64(totalChunks)-float64(df)+0.5)/(float64(df)+0.5) + 1)

		rows, err := idx.conn.QueryContext(ctx, `
			SELECT p.point_id, p.term_freq, c.document_id, c.length
			FROM lexical_postings p JOIN lexical_chunks c ON c.point_id = p.point_id
			WHERE p.term = ?`, term)
		if err != nil {
			return nil, fmt.Errorf("scan postings for %q: %w", term, err)
		}
		for rows.Next() {
			var pointID, documentID string
			var termFreq, length int
			if err := rows.Scan(&pointID, &termFreq, &documentID, &length); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan posting row: %w", err)
			}
			tf := float64(termFreq)
			norm := 1 - bm25B + bm25B*(float64(length)/avgLength)
			scores[pointID] += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*norm)
			docIDs[pointID] = documentID
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	results := make([]Result, 0, len(scores))
	for pointID, score := range scores {
		results = append(results, Result{PointID: pointID, DocumentID: docIDs[pointID], Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Rank = i
	}
	return results, nil
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
