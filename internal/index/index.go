// Package index maintains a derived SQLite search index over permanent
// memory entries. The markdown store stays authoritative: the index is a
// cache keyed by the store fingerprint and rebuilt whenever they disagree.
// It also persists per-entry access counts for frequency-based ranking.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/mnemo/internal/model"
	"github.com/rcliao/mnemo/internal/similarity"
)

// Index is the SQLite-backed search cache.
type Index struct {
	db *sql.DB
}

// Open opens or creates the index database at the given path.
func Open(dbPath string) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	ix := &Index{db: db}
	if err := ix.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return ix, nil
}

func (ix *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL,
		text          TEXT NOT NULL,
		confidence    REAL NOT NULL DEFAULT 0,
		created_at    TEXT,
		source_line   INTEGER,
		superseded_by TEXT,
		pinned        INTEGER NOT NULL DEFAULT 0,
		access_count  INTEGER NOT NULL DEFAULT 0,
		last_accessed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_entries_kind ON entries(kind);
	CREATE INDEX IF NOT EXISTS idx_entries_created ON entries(created_at DESC);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
		text,
		content=entries,
		content_rowid=rowid
	);
	`
	if _, err := ix.db.Exec(schema); err != nil {
		return err
	}

	// FTS5 triggers for automatic sync
	ix.db.Exec(`CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
		INSERT INTO entries_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)
	ix.db.Exec(`CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, text) VALUES('delete', old.rowid, old.text);
	END`)
	ix.db.Exec(`CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
		INSERT INTO entries_fts(entries_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		INSERT INTO entries_fts(rowid, text) VALUES (new.rowid, new.text);
	END`)

	return nil
}

// Fingerprint returns the store fingerprint the index was last built from,
// empty when the index has never been built.
func (ix *Index) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := ix.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'fingerprint'`).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fp, err
}

// Rebuild replaces the indexed entries with the given set and records the
// fingerprint they were parsed from. Access counts survive the rebuild for
// entries whose IDs are stable.
func (ix *Index) Rebuild(ctx context.Context, entries []model.Entry, fingerprint string) error {
	counts, err := ix.AccessCounts(ctx)
	if err != nil {
		return err
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	for _, e := range entries {
		if err := insertEntry(ctx, tx, e, counts[e.ID]); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('fingerprint', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fingerprint); err != nil {
		return err
	}
	return tx.Commit()
}

// Insert adds one entry and advances the recorded fingerprint, keeping the
// index in step with an engine-owned append without a full rebuild.
func (ix *Index) Insert(ctx context.Context, e model.Entry, fingerprint string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertEntry(ctx, tx, e, 0); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('fingerprint', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fingerprint); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertEntry(ctx context.Context, tx execer, e model.Entry, accessCount int) error {
	var createdAt *string
	if !e.CreatedAt.IsZero() {
		s := e.CreatedAt.UTC().Format(time.RFC3339)
		createdAt = &s
	}
	var superseded *string
	if e.SupersededBy != "" {
		superseded = &e.SupersededBy
	}
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO entries
		   (id, kind, text, confidence, created_at, source_line, superseded_by, pinned, access_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.Text, e.Confidence, createdAt, e.SourceLine,
		superseded, boolInt(e.Pinned), accessCount)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Search runs a full-text query over indexed entries, best match first. The
// query is tokenized and OR-joined so loose prose queries still match.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]model.Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	tokens := similarity.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	match := strings.Join(quoted, " OR ")

	rows, err := ix.db.QueryContext(ctx, `
		SELECT e.id, e.kind, e.text, e.confidence, e.created_at, e.source_line,
		       e.superseded_by, e.pinned
		FROM entries_fts f
		JOIN entries e ON e.rowid = f.rowid
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		// FTS can reject exotic tokens; fall back to a substring scan.
		return ix.likeSearch(ctx, query, limit)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (ix *Index) likeSearch(ctx context.Context, query string, limit int) ([]model.Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, kind, text, confidence, created_at, source_line, superseded_by, pinned
		FROM entries WHERE text LIKE ?
		ORDER BY created_at DESC LIMIT ?`, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]model.Entry, error) {
	var out []model.Entry
	for rows.Next() {
		var e model.Entry
		var kind string
		var createdAt, superseded sql.NullString
		var pinned int
		if err := rows.Scan(&e.ID, &kind, &e.Text, &e.Confidence, &createdAt,
			&e.SourceLine, &superseded, &pinned); err != nil {
			return nil, err
		}
		e.Kind = model.Kind(kind)
		e.Pinned = pinned == 1
		if createdAt.Valid {
			e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt.String)
		}
		if superseded.Valid {
			e.SupersededBy = superseded.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AccessCounts returns access_count per entry id.
func (ix *Index) AccessCounts(ctx context.Context) (map[string]int, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT id, access_count FROM entries WHERE access_count > 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// Touch increments access counts for the given entries.
func (ix *Index) Touch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		if _, err := ix.db.ExecContext(ctx,
			`UPDATE entries SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`,
			now, id); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of indexed entries.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// Close closes the database.
func (ix *Index) Close() error {
	return ix.db.Close()
}

// All returns every indexed entry, newest first.
func (ix *Index) All(ctx context.Context) ([]model.Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT id, kind, text, confidence, created_at, source_line, superseded_by, pinned
		FROM entries ORDER BY created_at DESC, source_line ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}
