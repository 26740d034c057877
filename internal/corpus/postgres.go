package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"

	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-frequency-search/pkg/postgres"
)

// Schema of the abstracts table. Rows keep null abstracts; the filters are
// applied when documents are read.
const Schema = `
CREATE TABLE IF NOT EXISTS abstracts (
    cord_uid      TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    abstract      TEXT,
    publish_time  TEXT NOT NULL DEFAULT '',
    url           TEXT NOT NULL DEFAULT '',
    has_full_text BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS abstracts_cord_uid_idx ON abstracts (cord_uid);
`

// PostgresStore serves documents and metadata from the abstracts table.
type PostgresStore struct {
	db              *postgres.Client
	requireFullText bool
	logger          *slog.Logger
}

func NewPostgresStore(db *postgres.Client, requireFullText bool) *PostgresStore {
	return &PostgresStore{
		db:              db,
		requireFullText: requireFullText,
		logger:          slog.Default().With("component", "postgres-corpus"),
	}
}

// Migrate creates the abstracts table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrating abstracts table: %w", err)
	}
	return nil
}

// Documents streams non-empty abstracts ordered by identifier.
func (s *PostgresStore) Documents(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		query := `SELECT cord_uid, abstract FROM abstracts
			WHERE abstract IS NOT NULL AND abstract <> ''
			AND ($1 = FALSE OR has_full_text)
			ORDER BY cord_uid`
		rows, err := s.db.DB.QueryContext(ctx, query, s.requireFullText)
		if err != nil {
			yield(Document{}, fmt.Errorf("querying abstracts: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var doc Document
			if err := rows.Scan(&doc.ID, &doc.Text); err != nil {
				yield(Document{}, fmt.Errorf("scanning abstract row: %w", err))
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Document{}, fmt.Errorf("iterating abstracts: %w", err))
		}
	}
}

// Lookup loads metadata for ids with a single ANY($1) query.
func (s *PostgresStore) Lookup(ctx context.Context, ids []string) (map[string]Metadata, error) {
	out := make(map[string]Metadata, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT cord_uid, title, COALESCE(abstract, ''), publish_time, url
		FROM abstracts WHERE cord_uid = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("looking up metadata: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var md Metadata
		if err := rows.Scan(&md.DocID, &md.Title, &md.Abstract, &md.PublishTime, &md.URL); err != nil {
			return nil, fmt.Errorf("scanning metadata row: %w", err)
		}
		if _, seen := out[md.DocID]; !seen {
			out[md.DocID] = md
		}
	}
	return out, rows.Err()
}

// Import replaces the table contents with records using COPY. Malformed
// records are skipped; any other error rolls the import back.
func (s *PostgresStore) Import(ctx context.Context, records iter.Seq2[Record, error]) (int, error) {
	imported := 0
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE abstracts`); err != nil {
			return fmt.Errorf("truncating abstracts: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("abstracts",
			"cord_uid", "title", "abstract", "publish_time", "url", "has_full_text"))
		if err != nil {
			return fmt.Errorf("preparing copy: %w", err)
		}
		defer stmt.Close()
		for rec, err := range records {
			if err != nil {
				if apperrors.Is(err, apperrors.ErrMalformedDocument) {
					s.logger.Warn("skipping malformed record", "error", err)
					continue
				}
				return err
			}
			var abstract sql.NullString
			if rec.Abstract != "" {
				abstract = sql.NullString{String: rec.Abstract, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, rec.DocID, rec.Title, abstract, rec.PublishTime, rec.URL, rec.HasFullText); err != nil {
				return fmt.Errorf("copying record %s: %w", rec.DocID, err)
			}
			imported++
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("flushing copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("corpus imported", "records", imported)
	return imported, nil
}
