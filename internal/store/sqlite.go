package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-finder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id     TEXT PRIMARY KEY,
	name         TEXT,
	full_address TEXT,
	phone        TEXT,
	site         TEXT,
	type         TEXT,
	emails       TEXT,
	socials      TEXT,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	emailsJSON, err := marshalEmails(lead.Emails)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal emails")
	}

	// created_at is set on insert only; the conflict branch leaves it alone.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (place_id, name, full_address, phone, site, type, emails, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (place_id) DO UPDATE SET
		   name = excluded.name, full_address = excluded.full_address,
		   phone = excluded.phone, site = excluded.site,
		   type = excluded.type, emails = excluded.emails`,
		lead.PlaceID,
		nullable(lead.Name),
		nullable(lead.FullAddress),
		nullable(lead.Phone),
		nullable(lead.Site),
		nullable(lead.Type),
		emailsJSON,
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert lead %s", lead.PlaceID)
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_id, name, full_address, phone, site, type, emails, created_at FROM leads ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var name, fullAddress, phone, site, typ, emailsJSON sql.NullString

		if err := rows.Scan(&l.PlaceID, &name, &fullAddress, &phone, &site, &typ, &emailsJSON, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.Name = name.String
		l.FullAddress = fullAddress.String
		l.Phone = phone.String
		l.Site = site.String
		l.Type = typ.String

		var raw *string
		if emailsJSON.Valid {
			raw = &emailsJSON.String
		}
		emails, err := unmarshalEmails(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal emails for %s", l.PlaceID)
		}
		l.Emails = emails

		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, placeID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE place_id = ?`, placeID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", placeID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CountLeads(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count leads")
}
