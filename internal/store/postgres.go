package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-finder/internal/db"
	"github.com/sells-group/lead-finder/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection. Upserts
// dominate the workload: every successful poll replays the full result batch.
var preparedStatements = map[string]string{
	"upsert_lead": `INSERT INTO leads (place_id, name, full_address, phone, site, type, emails, created_at)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	 ON CONFLICT (place_id) DO UPDATE SET
	   name = $2, full_address = $3, phone = $4, site = $5, type = $6, emails = $7`,
	"list_leads":  `SELECT place_id, name, full_address, phone, site, type, emails, created_at FROM leads ORDER BY created_at DESC`,
	"delete_lead": `DELETE FROM leads WHERE place_id = $1`,
	"count_leads": `SELECT COUNT(*) FROM leads`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	place_id     TEXT PRIMARY KEY,
	name         TEXT,
	full_address TEXT,
	phone        TEXT,
	site         TEXT,
	type         TEXT,
	emails       TEXT,
	socials      TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead model.Lead) error {
	emailsJSON, err := marshalEmails(lead.Emails)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal emails")
	}

	// created_at is set on insert only; the conflict branch leaves it alone.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (place_id, name, full_address, phone, site, type, emails, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (place_id) DO UPDATE SET
		   name = $2, full_address = $3, phone = $4, site = $5, type = $6, emails = $7`,
		lead.PlaceID,
		nullable(lead.Name),
		nullable(lead.FullAddress),
		nullable(lead.Phone),
		nullable(lead.Site),
		nullable(lead.Type),
		emailsJSON,
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert lead %s", lead.PlaceID)
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_id, name, full_address, phone, site, type, emails, created_at FROM leads ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var l model.Lead
		var name, fullAddress, phone, site, typ, emailsJSON *string

		if err := rows.Scan(&l.PlaceID, &name, &fullAddress, &phone, &site, &typ, &emailsJSON, &l.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l.Name = deref(name)
		l.FullAddress = deref(fullAddress)
		l.Phone = deref(phone)
		l.Site = deref(site)
		l.Type = deref(typ)

		emails, err := unmarshalEmails(emailsJSON)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal emails for %s", l.PlaceID)
		}
		l.Emails = emails

		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) DeleteLead(ctx context.Context, placeID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE place_id = $1`, placeID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", placeID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountLeads(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count leads")
}

// helpers shared by both drivers

// marshalEmails serializes the email list for storage. An empty or nil list
// is stored as NULL, matching how absent enrichment comes back from the
// vendor.
func marshalEmails(emails []string) (*string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(emails)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// unmarshalEmails expands the stored email text back to a list. NULL reads
// back as the empty list, never nil.
func unmarshalEmails(raw *string) ([]string, error) {
	if raw == nil || *raw == "" {
		return []string{}, nil
	}
	var emails []string
	if err := json.Unmarshal([]byte(*raw), &emails); err != nil {
		return nil, err
	}
	if emails == nil {
		emails = []string{}
	}
	return emails, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
