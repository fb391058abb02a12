package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-finder/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_UpsertLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(place_id\) DO UPDATE`).
		WithArgs("p1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertLead(context.Background(), model.Lead{
		PlaceID: "p1",
		Name:    "Acme Plumbing",
		Emails:  []string{"info@acme.com"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertLead_EmptyEmailsStoredNull(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// The emails argument (7th) must be a nil pointer when the list is empty.
	mock.ExpectExec(`ON CONFLICT \(place_id\) DO UPDATE`).
		WithArgs("p1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), (*string)(nil), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertLead(context.Background(), model.Lead{PlaceID: "p1", Name: "Acme"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	emails := `["a@x.com","b@y.com"]`
	rows := pgxmock.NewRows([]string{"place_id", "name", "full_address", "phone", "site", "type", "emails", "created_at"}).
		AddRow("p2", strPtr("Zenith"), strPtr("9 Oak Ave"), nil, nil, nil, (*string)(nil), now).
		AddRow("p1", strPtr("Acme"), strPtr("123 Main St"), strPtr("555-0101"), strPtr("acme.com"), strPtr("Plumber"), &emails, now.Add(-time.Hour))

	mock.ExpectQuery(`SELECT place_id, name, full_address, phone, site, type, emails, created_at FROM leads ORDER BY created_at DESC`).
		WillReturnRows(rows)

	leads, err := s.ListLeads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)

	assert.Equal(t, "p2", leads[0].PlaceID)
	assert.Equal(t, "Zenith", leads[0].Name)
	assert.Equal(t, []string{}, leads[0].Emails)

	assert.Equal(t, "p1", leads[1].PlaceID)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, leads[1].Emails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT place_id, name, full_address, phone, site, type, emails, created_at FROM leads`).
		WillReturnRows(pgxmock.NewRows([]string{"place_id", "name", "full_address", "phone", "site", "type", "emails", "created_at"}))

	leads, err := s.ListLeads(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM leads WHERE place_id = \$1`).
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteLead(context.Background(), "p1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteLead_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM leads WHERE place_id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteLead(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountLeads(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM leads`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountLeads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string {
	return &s
}
