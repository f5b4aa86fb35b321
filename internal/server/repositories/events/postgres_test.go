package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func strPtr(s string) *string { return &s }

func TestAdd(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	id := strPtr("bob")

	mock.ExpectExec(`INSERT\s+INTO\s+security_events`).
		WithArgs("e1", "10.0.0.1", id, "login_failed", "bad password", "medium", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Add(context.Background(), &models.SecurityEvent{
		ID: "e1", Origin: "10.0.0.1", Identity: id, Kind: models.EventLoginFailed,
		Description: "bad password", Severity: models.SeverityMedium, CreatedAt: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT\s+INTO\s+security_events`).WillReturnError(errors.New("boom"))

	err := repo.Add(context.Background(), &models.SecurityEvent{ID: "e1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestWhere(t *testing.T) {
	clause, args := where(models.EventFilter{})
	assert.Empty(t, clause)
	assert.Empty(t, args)

	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	clause, args = where(models.EventFilter{Severity: models.SeverityHigh, Origin: "10.0.0.1", Since: since})
	assert.Equal(t, " WHERE severity = $1 AND origin = $2 AND created_at >= $3", clause)
	assert.Equal(t, []any{"high", "10.0.0.1", since}, args)
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)\s+FROM\s+security_events\s+WHERE\s+severity\s*=\s*\$1`).
		WithArgs("high").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`(?s)FROM\s+security_events\s+WHERE\s+severity\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC\s+LIMIT\s+\$2\s+OFFSET\s+\$3`).
		WithArgs("high", 2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "origin", "identity", "kind", "description", "severity", "created_at"}).
			AddRow("e1", "10.0.0.1", "bob", "account_locked", "d", "high", now).
			AddRow("e2", "10.0.0.2", nil, "origin_blocked", "d", "high", now))

	list, total, err := repo.List(context.Background(), models.EventFilter{Severity: models.SeverityHigh, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, list, 2)
	require.NotNil(t, list[0].Identity)
	assert.Equal(t, "bob", *list[0].Identity)
	assert.Nil(t, list[1].Identity)
	assert.Equal(t, models.EventOriginBlocked, list[1].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)date_trunc.*GROUP\s+BY\s+day,\s+severity`).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"day", "severity", "count"}).
			AddRow(since, "low", 4).
			AddRow(since, "high", 1))

	stats, err := repo.Stats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []models.EventStat{
		{Day: since, Severity: models.SeverityLow, Count: 4},
		{Day: since, Severity: models.SeverityHigh, Count: 1},
	}, stats)
}

func TestMemoryRepository_ListAndStats(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		sev := models.SeverityLow
		if i%2 == 0 {
			sev = models.SeverityHigh
		}
		require.NoError(t, repo.Add(ctx, &models.SecurityEvent{
			ID: string(rune('a' + i)), Origin: "10.0.0.1", Kind: models.EventLoginFailed,
			Severity: sev, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	page, total, err := repo.List(ctx, models.EventFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, "d", page[0].ID)
	assert.Equal(t, "c", page[1].ID)

	high, total, _ := repo.List(ctx, models.EventFilter{Severity: models.SeverityHigh, Limit: 10})
	assert.Equal(t, 3, total)
	assert.Len(t, high, 3)

	empty, total, _ := repo.List(ctx, models.EventFilter{Limit: 10, Offset: 10})
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)

	stats, err := repo.Stats(ctx, base)
	require.NoError(t, err)
	day := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []models.EventStat{
		{Day: day, Severity: models.SeverityHigh, Count: 3},
		{Day: day, Severity: models.SeverityLow, Count: 2},
	}, stats)

	require.NoError(t, repo.DeleteAll(ctx))
	_, total, _ = repo.List(ctx, models.EventFilter{})
	assert.Zero(t, total)
}
