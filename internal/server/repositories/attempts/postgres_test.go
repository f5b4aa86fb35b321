package attempts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func strPtr(s string) *string { return &s }

func TestAdd(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	at := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+failed_attempts\s*\(origin,\s*identity,\s*attempted_at\)`).
		WithArgs("10.0.0.1", strPtr("bob"), at).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Add(context.Background(), &models.FailedAttempt{Origin: "10.0.0.1", Identity: strPtr("bob"), AttemptedAt: at})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdd_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+failed_attempts`).WillReturnError(errors.New("down"))

	err := repo.Add(context.Background(), &models.FailedAttempt{Origin: "o"})
	assert.ErrorContains(t, err, "db error: down")
}

func TestCountByOrigin(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	since := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	until := since.Add(30 * time.Second)

	mock.ExpectQuery(`(?s)SELECT\s+COUNT\(\*\)\s+FROM\s+failed_attempts\s+WHERE\s+origin\s*=\s*\$1\s+AND\s+attempted_at\s*>=\s*\$2\s+AND\s+attempted_at\s*<=\s*\$3`).
		WithArgs("10.0.0.1", since, until).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := repo.CountByOrigin(context.Background(), "10.0.0.1", since, until)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountByIdentity_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`WHERE\s+identity\s*=\s*\$1`).WillReturnError(errors.New("boom"))

	_, err := repo.CountByIdentity(context.Background(), "bob", time.Now(), time.Now())
	assert.ErrorContains(t, err, "db error: boom")
}

func TestDeleteAll(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	mock.ExpectExec(`DELETE\s+FROM\s+failed_attempts`).WillReturnResult(sqlmock.NewResult(0, 4))
	require.NoError(t, repo.DeleteAll(context.Background()))
}

func TestMemoryRepository_WindowedCounts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	add := func(origin string, identity *string, at time.Time) {
		require.NoError(t, repo.Add(ctx, &models.FailedAttempt{Origin: origin, Identity: identity, AttemptedAt: at}))
	}

	add("10.0.0.1", strPtr("bob"), now.Add(-40*time.Second)) // outside window
	add("10.0.0.1", strPtr("bob"), now.Add(-20*time.Second))
	add("10.0.0.1", strPtr("alice"), now.Add(-10*time.Second))
	add("10.0.0.2", strPtr("bob"), now)
	add("10.0.0.1", nil, now)
	add("10.0.0.1", nil, now.Add(time.Minute)) // arrives "from the future"

	since := now.Add(-30 * time.Second)

	n, err := repo.CountByOrigin(ctx, "10.0.0.1", since, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CountByIdentity(ctx, "bob", since, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.DeleteAll(ctx))
	n, _ = repo.CountByOrigin(ctx, "10.0.0.1", since, now)
	assert.Zero(t, n)
}
