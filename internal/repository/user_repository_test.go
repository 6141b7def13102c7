package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "name", "email", "password_hash", "email_verified_at", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("staff@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow("u1", "Staff", "staff@example.com", "hash", now, now, now))

	user, err := repo.FindByEmail(context.Background(), "staff@example.com")
	require.NoError(t, err)
	assert.True(t, user.Verified())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAfterUsesKeysetCursor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users ORDER BY id ASC LIMIT 2")).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u1", "A", "a@example.com", "h", nil, now, now).
			AddRow("u2", "B", "b@example.com", "h", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id > $1 ORDER BY id ASC LIMIT 2")).
		WithArgs("u2").
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	first, err := repo.ListAfter(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.False(t, first[0].Verified())

	rest, err := repo.ListAfter(context.Background(), first[1].ID, 2)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.NoError(t, mock.ExpectationsWereMet())
}
