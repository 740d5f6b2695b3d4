package users

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockMySQL(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := newMySQLStore(context.Background(), db)
	require.NoError(t, err)
	return store, mock
}

func TestMySQLStore_GetHash(t *testing.T) {
	store, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT password_hash FROM users WHERE username = ?")).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}).AddRow("$2a$hash"))

	hash, err := store.GetHash(context.Background(), "bob")

	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", hash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_GetHashNotFound(t *testing.T) {
	store, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT password_hash FROM users WHERE username = ?")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"password_hash"}))

	_, err := store.GetHash(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_InsertDuplicate(t *testing.T) {
	store, mock := newMockMySQL(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, password_hash) VALUES (?, ?)")).
		WithArgs("bob", "h").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob' for key 'PRIMARY'"})

	err := store.Insert(context.Background(), "bob", "h")

	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Insert(t *testing.T) {
	store, mock := newMockMySQL(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (username, password_hash) VALUES (?, ?)")).
		WithArgs("bob", "h").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.Insert(context.Background(), "bob", "h"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Delete(t *testing.T) {
	store, mock := newMockMySQL(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE username = ?")).
		WithArgs("bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE username = ?")).
		WithArgs("bob").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), "bob"))
	assert.ErrorIs(t, store.Delete(context.Background(), "bob"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_List(t *testing.T) {
	store, mock := newMockMySQL(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT username FROM users ORDER BY username")).
		WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("admin").AddRow("bob"))

	names, err := store.List(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "bob"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}
