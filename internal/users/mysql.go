package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlSchema = `CREATE TABLE IF NOT EXISTS users (
	username      VARCHAR(255) PRIMARY KEY,
	password_hash VARCHAR(255) NOT NULL
)`

	mysqlErrDuplicateEntry = 1062
)

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	store, err := newMySQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func newMySQLStore(ctx context.Context, db *sql.DB) (*MySQLStore, error) {
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

func (m *MySQLStore) GetHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := m.db.QueryRowContext(ctx, "SELECT password_hash FROM users WHERE username = ?", username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	return hash, nil
}

func (m *MySQLStore) Insert(ctx context.Context, username, hash string) error {
	_, err := m.db.ExecContext(ctx, "INSERT INTO users (username, password_hash) VALUES (?, ?)", username, hash)

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (m *MySQLStore) Delete(ctx context.Context, username string) error {
	res, err := m.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MySQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, "SELECT username FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read users: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (m *MySQLStore) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQLStore) Close() error {
	return m.db.Close()
}
