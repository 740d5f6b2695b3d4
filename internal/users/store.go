// Package users provides the credential store behind login and user management.
package users

import (
	"context"
	"errors"
)

// Store persists password hashes keyed by username.
type Store interface {
	// GetHash returns the stored hash, or ErrNotFound.
	GetHash(ctx context.Context, username string) (string, error)
	// Insert adds a user, or returns ErrDuplicate if the username is taken.
	Insert(ctx context.Context, username, hash string) error
	// Delete removes a user, or returns ErrNotFound.
	Delete(ctx context.Context, username string) error
	// List returns all usernames in ascending order.
	List(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	ErrNotFound  = errors.New("users: user not found")
	ErrDuplicate = errors.New("users: username already exists")

	// ErrUnsupportedStore - USER_STORE names no known backend
	ErrUnsupportedStore = errors.New("users: unsupported store type")
)

func NewStore(ctx context.Context, kind, dsn string) (Store, error) {
	var (
		store Store
		err   error
	)

	switch kind {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		store, err = NewRedisStore(ctx, dsn)
	case "postgres", "postgresql":
		store, err = NewPostgresStore(ctx, dsn)
	case "mysql":
		store, err = NewMySQLStore(ctx, dsn)
	case "mongo", "mongodb":
		store, err = NewMongoStore(ctx, dsn)
	default:
		return nil, ErrUnsupportedStore
	}

	if err != nil {
		return nil, err
	}
	return store, nil
}
