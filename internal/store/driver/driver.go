package driver

import (
	"context"
	"errors"
	"fmt"

	"kitabuddy/internal/config"
	"kitabuddy/internal/crypto"
	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
	"kitabuddy/internal/store/memory"
	"kitabuddy/internal/store/postgres"
	"kitabuddy/internal/store/sqlite"
)

// Open connects the document store selected by cfg.StoreDriver and applies
// its schema.
func Open(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connection: %w", err)
		}
		s := postgres.NewStore(pool)
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return s, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("sqlite migrate: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// EnsureUser creates the user when the student id is free. It reports
// whether a user was created.
func EnsureUser(ctx context.Context, users store.UserStore, studentID, name, role, password string) (bool, error) {
	if _, err := users.UserByStudentID(ctx, studentID); err == nil {
		return false, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = studentID
	}
	_, err = users.AddUser(ctx, model.User{StudentID: studentID, Name: name, Role: role, PasswordHash: hash})
	if errors.Is(err, store.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
