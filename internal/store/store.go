package store

import (
	"context"
	"errors"

	"kitabuddy/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type SettingsStore interface {
	Features(ctx context.Context) (model.FeatureSettings, error)
	// UpsertFeature merges the non-nil fields of patch into the stored setting.
	UpsertFeature(ctx context.Context, featureID string, patch model.FeaturePatch) error
	MaintenanceMode(ctx context.Context) (bool, error)
	SetMaintenanceMode(ctx context.Context, enabled bool) error
}

type UserStore interface {
	// UserByStudentID returns ErrNotFound when no user has studentID.
	UserByStudentID(ctx context.Context, studentID string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	// AddUser returns ErrConflict when the student id is taken.
	AddUser(ctx context.Context, user model.User) (model.User, error)
	UpdateUserRole(ctx context.Context, docID, role string) error
	DeleteUser(ctx context.Context, docID string) error
}

type ReportStore interface {
	// ListReports returns reports newest first.
	ListReports(ctx context.Context) ([]model.Report, error)
	AddReport(ctx context.Context, report model.Report) (model.Report, error)
	UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus) error
	DeleteReport(ctx context.Context, id string) error
}

// Counters is an atomic increment store for analytics.
type Counters interface {
	Increment(ctx context.Context, counterID, key string) error
	Counters(ctx context.Context, counterID string) (map[string]int64, error)
}

// ChatStream is an append-only, timestamp-ordered message log per session.
type ChatStream interface {
	AppendMessage(ctx context.Context, sessionID string, msg model.ChatMessage) (model.ChatMessage, error)
	RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.ChatMessage, error)
	// Subscribe delivers the recent window on every change until ctx ends.
	Subscribe(ctx context.Context, sessionID string, limit int) (<-chan []model.ChatMessage, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend bundles the document-store collaborators served by one driver.
type Backend interface {
	SettingsStore
	UserStore
	ReportStore
	Counters
	Pinger
	Close() error
}
