package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

const globalSettingsID = "global"

func (s *Store) Features(ctx context.Context) (model.FeatureSettings, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT feature_id, COALESCE(title, ''), COALESCE(status, ''), COALESCE(message, '')
    FROM features
  `)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features := model.FeatureSettings{}
	for rows.Next() {
		var id, status string
		var setting model.FeatureSetting
		if err := rows.Scan(&id, &setting.Title, &status, &setting.Message); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		setting.Status = model.FeatureStatus(status)
		features[id] = setting
	}
	return features, rows.Err()
}

func (s *Store) UpsertFeature(ctx context.Context, featureID string, patch model.FeaturePatch) error {
	var status *string
	if patch.Status != nil {
		value := string(*patch.Status)
		status = &value
	}
	_, err := s.pool.Exec(ctx, `
    INSERT INTO features (feature_id, title, status, message, updated_at)
    VALUES ($1, $2, $3, $4, now())
    ON CONFLICT (feature_id) DO UPDATE SET
      title = COALESCE(EXCLUDED.title, features.title),
      status = COALESCE(EXCLUDED.status, features.status),
      message = COALESCE(EXCLUDED.message, features.message),
      updated_at = now()
  `, featureID, patch.Title, status, patch.Message)
	if err != nil {
		return fmt.Errorf("upsert feature %s: %w", featureID, err)
	}
	return nil
}

func (s *Store) MaintenanceMode(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.pool.QueryRow(ctx, `SELECT maintenance_mode FROM settings WHERE id = $1`, globalSettingsID).Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query maintenance mode: %w", err)
	}
	return enabled, nil
}

func (s *Store) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO settings (id, maintenance_mode, updated_at)
    VALUES ($1, $2, now())
    ON CONFLICT (id) DO UPDATE SET maintenance_mode = EXCLUDED.maintenance_mode, updated_at = now()
  `, globalSettingsID, enabled)
	if err != nil {
		return fmt.Errorf("set maintenance mode: %w", err)
	}
	return nil
}

func (s *Store) UserByStudentID(ctx context.Context, studentID string) (model.User, error) {
	var user model.User
	var docID uuid.UUID
	row := s.pool.QueryRow(ctx, `
    SELECT doc_id, student_id, name, role, password_hash, created_at
    FROM users
    WHERE student_id = $1
  `, studentID)
	err := row.Scan(&docID, &user.StudentID, &user.Name, &user.Role, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, store.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	user.DocID = docID.String()
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT doc_id, student_id, name, role, created_at
    FROM users
    ORDER BY student_id
  `)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var user model.User
		var docID uuid.UUID
		if err := rows.Scan(&docID, &user.StudentID, &user.Name, &user.Role, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.DocID = docID.String()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) AddUser(ctx context.Context, user model.User) (model.User, error) {
	docID := uuid.New()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
    INSERT INTO users (doc_id, student_id, name, role, password_hash, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
  `, docID, user.StudentID, user.Name, user.Role, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return model.User{}, store.ErrConflict
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	user.DocID = docID.String()
	return user, nil
}

func (s *Store) UpdateUserRole(ctx context.Context, docID, role string) error {
	id, err := uuid.Parse(docID)
	if err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET role = $2 WHERE doc_id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, docID string) error {
	id, err := uuid.Parse(docID)
	if err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE doc_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListReports(ctx context.Context) ([]model.Report, error) {
	rows, err := s.pool.Query(ctx, `
    SELECT id, student, class, issue, status, created_at
    FROM reports
    ORDER BY created_at DESC
  `)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := []model.Report{}
	for rows.Next() {
		var report model.Report
		var id uuid.UUID
		var status string
		if err := rows.Scan(&id, &report.Student, &report.Class, &report.Issue, &status, &report.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		report.ID = id.String()
		report.Status = model.ReportStatus(status)
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *Store) AddReport(ctx context.Context, report model.Report) (model.Report, error) {
	id := uuid.New()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
    INSERT INTO reports (id, student, class, issue, status, created_at)
    VALUES ($1, $2, $3, $4, $5, $6)
  `, id, report.Student, report.Class, report.Issue, string(report.Status), report.CreatedAt)
	if err != nil {
		return model.Report{}, fmt.Errorf("insert report: %w", err)
	}
	report.ID = id.String()
	return report, nil
}

func (s *Store) UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus) error {
	id, err := uuid.Parse(reportID)
	if err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE reports SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteReport(ctx context.Context, reportID string) error {
	id, err := uuid.Parse(reportID)
	if err != nil {
		return store.ErrNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, counterID, key string) error {
	_, err := s.pool.Exec(ctx, `
    INSERT INTO counters (counter_id, key, value)
    VALUES ($1, $2, 1)
    ON CONFLICT (counter_id, key) DO UPDATE SET value = counters.value + 1
  `, counterID, key)
	if err != nil {
		return fmt.Errorf("increment %s/%s: %w", counterID, key, err)
	}
	return nil
}

func (s *Store) Counters(ctx context.Context, counterID string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM counters WHERE counter_id = $1`, counterID)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	counters := map[string]int64{}
	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		counters[key] = value
	}
	return counters, rows.Err()
}
