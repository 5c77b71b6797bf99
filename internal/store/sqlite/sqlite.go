package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlitedriver "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

const globalSettingsID = "global"

type settingRow struct {
	ID              string `gorm:"primaryKey;size:64"`
	MaintenanceMode bool
	UpdatedAt       time.Time
}

func (settingRow) TableName() string { return "settings" }

type featureRow struct {
	FeatureID string `gorm:"primaryKey;size:64"`
	Title     string
	Status    string `gorm:"size:32"`
	Message   string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (featureRow) TableName() string { return "features" }

type userRow struct {
	DocID        string `gorm:"primaryKey;size:36"`
	StudentID    string `gorm:"uniqueIndex;size:128;not null"`
	Name         string
	Role         string `gorm:"size:32;default:student"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type reportRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	Student   string `gorm:"not null"`
	Class     string
	Issue     string    `gorm:"type:text;not null"`
	Status    string    `gorm:"size:16;default:Baru"`
	CreatedAt time.Time `gorm:"index"`
}

func (reportRow) TableName() string { return "reports" }

type counterRow struct {
	CounterID string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;size:128"`
	Value     int64
}

func (counterRow) TableName() string { return "counters" }

// Store is the embedded single-file deployment of the document store.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer.
	sqlDB.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&settingRow{}, &featureRow{}, &userRow{}, &reportRow{}, &counterRow{})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Features(ctx context.Context) (model.FeatureSettings, error) {
	var rows []featureRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	features := make(model.FeatureSettings, len(rows))
	for _, row := range rows {
		features[row.FeatureID] = model.FeatureSetting{
			Title:   row.Title,
			Status:  model.FeatureStatus(row.Status),
			Message: row.Message,
		}
	}
	return features, nil
}

func (s *Store) UpsertFeature(ctx context.Context, featureID string, patch model.FeaturePatch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := featureRow{FeatureID: featureID}
		err := tx.First(&row, "feature_id = ?", featureID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load feature %s: %w", featureID, err)
		}
		merged := model.FeatureSetting{
			Title:   row.Title,
			Status:  model.FeatureStatus(row.Status),
			Message: row.Message,
		}.Merge(patch)
		row.Title = merged.Title
		row.Status = string(merged.Status)
		row.Message = merged.Message
		row.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("upsert feature %s: %w", featureID, err)
		}
		return nil
	})
}

func (s *Store) MaintenanceMode(ctx context.Context) (bool, error) {
	var row settingRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", globalSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query maintenance mode: %w", err)
	}
	return row.MaintenanceMode, nil
}

func (s *Store) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	row := settingRow{ID: globalSettingsID, MaintenanceMode: enabled, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"maintenance_mode", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("set maintenance mode: %w", err)
	}
	return nil
}

func (s *Store) UserByStudentID(ctx context.Context, studentID string) (model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, "student_id = ?", studentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, store.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Order("student_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		user := row.toModel()
		user.PasswordHash = ""
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) AddUser(ctx context.Context, user model.User) (model.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	row := userRow{
		DocID:        uuid.NewString(),
		StudentID:    user.StudentID,
		Name:         user.Name,
		Role:         user.Role,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Where("student_id = ?", user.StudentID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return store.ErrConflict
		}
		return tx.Create(&row).Error
	})
	if errors.Is(err, store.ErrConflict) {
		return model.User{}, err
	}
	if err != nil {
		return model.User{}, fmt.Errorf("insert user: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) UpdateUserRole(ctx context.Context, docID, role string) error {
	result := s.db.WithContext(ctx).Model(&userRow{}).Where("doc_id = ?", docID).Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("update user role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, docID string) error {
	result := s.db.WithContext(ctx).Delete(&userRow{}, "doc_id = ?", docID)
	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListReports(ctx context.Context) ([]model.Report, error) {
	var rows []reportRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	reports := make([]model.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, row.toModel())
	}
	return reports, nil
}

func (s *Store) AddReport(ctx context.Context, report model.Report) (model.Report, error) {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	row := reportRow{
		ID:        uuid.NewString(),
		Student:   report.Student,
		Class:     report.Class,
		Issue:     report.Issue,
		Status:    string(report.Status),
		CreatedAt: report.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Report{}, fmt.Errorf("insert report: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) UpdateReportStatus(ctx context.Context, id string, status model.ReportStatus) error {
	result := s.db.WithContext(ctx).Model(&reportRow{}).Where("id = ?", id).Update("status", string(status))
	if result.Error != nil {
		return fmt.Errorf("update report status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteReport(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&reportRow{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Increment(ctx context.Context, counterID, key string) error {
	row := counterRow{CounterID: counterID, Key: key, Value: 1}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "counter_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": gorm.Expr("value + ?", 1)}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("increment %s/%s: %w", counterID, key, err)
	}
	return nil
}

func (s *Store) Counters(ctx context.Context, counterID string) (map[string]int64, error) {
	var rows []counterRow
	if err := s.db.WithContext(ctx).Where("counter_id = ?", counterID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	counters := make(map[string]int64, len(rows))
	for _, row := range rows {
		counters[row.Key] = row.Value
	}
	return counters, nil
}

func (r userRow) toModel() model.User {
	return model.User{
		DocID:        r.DocID,
		StudentID:    r.StudentID,
		Name:         r.Name,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

func (r reportRow) toModel() model.Report {
	return model.Report{
		ID:        r.ID,
		Student:   r.Student,
		Class:     r.Class,
		Issue:     r.Issue,
		Status:    model.ReportStatus(r.Status),
		CreatedAt: r.CreatedAt,
	}
}
