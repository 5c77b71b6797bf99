package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

// Store keeps every collaborator in process memory. It backs local
// development and tests.
type Store struct {
	mu          sync.RWMutex
	maintenance bool
	features    model.FeatureSettings
	users       map[string]model.User
	reports     map[string]model.Report
	counters    map[string]map[string]int64
	chats       map[string][]model.ChatMessage
	subscribers map[string]map[chan []model.ChatMessage]int
	now         func() time.Time
}

func New() *Store {
	return &Store{
		features:    model.FeatureSettings{},
		users:       map[string]model.User{},
		reports:     map[string]model.Report{},
		counters:    map[string]map[string]int64{},
		chats:       map[string][]model.ChatMessage{},
		subscribers: map[string]map[chan []model.ChatMessage]int{},
		now:         time.Now,
	}
}

func (s *Store) Features(_ context.Context) (model.FeatureSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Clone(), nil
}

func (s *Store) UpsertFeature(_ context.Context, featureID string, patch model.FeaturePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features[featureID] = s.features[featureID].Merge(patch)
	return nil
}

func (s *Store) MaintenanceMode(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance, nil
}

func (s *Store) SetMaintenanceMode(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = enabled
	return nil
}

func (s *Store) UserByStudentID(_ context.Context, studentID string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.StudentID == studentID {
			return user, nil
		}
	}
	return model.User{}, store.ErrNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].StudentID < users[j].StudentID })
	return users, nil
}

func (s *Store) AddUser(_ context.Context, user model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.StudentID == user.StudentID {
			return model.User{}, store.ErrConflict
		}
	}
	user.DocID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.users[user.DocID] = user
	return user, nil
}

func (s *Store) UpdateUserRole(_ context.Context, docID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[docID]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	s.users[docID] = user
	return nil
}

func (s *Store) DeleteUser(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[docID]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, docID)
	return nil
}

func (s *Store) ListReports(_ context.Context) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reports := make([]model.Report, 0, len(s.reports))
	for _, report := range s.reports {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].CreatedAt.After(reports[j].CreatedAt) })
	return reports, nil
}

func (s *Store) AddReport(_ context.Context, report model.Report) (model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.ID = uuid.NewString()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now().UTC()
	}
	s.reports[report.ID] = report
	return report, nil
}

func (s *Store) UpdateReportStatus(_ context.Context, id string, status model.ReportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return store.ErrNotFound
	}
	report.Status = status
	s.reports[id] = report
	return nil
}

func (s *Store) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *Store) Increment(_ context.Context, counterID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	counter, ok := s.counters[counterID]
	if !ok {
		counter = map[string]int64{}
		s.counters[counterID] = counter
	}
	counter[key]++
	return nil
}

func (s *Store) Counters(_ context.Context, counterID string) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.counters[counterID]))
	for key, value := range s.counters[counterID] {
		out[key] = value
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
