package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

type Snapshot struct {
	MaintenanceMode bool                  `json:"maintenanceMode"`
	Features        model.FeatureSettings `json:"features"`
	FetchedAt       time.Time             `json:"fetchedAt"`
}

// Service owns the shared maintenance flag and feature map. Reads are served
// from the last successful fetch; callers refresh at defined points (start,
// admin entry, after a publish) and a background job refreshes periodically.
// Sessions may observe values up to one refresh interval old.
type Service struct {
	store  store.SettingsStore
	logger *slog.Logger

	mu          sync.RWMutex
	maintenance bool
	features    model.FeatureSettings
	fetchedAt   time.Time
	observers   []func(Snapshot)
}

func New(s store.SettingsStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, logger: logger, features: model.FeatureSettings{}}
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		MaintenanceMode: s.maintenance,
		Features:        s.features.Clone(),
		FetchedAt:       s.fetchedAt,
	}
}

func (s *Service) MaintenanceMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maintenance
}

func (s *Service) Features() model.FeatureSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.features.Clone()
}

// Refresh re-reads the maintenance flag and the feature map. On failure the
// previous values are kept.
func (s *Service) Refresh(ctx context.Context) error {
	maintenance, err := s.store.MaintenanceMode(ctx)
	if err != nil {
		s.logger.Warn("maintenance mode fetch failed", "err", err)
		return fmt.Errorf("fetch maintenance mode: %w", err)
	}
	features, err := s.store.Features(ctx)
	if err != nil {
		s.logger.Warn("feature settings fetch failed", "err", err)
		return fmt.Errorf("fetch features: %w", err)
	}
	s.apply(func() {
		s.maintenance = maintenance
		s.features = features
	})
	return nil
}

func (s *Service) RefreshFeatures(ctx context.Context) error {
	features, err := s.store.Features(ctx)
	if err != nil {
		s.logger.Warn("feature settings fetch failed", "err", err)
		return fmt.Errorf("fetch features: %w", err)
	}
	s.apply(func() { s.features = features })
	return nil
}

// SetMaintenanceMode writes the flag and updates local state only after the
// write succeeds.
func (s *Service) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	if err := s.store.SetMaintenanceMode(ctx, enabled); err != nil {
		s.logger.Error("maintenance mode write failed", "enabled", enabled, "err", err)
		return fmt.Errorf("write maintenance mode: %w", err)
	}
	s.apply(func() { s.maintenance = enabled })
	s.logger.Info("maintenance mode changed", "enabled", enabled)
	return nil
}

// UpsertFeature writes through to the store. The in-memory map changes only
// on the next refresh.
func (s *Service) UpsertFeature(ctx context.Context, featureID string, patch model.FeaturePatch) error {
	if err := s.store.UpsertFeature(ctx, featureID, patch); err != nil {
		s.logger.Error("feature write failed", "feature_id", featureID, "err", err)
		return fmt.Errorf("write feature %s: %w", featureID, err)
	}
	s.logger.Info("feature settings published", "feature_id", featureID)
	return nil
}

// Watch registers fn to run after every local state change.
func (s *Service) Watch(fn func(Snapshot)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	fn(snap)
}

func (s *Service) apply(mutate func()) {
	s.mu.Lock()
	mutate()
	s.fetchedAt = time.Now().UTC()
	snap := s.snapshotLocked()
	observers := append([]func(Snapshot){}, s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(snap)
	}
}
