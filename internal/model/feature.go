package model

import "fmt"

type FeatureStatus string

const (
	StatusActive      FeatureStatus = "Active"
	StatusComingSoon  FeatureStatus = "Coming Soon"
	StatusMaintenance FeatureStatus = "Maintenance"
)

func ParseFeatureStatus(value string) (FeatureStatus, error) {
	switch FeatureStatus(value) {
	case StatusActive, StatusComingSoon, StatusMaintenance:
		return FeatureStatus(value), nil
	default:
		return "", fmt.Errorf("invalid feature status %q", value)
	}
}

type FeatureSetting struct {
	Status  FeatureStatus `json:"status,omitempty"`
	Title   string        `json:"title,omitempty"`
	Message string        `json:"message,omitempty"`
}

// EffectiveStatus treats a missing status as Active.
func (s FeatureSetting) EffectiveStatus() FeatureStatus {
	if s.Status == "" {
		return StatusActive
	}
	return s.Status
}

// Merge applies the non-nil fields of p over s.
func (s FeatureSetting) Merge(p FeaturePatch) FeatureSetting {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Message != nil {
		s.Message = *p.Message
	}
	return s
}

type FeatureSettings map[string]FeatureSetting

func (f FeatureSettings) Clone() FeatureSettings {
	out := make(FeatureSettings, len(f))
	for id, setting := range f {
		out[id] = setting
	}
	return out
}

// FeaturePatch is a partial feature update with merge semantics: nil fields
// leave the stored value untouched.
type FeaturePatch struct {
	Title   *string        `json:"title,omitempty"`
	Status  *FeatureStatus `json:"status,omitempty"`
	Message *string        `json:"message,omitempty"`
}
