package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kitabuddy/internal/catalog"
	"kitabuddy/internal/model"
)

const (
	TitleNoConnection  = "Tiada Sambungan Internet"
	TitleMaintenance   = "Penyelenggaraan"
	MsgNoConnection    = "Ciri ini memerlukan sambungan internet untuk berfungsi. Sila semak sambungan anda."
	MsgComingSoon      = "Ciri ini akan datang tidak lama lagi. Kami sedang menyiapkannya dengan penuh kasih sayang!"
	MsgMaintenance     = "Ciri ini sedang dikemaskini. Sila cuba sebentar lagi."
	MsgUnknownFeature  = "Ciri tidak dijumpai."
	usageRecordTimeout = 5 * time.Second
)

type OutcomeKind string

const (
	OutcomeBlocked  OutcomeKind = "blocked"
	OutcomeAction   OutcomeKind = "action"
	OutcomeNavigate OutcomeKind = "navigate"
)

type Modal struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

type Outcome struct {
	Kind      OutcomeKind     `json:"kind"`
	FeatureID string          `json:"featureId"`
	Modal     *Modal          `json:"modal,omitempty"`
	Action    *catalog.Action `json:"action,omitempty"`
}

type FeatureGate struct {
	catalog           *catalog.Catalog
	connectivityAware bool
}

func NewFeatureGate(c *catalog.Catalog, connectivityAware bool) *FeatureGate {
	return &FeatureGate{catalog: c, connectivityAware: connectivityAware}
}

// Resolve decides what a menu click on featureID does. The first matching
// rule wins: offline block, coming soon, maintenance, bound action, navigate.
func (g *FeatureGate) Resolve(featureID string, online bool, settings model.FeatureSettings) (Outcome, error) {
	item, ok := g.catalog.Lookup(featureID)
	if !ok {
		return Outcome{}, Validation(ErrUnknownFeature, MsgUnknownFeature)
	}

	if g.connectivityAware && item.OnlineOnly && !online {
		return blocked(featureID, TitleNoConnection, MsgNoConnection), nil
	}

	if setting, ok := settings[featureID]; ok {
		switch setting.Status {
		case model.StatusComingSoon:
			title := setting.Title
			if title == "" {
				title = item.Title
			}
			return blocked(featureID, title, orDefault(setting.Message, MsgComingSoon)), nil
		case model.StatusMaintenance:
			return blocked(featureID, TitleMaintenance, orDefault(setting.Message, MsgMaintenance)), nil
		}
	}

	if item.Action != nil {
		action := *item.Action
		return Outcome{Kind: OutcomeAction, FeatureID: featureID, Action: &action}, nil
	}
	return Outcome{Kind: OutcomeNavigate, FeatureID: featureID}, nil
}

func blocked(featureID, title, message string) Outcome {
	return Outcome{Kind: OutcomeBlocked, FeatureID: featureID, Modal: &Modal{Title: title, Message: message}}
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

type Incrementer interface {
	Increment(ctx context.Context, counterID, key string) error
}

// UsageTracker records feature clicks without blocking the caller. Failures
// are logged and dropped.
type UsageTracker struct {
	counters Incrementer
	enabled  bool
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewUsageTracker(counters Incrementer, enabled bool, logger *slog.Logger) *UsageTracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageTracker{counters: counters, enabled: enabled && counters != nil, logger: logger}
}

func (t *UsageTracker) Record(featureID string) {
	if t == nil || !t.enabled {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), usageRecordTimeout)
		defer cancel()
		if err := t.counters.Increment(ctx, model.FeatureUsageCounter, featureID); err != nil {
			t.logger.Warn("feature usage increment failed", "feature_id", featureID, "err", err)
		}
	}()
}

// Wait blocks until in-flight increments finish.
func (t *UsageTracker) Wait() {
	if t == nil {
		return
	}
	t.wg.Wait()
}
