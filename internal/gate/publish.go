package gate

import (
	"context"
	"fmt"

	"kitabuddy/internal/model"
)

const (
	MsgInvalidPublishPin = "PIN tidak sah!"
	MsgOffline           = "Tiada sambungan internet."
	MsgPublishFailed     = "Gagal menyimpan tetapan. Sila cuba lagi."
	MsgRefreshFailed     = "Tetapan disimpan tetapi gagal dimuat semula. Sila muat semula."
	MsgNoPendingUpdate   = "Tiada kemaskini untuk disahkan."
	MsgEditInProgress    = "Sila sahkan atau batalkan kemaskini sedia ada."
	MsgEditMismatch      = "Borang kemaskini tidak sepadan."
)

type PublishState string

const (
	PublishIdle      PublishState = "idle"
	PublishEditing   PublishState = "editing"
	PublishStaged    PublishState = "staged"
	PublishVerifying PublishState = "verifying"
)

type EditForm struct {
	FeatureID string              `json:"featureId"`
	Title     string              `json:"title"`
	Status    model.FeatureStatus `json:"status"`
	Message   string              `json:"message"`
}

type PendingFeatureUpdate struct {
	FeatureID string             `json:"featureId"`
	Data      model.FeaturePatch `json:"data"`
}

// FeatureWriter is the write side of the settings service as seen by the
// publish gate.
type FeatureWriter interface {
	UpsertFeature(ctx context.Context, featureID string, patch model.FeaturePatch) error
	RefreshFeatures(ctx context.Context) error
}

// PublishGate is the two-phase commit for feature configuration. The only
// path to FeatureWriter.UpsertFeature is a matching code in Verify.
type PublishGate struct {
	code    Code
	state   PublishState
	form    *EditForm
	pending *PendingFeatureUpdate
	err     string
}

func NewPublishGate(code Code) *PublishGate {
	return &PublishGate{code: code, state: PublishIdle}
}

// BeginEdit opens the edit form with a working copy of the current setting.
func (g *PublishGate) BeginEdit(featureID, defaultTitle string, current model.FeatureSetting) (EditForm, error) {
	if g.pending != nil {
		return EditForm{}, Validation(ErrInvalidRequest, MsgEditInProgress)
	}
	form := EditForm{
		FeatureID: featureID,
		Title:     orDefault(current.Title, defaultTitle),
		Status:    current.EffectiveStatus(),
		Message:   current.Message,
	}
	g.form = &form
	g.state = PublishEditing
	return form, nil
}

// Submit stages the edited working copy and opens the PIN challenge. Nothing
// is written.
func (g *PublishGate) Submit(form EditForm) (PendingFeatureUpdate, error) {
	if g.state != PublishEditing || g.form == nil {
		return PendingFeatureUpdate{}, Validation(ErrInvalidRequest, MsgNoPendingUpdate)
	}
	if form.FeatureID != g.form.FeatureID {
		return PendingFeatureUpdate{}, Validation(ErrInvalidRequest, MsgEditMismatch)
	}
	status, err := model.ParseFeatureStatus(string(form.Status))
	if err != nil {
		return PendingFeatureUpdate{}, Validation(ErrInvalidRequest, fmt.Sprintf("Status tidak sah: %s", form.Status))
	}
	title, message := form.Title, form.Message
	update := PendingFeatureUpdate{
		FeatureID: form.FeatureID,
		Data: model.FeaturePatch{
			Title:   &title,
			Status:  &status,
			Message: &message,
		},
	}
	g.pending = &update
	g.form = nil
	g.state = PublishStaged
	g.err = ""
	return update, nil
}

// Verify checks input against the publish code. A mismatch keeps the pending
// update so the admin can retry without re-entering the form. On a match the
// update is written and the feature map is re-read before the gate reports
// success.
func (g *PublishGate) Verify(ctx context.Context, input string, online bool, w FeatureWriter) error {
	if g.pending == nil {
		return Validation(ErrNoPendingUpdate, MsgNoPendingUpdate)
	}
	g.state = PublishVerifying
	if !online {
		g.err = MsgOffline
		return Offline(MsgOffline)
	}
	if !g.code.Matches(input) {
		g.err = MsgInvalidPublishPin
		return Auth(ErrInvalidPin, MsgInvalidPublishPin)
	}

	pending := *g.pending
	if err := w.UpsertFeature(ctx, pending.FeatureID, pending.Data); err != nil {
		g.err = MsgPublishFailed
		return Backend(ErrBackend, MsgPublishFailed, err)
	}

	g.pending = nil
	g.state = PublishIdle
	g.err = ""
	if err := w.RefreshFeatures(ctx); err != nil {
		return Backend(ErrRefreshFailed, MsgRefreshFailed, err)
	}
	return nil
}

// Cancel discards the form and any staged update.
func (g *PublishGate) Cancel() {
	g.form = nil
	g.pending = nil
	g.err = ""
	g.state = PublishIdle
}

func (g *PublishGate) Reset() { g.Cancel() }

func (g *PublishGate) State() PublishState { return g.state }
func (g *PublishGate) Err() string         { return g.err }

func (g *PublishGate) Form() *EditForm {
	if g.form == nil {
		return nil
	}
	form := *g.form
	return &form
}

func (g *PublishGate) Pending() *PendingFeatureUpdate {
	if g.pending == nil {
		return nil
	}
	pending := *g.pending
	return &pending
}
