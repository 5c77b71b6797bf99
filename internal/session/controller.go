package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"kitabuddy/internal/catalog"
	"kitabuddy/internal/companion"
	"kitabuddy/internal/connectivity"
	"kitabuddy/internal/crypto"
	"kitabuddy/internal/gate"
	"kitabuddy/internal/model"
	"kitabuddy/internal/settings"
	"kitabuddy/internal/store"
)

const (
	MsgLoginRequired      = "Sila log masuk dahulu."
	MsgAdminOnly          = "Akses admin sahaja."
	MsgMissingCredentials = "Sila masukkan ID dan Kata Laluan"
	MsgInvalidCredentials = "ID atau Kata Laluan salah. Sila cuba lagi."
	MsgConnectionError    = "Ralat sambungan. Sila semak internet anda."
	MsgMaintenanceLogin   = "Sistem dalam penyelenggaraan."
	MsgMaintenanceBlocked = "Sistem dalam penyelenggaraan. Sila cuba sebentar lagi."
	MsgUnknownView        = "Paparan tidak sah."
)

type Options struct {
	ConnectivityAware   bool
	ChatHistoryLimit    int
	DefaultUserPassword string
}

// Deps are the collaborators shared by every session on the instance.
type Deps struct {
	Settings     *settings.Service
	Users        store.UserStore
	Reports      store.ReportStore
	Counters     store.Counters
	Chat         store.ChatStream
	Companion    *companion.Guarded
	Catalog      *catalog.Catalog
	Connectivity *connectivity.Monitor
	Codes        gate.Codes
	Usage        *gate.UsageTracker
	Validate     *validator.Validate
	Logger       *slog.Logger
	Options      Options
}

func (d Deps) check() error {
	switch {
	case d.Settings == nil:
		return errors.New("settings service required")
	case d.Users == nil:
		return errors.New("user store required")
	case d.Reports == nil:
		return errors.New("report store required")
	case d.Counters == nil:
		return errors.New("counter store required")
	case d.Chat == nil:
		return errors.New("chat stream required")
	}
	return d.Codes.Validate()
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Catalog == nil {
		d.Catalog = catalog.Default()
	}
	if d.Connectivity == nil {
		d.Connectivity = connectivity.NewMonitor(true, d.Logger)
	}
	if d.Companion == nil {
		d.Companion = companion.NewGuarded(nil, d.Logger)
	}
	if d.Validate == nil {
		d.Validate = NewValidator()
	}
	if d.Options.ChatHistoryLimit <= 0 {
		d.Options.ChatHistoryLimit = 50
	}
	if d.Options.DefaultUserPassword == "" {
		d.Options.DefaultUserPassword = "123456"
	}
	return d
}

// NewValidator reports field errors under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Controller is the session state and view router for one client. All
// methods are safe for concurrent use.
type Controller struct {
	id     string
	deps   Deps
	logger *slog.Logger
	gate   *gate.FeatureGate

	mu          sync.Mutex
	view        model.View
	user        *model.Session
	selected    string
	modal       *gate.Modal
	loginErr    string
	maintenance *gate.MaintenanceGate
	unlock      *gate.AdminUnlockGate
	publish     *gate.PublishGate
	welcomed    bool
	lastSeen    time.Time
}

func newController(id string, deps Deps) *Controller {
	return &Controller{
		id:          id,
		deps:        deps,
		logger:      deps.Logger.With("session_id", id),
		gate:        gate.NewFeatureGate(deps.Catalog, deps.Options.ConnectivityAware),
		view:        model.ViewLanding,
		maintenance: gate.NewMaintenanceGate(deps.Codes.MaintenanceBypass),
		unlock:      gate.NewAdminUnlockGate(deps.Codes.AdminUnlock),
		publish:     gate.NewPublishGate(deps.Codes.Publish),
		lastSeen:    time.Now(),
	}
}

func (c *Controller) ID() string { return c.id }

type MaintenanceView struct {
	Mode       bool   `json:"mode"`
	Bypassed   bool   `json:"bypassed"`
	DialogOpen bool   `json:"dialogOpen"`
	Error      string `json:"error,omitempty"`
}

type PublishView struct {
	State   gate.PublishState          `json:"state"`
	Form    *gate.EditForm             `json:"form,omitempty"`
	Pending *gate.PendingFeatureUpdate `json:"pending,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

type AdminView struct {
	Unlocked bool        `json:"unlocked"`
	Error    string      `json:"error,omitempty"`
	Publish  PublishView `json:"publish"`
}

// State is what the view layer renders. Blocked means the maintenance
// interstitial covers the active view.
type State struct {
	SessionID       string          `json:"sessionId"`
	View            model.View      `json:"view"`
	Blocked         bool            `json:"blocked"`
	User            *model.Session  `json:"user,omitempty"`
	SelectedFeature string          `json:"selectedFeature,omitempty"`
	Modal           *gate.Modal     `json:"modal,omitempty"`
	LoginError      string          `json:"loginError,omitempty"`
	Online          bool            `json:"online"`
	Maintenance     MaintenanceView `json:"maintenance"`
	Admin           AdminView       `json:"admin"`
}

func (c *Controller) State() State {
	mode := c.deps.Settings.MaintenanceMode()
	online := c.deps.Connectivity.Online()

	c.mu.Lock()
	defer c.mu.Unlock()
	state := State{
		SessionID:       c.id,
		View:            c.view,
		Blocked:         gate.ShouldBlock(c.view, mode, c.maintenance.Bypassed()),
		SelectedFeature: c.selected,
		LoginError:      c.loginErr,
		Online:          online,
		Maintenance: MaintenanceView{
			Mode:       mode,
			Bypassed:   c.maintenance.Bypassed(),
			DialogOpen: c.maintenance.DialogOpen(),
			Error:      c.maintenance.Err(),
		},
		Admin: AdminView{
			Unlocked: c.unlock.Unlocked(),
			Error:    c.unlock.Err(),
			Publish: PublishView{
				State:   c.publish.State(),
				Form:    c.publish.Form(),
				Pending: c.publish.Pending(),
				Error:   c.publish.Err(),
			},
		},
	}
	if c.user != nil {
		user := *c.user
		state.User = &user
	}
	if c.modal != nil {
		modal := *c.modal
		state.Modal = &modal
	}
	return state
}

// Navigate switches the active view. Views behind login require an
// authenticated session and the admin console requires an elevated role.
// Entering the admin console re-reads the shared settings.
func (c *Controller) Navigate(ctx context.Context, view model.View) error {
	c.mu.Lock()
	switch view {
	case model.ViewLanding, model.ViewLogin:
	case model.ViewMenu, model.ViewChat, model.ViewPlaceholder:
		if c.user == nil {
			c.mu.Unlock()
			return gate.Auth(gate.ErrForbidden, MsgLoginRequired)
		}
	case model.ViewAdmin:
		if c.user == nil {
			c.mu.Unlock()
			return gate.Auth(gate.ErrForbidden, MsgLoginRequired)
		}
		if !c.user.Role.Elevated() {
			c.mu.Unlock()
			return gate.Auth(gate.ErrForbidden, MsgAdminOnly)
		}
	default:
		c.mu.Unlock()
		return gate.Validation(gate.ErrInvalidRequest, MsgUnknownView)
	}
	c.setViewLocked(view)
	c.mu.Unlock()

	if view == model.ViewAdmin {
		if err := c.deps.Settings.Refresh(ctx); err != nil {
			c.logger.Warn("settings refresh on admin entry failed", "err", err)
		}
	}
	return nil
}

func (c *Controller) setViewLocked(view model.View) {
	if c.view != view {
		c.selected = ""
		c.modal = nil
	}
	if view != model.ViewLogin {
		c.loginErr = ""
	}
	c.view = view
}

func (c *Controller) online() bool {
	return !c.deps.Options.ConnectivityAware || c.deps.Connectivity.Online()
}

// Login checks credentials and opens the authenticated session. Empty
// fields and a missing connection fail before any store call.
func (c *Controller) Login(ctx context.Context, studentID, password string) (model.Session, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" || password == "" {
		return model.Session{}, c.loginFailed(gate.Validation(gate.ErrMissingCredentials, MsgMissingCredentials))
	}
	if !c.online() {
		return model.Session{}, c.loginFailed(gate.Offline(gate.MsgOffline))
	}

	user, err := c.deps.Users.UserByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Session{}, c.loginFailed(gate.Auth(gate.ErrInvalidCredentials, MsgInvalidCredentials))
		}
		c.logger.Error("user lookup failed", "student_id", studentID, "err", err)
		return model.Session{}, c.loginFailed(gate.Backend(gate.ErrConnectionError, MsgConnectionError, err))
	}
	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		return model.Session{}, c.loginFailed(gate.Auth(gate.ErrInvalidCredentials, MsgInvalidCredentials))
	}

	sess := model.NewSession(user.StudentID, user.DisplayName(), user.Role)
	maintenance := c.deps.Settings.MaintenanceMode()

	c.mu.Lock()
	defer c.mu.Unlock()
	if maintenance && !c.maintenance.Bypassed() && !sess.Role.Elevated() {
		c.loginErr = MsgMaintenanceLogin
		return model.Session{}, gate.Auth(gate.ErrMaintenanceActive, MsgMaintenanceLogin)
	}
	c.user = &sess
	c.loginErr = ""
	c.welcomed = false
	c.unlock.Reset()
	c.publish.Reset()
	c.setViewLocked(model.ViewMenu)
	c.logger.Info("login", "student_id", sess.ID, "role", sess.Role)
	return sess, nil
}

func (c *Controller) loginFailed(err *gate.Error) error {
	c.mu.Lock()
	c.loginErr = err.Message
	c.mu.Unlock()
	return err
}

// Logout is the single reset point for every per-session gate.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.user = nil
	c.view = model.ViewLanding
	c.selected = ""
	c.modal = nil
	c.loginErr = ""
	c.welcomed = false
	c.maintenance.Reset()
	c.unlock.Reset()
	c.publish.Reset()
}

// OpenFeature runs a menu click through the feature gate. Every click on a
// known feature is counted, blocked ones included.
func (c *Controller) OpenFeature(featureID string) (gate.Outcome, error) {
	settings := c.deps.Settings.Features()
	online := c.deps.Connectivity.Online()
	maintenance := c.deps.Settings.MaintenanceMode()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return gate.Outcome{}, gate.Auth(gate.ErrForbidden, MsgLoginRequired)
	}
	if err := c.requireNotBlockedLocked(maintenance); err != nil {
		return gate.Outcome{}, err
	}
	outcome, err := c.gate.Resolve(featureID, online, settings)
	if err != nil {
		return gate.Outcome{}, err
	}
	c.deps.Usage.Record(featureID)

	switch outcome.Kind {
	case gate.OutcomeBlocked:
		c.modal = outcome.Modal
	case gate.OutcomeAction:
		c.modal = nil
		if outcome.Action.Kind == catalog.ActionSwitchView {
			view, _ := model.ParseView(outcome.Action.Target)
			c.setViewLocked(view)
		}
	case gate.OutcomeNavigate:
		c.modal = nil
		c.selected = featureID
		c.view = model.ViewPlaceholder
	}
	return outcome, nil
}

// CloseFeature dismisses the modal and the selected content.
func (c *Controller) CloseFeature() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modal = nil
	if c.selected != "" {
		c.selected = ""
		if c.view == model.ViewPlaceholder {
			c.view = model.ViewMenu
		}
	}
}

func (c *Controller) OpenBypassDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maintenance.OpenDialog()
}

func (c *Controller) CloseBypassDialog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maintenance.CloseDialog()
}

func (c *Controller) Bypass(pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.maintenance.Bypass(pin); err != nil {
		return err
	}
	c.logger.Info("maintenance bypassed")
	return nil
}

type MenuEntry struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Section    catalog.Section     `json:"section"`
	Status     model.FeatureStatus `json:"status"`
	OnlineOnly bool                `json:"onlineOnly"`
	Available  bool                `json:"available"`
	Action     *catalog.Action     `json:"action,omitempty"`
}

// Menu lists the catalog merged with the current feature settings.
// Available is false when a click would be blocked.
func (c *Controller) Menu() ([]MenuEntry, error) {
	if _, err := c.activeUser(); err != nil {
		return nil, err
	}

	features := c.deps.Settings.Features()
	online := c.deps.Connectivity.Online()
	items := c.deps.Catalog.Items()
	entries := make([]MenuEntry, 0, len(items))
	for _, item := range items {
		setting := features[item.ID]
		title := item.Title
		if setting.Title != "" {
			title = setting.Title
		}
		outcome, err := c.gate.Resolve(item.ID, online, features)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", item.ID, err)
		}
		entries = append(entries, MenuEntry{
			ID:         item.ID,
			Title:      title,
			Section:    item.Section,
			Status:     setting.EffectiveStatus(),
			OnlineOnly: item.OnlineOnly,
			Available:  outcome.Kind != gate.OutcomeBlocked,
			Action:     item.Action,
		})
	}
	return entries, nil
}

func (c *Controller) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Controller) idleSince(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastSeen)
}

// requireNotBlockedLocked refuses work behind the maintenance interstitial.
// The admin console is exempt.
func (c *Controller) requireNotBlockedLocked(maintenance bool) error {
	if gate.ShouldBlock(c.view, maintenance, c.maintenance.Bypassed()) {
		return gate.Auth(gate.ErrMaintenanceActive, MsgMaintenanceBlocked)
	}
	return nil
}

// activeUser returns the logged in user when the session is not blocked by
// maintenance.
func (c *Controller) activeUser() (model.Session, error) {
	maintenance := c.deps.Settings.MaintenanceMode()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return model.Session{}, gate.Auth(gate.ErrForbidden, MsgLoginRequired)
	}
	if err := c.requireNotBlockedLocked(maintenance); err != nil {
		return model.Session{}, err
	}
	return *c.user, nil
}

