package session

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"kitabuddy/internal/crypto"
	"kitabuddy/internal/export"
	"kitabuddy/internal/gate"
	"kitabuddy/internal/model"
	"kitabuddy/internal/store"
)

const (
	MsgAdminOffline     = "Perlu sambungan internet untuk akses admin."
	MsgAdminLocked      = "Sila masukkan Pin Induk dahulu."
	MsgReportOffline    = "Perlu internet untuk hantar laporan."
	MsgUserExists       = "ID pelajar sudah wujud."
	MsgRecordNotFound   = "Rekod tidak dijumpai."
	MsgInvalidRole      = "Peranan tidak sah."
	MsgInvalidStatus    = "Status tidak sah."
	MsgInvalidFields    = "Maklumat tidak lengkap: "
	MsgLoadFailed       = "Gagal memuatkan data. Sila cuba lagi."
	MsgSaveFailed       = "Gagal menyimpan. Sila cuba lagi."
	MsgMaintenanceWrite = "Gagal menukar mod penyelenggaraan. Sila cuba lagi."
)

// AdminData is loaded right after a successful unlock.
type AdminData struct {
	Reports  []model.Report        `json:"reports"`
	Features model.FeatureSettings `json:"features"`
}

// UnlockAdmin checks the admin unlock code. Only a match triggers the initial
// data loads; their failures are logged and leave the console unlocked.
func (c *Controller) UnlockAdmin(ctx context.Context, pin string) (AdminData, error) {
	c.mu.Lock()
	if err := c.requireElevatedLocked(); err != nil {
		c.mu.Unlock()
		return AdminData{}, err
	}
	if !c.online() {
		c.mu.Unlock()
		return AdminData{}, gate.Offline(MsgAdminOffline)
	}
	if err := c.unlock.Unlock(pin); err != nil {
		c.mu.Unlock()
		return AdminData{}, err
	}
	c.mu.Unlock()
	c.logger.Info("admin console unlocked")

	data := AdminData{Reports: []model.Report{}}
	reports, err := c.deps.Reports.ListReports(ctx)
	if err != nil {
		c.logger.Warn("report load after unlock failed", "err", err)
	} else {
		data.Reports = reports
	}
	if err := c.deps.Settings.RefreshFeatures(ctx); err != nil {
		c.logger.Warn("feature load after unlock failed", "err", err)
	}
	data.Features = c.deps.Settings.Features()
	return data, nil
}

func (c *Controller) requireElevatedLocked() error {
	if c.user == nil {
		return gate.Auth(gate.ErrForbidden, MsgLoginRequired)
	}
	if !c.user.Role.Elevated() {
		return gate.Auth(gate.ErrForbidden, MsgAdminOnly)
	}
	return nil
}

// requireAdmin guards the console data views. Data operations also need a
// connection when the instance is connectivity aware.
func (c *Controller) requireAdmin(needOnline bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requireAdminLocked(needOnline)
}

func (c *Controller) requireAdminLocked(needOnline bool) error {
	if err := c.requireElevatedLocked(); err != nil {
		return err
	}
	if !c.unlock.Unlocked() {
		return gate.Auth(gate.ErrAdminLocked, MsgAdminLocked)
	}
	if needOnline && !c.online() {
		return gate.Offline(MsgAdminOffline)
	}
	return nil
}

func (c *Controller) storeError(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return gate.Validation(gate.ErrNotFound, MsgRecordNotFound)
	}
	c.logger.Error("admin "+op+" failed", "err", err)
	return gate.Backend(gate.ErrBackend, MsgSaveFailed, err)
}

func (c *Controller) validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return gate.Validation(gate.ErrInvalidRequest, MsgInvalidFields+err.Error())
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	sort.Strings(fields)
	return gate.Validation(gate.ErrInvalidRequest, MsgInvalidFields+strings.Join(fields, ", "))
}

func (c *Controller) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := c.requireAdmin(true); err != nil {
		return nil, err
	}
	users, err := c.deps.Users.ListUsers(ctx)
	if err != nil {
		c.logger.Error("admin list users failed", "err", err)
		return nil, gate.Backend(gate.ErrBackend, MsgLoadFailed, err)
	}
	return users, nil
}

// AddUser registers a user. The role defaults to student and the password to
// the configured default.
func (c *Controller) AddUser(ctx context.Context, in model.NewUser) (model.User, error) {
	if err := c.requireAdmin(true); err != nil {
		return model.User{}, err
	}
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	if err := c.deps.Validate.Struct(in); err != nil {
		return model.User{}, c.validationError(err)
	}
	role := strings.ToLower(strings.TrimSpace(in.Role))
	if role == "" {
		role = string(model.RoleStudent)
	}
	if !model.ValidUserRole(role) {
		return model.User{}, gate.Validation(gate.ErrInvalidRequest, MsgInvalidRole)
	}
	password := in.Password
	if password == "" {
		password = c.deps.Options.DefaultUserPassword
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return model.User{}, gate.Backend(gate.ErrBackend, MsgSaveFailed, err)
	}

	user, err := c.deps.Users.AddUser(ctx, model.User{
		StudentID:    in.StudentID,
		Name:         in.Name,
		Role:         role,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.User{}, gate.Validation(gate.ErrUserExists, MsgUserExists)
		}
		return model.User{}, c.storeError("add user", err)
	}
	c.logger.Info("user added", "student_id", user.StudentID, "role", user.Role)
	return user, nil
}

func (c *Controller) UpdateUserRole(ctx context.Context, docID, role string) error {
	if err := c.requireAdmin(true); err != nil {
		return err
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if !model.ValidUserRole(role) {
		return gate.Validation(gate.ErrInvalidRequest, MsgInvalidRole)
	}
	if err := c.deps.Users.UpdateUserRole(ctx, docID, role); err != nil {
		return c.storeError("update user role", err)
	}
	return nil
}

func (c *Controller) DeleteUser(ctx context.Context, docID string) error {
	if err := c.requireAdmin(true); err != nil {
		return err
	}
	if err := c.deps.Users.DeleteUser(ctx, docID); err != nil {
		return c.storeError("delete user", err)
	}
	return nil
}

func (c *Controller) ListReports(ctx context.Context) ([]model.Report, error) {
	if err := c.requireAdmin(true); err != nil {
		return nil, err
	}
	reports, err := c.deps.Reports.ListReports(ctx)
	if err != nil {
		c.logger.Error("admin list reports failed", "err", err)
		return nil, gate.Backend(gate.ErrBackend, MsgLoadFailed, err)
	}
	return reports, nil
}

// AddReport files a new report. New reports always start as Baru.
func (c *Controller) AddReport(ctx context.Context, in model.NewReport) (model.Report, error) {
	if err := c.requireAdmin(false); err != nil {
		return model.Report{}, err
	}
	if !c.online() {
		return model.Report{}, gate.Offline(MsgReportOffline)
	}
	in.Student = strings.TrimSpace(in.Student)
	in.Issue = strings.TrimSpace(in.Issue)
	if err := c.deps.Validate.Struct(in); err != nil {
		return model.Report{}, c.validationError(err)
	}
	report, err := c.deps.Reports.AddReport(ctx, model.Report{
		Student: in.Student,
		Class:   strings.TrimSpace(in.Class),
		Issue:   in.Issue,
		Status:  model.ReportNew,
	})
	if err != nil {
		return model.Report{}, c.storeError("add report", err)
	}
	return report, nil
}

func (c *Controller) UpdateReportStatus(ctx context.Context, id, status string) error {
	if err := c.requireAdmin(true); err != nil {
		return err
	}
	parsed, err := model.ParseReportStatus(status)
	if err != nil {
		return gate.Validation(gate.ErrInvalidRequest, MsgInvalidStatus)
	}
	if err := c.deps.Reports.UpdateReportStatus(ctx, id, parsed); err != nil {
		return c.storeError("update report", err)
	}
	return nil
}

func (c *Controller) DeleteReport(ctx context.Context, id string) error {
	if err := c.requireAdmin(true); err != nil {
		return err
	}
	if err := c.deps.Reports.DeleteReport(ctx, id); err != nil {
		return c.storeError("delete report", err)
	}
	return nil
}

// ExportReports writes every report as a spreadsheet to w.
func (c *Controller) ExportReports(ctx context.Context, w io.Writer) error {
	reports, err := c.ListReports(ctx)
	if err != nil {
		return err
	}
	if err := export.WriteReports(w, reports); err != nil {
		c.logger.Error("report export failed", "err", err)
		return gate.Backend(gate.ErrBackend, MsgLoadFailed, err)
	}
	return nil
}

// Analytics returns the feature usage counters.
func (c *Controller) Analytics(ctx context.Context) (map[string]int64, error) {
	if err := c.requireAdmin(true); err != nil {
		return nil, err
	}
	counters, err := c.deps.Counters.Counters(ctx, model.FeatureUsageCounter)
	if err != nil {
		c.logger.Error("analytics load failed", "err", err)
		return nil, gate.Backend(gate.ErrBackend, MsgLoadFailed, err)
	}
	return counters, nil
}

// ToggleMaintenance flips the shared maintenance flag. Local state changes
// only after the store accepted the write.
func (c *Controller) ToggleMaintenance(ctx context.Context) (bool, error) {
	if err := c.requireAdmin(true); err != nil {
		return false, err
	}
	next := !c.deps.Settings.MaintenanceMode()
	if err := c.deps.Settings.SetMaintenanceMode(ctx, next); err != nil {
		return !next, gate.Backend(gate.ErrBackend, MsgMaintenanceWrite, err)
	}
	return next, nil
}

func (c *Controller) AdminFeatures() (model.FeatureSettings, error) {
	if err := c.requireAdmin(false); err != nil {
		return nil, err
	}
	return c.deps.Settings.Features(), nil
}

// EditFeature opens the editor with the stored setting, falling back to the
// catalog title and Active.
func (c *Controller) EditFeature(featureID string) (gate.EditForm, error) {
	item, ok := c.deps.Catalog.Lookup(featureID)
	if !ok {
		return gate.EditForm{}, gate.Validation(gate.ErrUnknownFeature, gate.MsgUnknownFeature)
	}
	current := c.deps.Settings.Features()[featureID]

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(false); err != nil {
		return gate.EditForm{}, err
	}
	return c.publish.BeginEdit(featureID, item.Title, current)
}

// SubmitFeatureEdit stages the form behind the publish code. Nothing is
// written.
func (c *Controller) SubmitFeatureEdit(form gate.EditForm) (gate.PendingFeatureUpdate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(false); err != nil {
		return gate.PendingFeatureUpdate{}, err
	}
	return c.publish.Submit(form)
}

// VerifyPublish commits the staged update when pin matches the publish code.
// The session lock is held across the write so a concurrent cancel cannot
// interleave with it.
func (c *Controller) VerifyPublish(ctx context.Context, pin string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(false); err != nil {
		return err
	}
	if err := c.publish.Verify(ctx, pin, c.online(), c.deps.Settings); err != nil {
		if gate.IsCode(err, gate.ErrRefreshFailed) {
			c.logger.Warn("feature refresh after publish failed", "err", err)
		}
		return err
	}
	c.logger.Info("feature update verified")
	return nil
}

func (c *Controller) CancelPublish() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.requireAdminLocked(false); err != nil {
		return err
	}
	c.publish.Cancel()
	return nil
}
