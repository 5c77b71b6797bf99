package http

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kitabuddy/internal/gate"
	"kitabuddy/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	data, err := controllerFromContext(r.Context()).UnlockAdmin(r.Context(), req.Pin)
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := controllerFromContext(r.Context()).ListUsers(r.Context())
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req model.NewUser
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	user, err := controllerFromContext(r.Context()).AddUser(r.Context(), req)
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := controllerFromContext(r.Context()).UpdateUserRole(r.Context(), chi.URLParam(r, "docId"), req.Role); err != nil {
		s.writeGateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := controllerFromContext(r.Context()).DeleteUser(r.Context(), chi.URLParam(r, "docId")); err != nil {
		s.writeGateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := controllerFromContext(r.Context()).ListReports(r.Context())
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": reports})
}

func (s *Server) handleAddReport(w http.ResponseWriter, r *http.Request) {
	var req model.NewReport
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	report, err := controllerFromContext(r.Context()).AddReport(r.Context(), req)
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateReportStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := controllerFromContext(r.Context()).UpdateReportStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		s.writeGateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	if err := controllerFromContext(r.Context()).DeleteReport(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeGateError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportReports(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := controllerFromContext(r.Context()).ExportReports(r.Context(), &buf); err != nil {
		s.writeGateError(w, err)
		return
	}
	filename := "laporan-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	counters, err := controllerFromContext(r.Context()).Analytics(r.Context())
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"counter": model.FeatureUsageCounter, "counts": counters})
}

func (s *Server) handleToggleMaintenance(w http.ResponseWriter, r *http.Request) {
	enabled, err := controllerFromContext(r.Context()).ToggleMaintenance(r.Context())
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"maintenanceMode": enabled})
}

func (s *Server) handleAdminFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := controllerFromContext(r.Context()).AdminFeatures()
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"features": features})
}

func (s *Server) handleEditFeature(w http.ResponseWriter, r *http.Request) {
	form, err := controllerFromContext(r.Context()).EditFeature(chi.URLParam(r, "featureId"))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (s *Server) handleSubmitFeature(w http.ResponseWriter, r *http.Request) {
	var form gate.EditForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	pending, err := controllerFromContext(r.Context()).SubmitFeatureEdit(form)
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, pending)
}

func (s *Server) handleVerifyPublish(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := controller.VerifyPublish(r.Context(), req.Pin); err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, controller.State())
}

func (s *Server) handleCancelPublish(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	if err := controller.CancelPublish(); err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, controller.State())
}
