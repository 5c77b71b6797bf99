package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kitabuddy/internal/auth"
	"kitabuddy/internal/model"
	"kitabuddy/internal/session"
)

type sessionResponse struct {
	Token string        `json:"token"`
	State session.State `json:"state"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, _ *http.Request) {
	controller := s.sessions.Create()
	token, err := auth.NewSessionToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.sessions.TTL(), controller.ID())
	if err != nil {
		s.sessions.Remove(controller.ID())
		s.logger.Error("session token failed", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, State: controller.State()})
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type loginResponse struct {
	User  model.Session `json:"user"`
	State session.State `json:"state"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	user, err := controller.Login(r.Context(), req.ID, req.Password)
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{User: user, State: controller.State()})
}

// handleLogout resets the session and drops it. The client opens a new
// session to continue.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	controller.Logout()
	s.sessions.Remove(controller.ID())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, controllerFromContext(r.Context()).State())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	view, ok := model.ParseView(chi.URLParam(r, "view"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_view")
		return
	}
	if err := controller.Navigate(r.Context(), view); err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, controller.State())
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := controllerFromContext(r.Context()).Menu()
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"features": menu})
}

func (s *Server) handleOpenFeature(w http.ResponseWriter, r *http.Request) {
	outcome, err := controllerFromContext(r.Context()).OpenFeature(chi.URLParam(r, "featureId"))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleCloseFeature(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	controller.CloseFeature()
	writeJSON(w, http.StatusOK, controller.State())
}

type dialogRequest struct {
	Open bool `json:"open"`
}

func (s *Server) handleBypassDialog(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	var req dialogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Open {
		controller.OpenBypassDialog()
	} else {
		controller.CloseBypassDialog()
	}
	writeJSON(w, http.StatusOK, controller.State())
}

type pinRequest struct {
	Pin string `json:"pin"`
}

func (s *Server) handleBypass(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := controller.Bypass(req.Pin); err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, controller.State())
}
