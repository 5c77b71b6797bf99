package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"kitabuddy/internal/auth"
	"kitabuddy/internal/config"
	"kitabuddy/internal/gate"
	"kitabuddy/internal/session"
)

type Server struct {
	cfg      config.Config
	sessions *session.Manager
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, sessions *session.Manager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/sessions", s.handleOpenSession)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/state", s.handleState)
		r.Post("/view/{view}", s.handleNavigate)
		r.Get("/menu", s.handleMenu)

		r.Post("/features/{featureId}/open", s.handleOpenFeature)
		r.Post("/features/close", s.handleCloseFeature)

		r.Post("/maintenance/dialog", s.handleBypassDialog)
		r.Post("/maintenance/bypass", s.handleBypass)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/unlock", s.handleUnlock)

			r.Get("/users", s.handleListUsers)
			r.Post("/users", s.handleAddUser)
			r.Patch("/users/{docId}", s.handleUpdateUserRole)
			r.Delete("/users/{docId}", s.handleDeleteUser)

			r.Get("/reports", s.handleListReports)
			r.Post("/reports", s.handleAddReport)
			r.Get("/reports/export", s.handleExportReports)
			r.Patch("/reports/{id}", s.handleUpdateReportStatus)
			r.Delete("/reports/{id}", s.handleDeleteReport)

			r.Get("/analytics", s.handleAnalytics)
			r.Post("/maintenance/toggle", s.handleToggleMaintenance)

			r.Get("/features", s.handleAdminFeatures)
			r.Post("/features/{featureId}/edit", s.handleEditFeature)
			r.Post("/features/submit", s.handleSubmitFeature)
			r.Post("/features/verify", s.handleVerifyPublish)
			r.Post("/features/cancel", s.handleCancelPublish)
		})

		r.Get("/chat/messages", s.handleChatHistory)
		r.Post("/chat/messages", s.handleSendChat)
		r.Get("/chat/ws", s.handleChatSocket)

		r.Post("/companion/story", s.handleStory)
		r.Post("/companion/illustration", s.handleIllustration)
		r.Post("/companion/speech", s.handleSpeech)
		r.Post("/companion/analyze", s.handleAnalyze)
	})

	return r
}

type controllerKey struct{}

// authMiddleware resolves the bearer token to the live session controller.
// Websocket clients may pass the token as the token query parameter.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}

		claims, err := auth.ParseSessionToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		controller, ok := s.sessions.Get(claims.SessionID)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session_expired")
			return
		}

		ctx := context.WithValue(r.Context(), controllerKey{}, controller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func controllerFromContext(ctx context.Context) *session.Controller {
	controller, _ := ctx.Value(controllerKey{}).(*session.Controller)
	return controller
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeGateError maps a gate error to its status and writes the code with
// the inline message.
func (s *Server) writeGateError(w http.ResponseWriter, err error) {
	gateErr, ok := gate.As(err)
	if !ok {
		s.logger.Error("unexpected handler error", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, statusFor(gateErr), errorResponse{Error: gateErr.Code, Message: gateErr.Message})
}

func statusFor(err *gate.Error) int {
	switch err.Kind {
	case gate.KindValidation:
		switch err.Code {
		case gate.ErrNotFound, gate.ErrUnknownFeature:
			return http.StatusNotFound
		case gate.ErrUserExists:
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case gate.KindAuth:
		switch err.Code {
		case gate.ErrInvalidCredentials, gate.ErrInvalidPin:
			return http.StatusUnauthorized
		}
		return http.StatusForbidden
	case gate.KindConnectivity:
		return http.StatusServiceUnavailable
	case gate.KindBackend:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
