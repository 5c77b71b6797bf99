package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kitabuddy/internal/gate"
	"kitabuddy/internal/model"
)

const (
	maxImageBytes = 8 << 20
	wsWriteWait   = 10 * time.Second
)

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	messages, err := controllerFromContext(r.Context()).ChatHistory(r.Context())
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type chatRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	reply, err := controllerFromContext(r.Context()).SendChat(r.Context(), req.Text, model.ParseLanguage(req.Language))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type chatFrame struct {
	Messages []model.ChatMessage `json:"messages,omitempty"`
	Error    string              `json:"error,omitempty"`
	Message  string              `json:"message,omitempty"`
}

// handleChatSocket pushes the recent conversation on every change. Frames
// read from the client are sent to the companion like POST /chat/messages.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	controller := controllerFromContext(r.Context())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := controller.SubscribeChat(ctx)
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", controller.ID(), "err", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(frame chatFrame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(frame)
	}

	go func() {
		defer cancel()
		for {
			var req chatRequest
			if err := conn.ReadJSON(&req); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("websocket read ended", "session_id", controller.ID(), "err", err)
				}
				return
			}
			if _, err := controller.SendChat(ctx, req.Text, model.ParseLanguage(req.Language)); err != nil {
				frame := chatFrame{Error: "server_error"}
				if gateErr, ok := gate.As(err); ok {
					frame = chatFrame{Error: gateErr.Code, Message: gateErr.Message}
				}
				if err := write(frame); err != nil {
					return
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case messages, ok := <-updates:
			if !ok {
				return
			}
			if err := write(chatFrame{Messages: messages}); err != nil {
				return
			}
		}
	}
}

type storyRequest struct {
	Topic    string `json:"topic"`
	Language string `json:"language"`
}

func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	result, err := controllerFromContext(r.Context()).Story(r.Context(), req.Topic, model.ParseLanguage(req.Language))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type illustrationRequest struct {
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
}

func (s *Server) handleIllustration(w http.ResponseWriter, r *http.Request) {
	var req illustrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	result, err := controllerFromContext(r.Context()).Illustration(r.Context(), req.Prompt, model.ParseLanguage(req.Language))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type speechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	result, err := controllerFromContext(r.Context()).Speech(r.Context(), req.Text, model.ParseLanguage(req.Language))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// analyzeRequest carries the image base64 encoded in Image.
type analyzeRequest struct {
	Image    []byte `json:"image"`
	MIMEType string `json:"mimeType"`
	Language string `json:"language"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes*2)
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if len(req.Image) > maxImageBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "image_too_large")
		return
	}
	result, err := controllerFromContext(r.Context()).AnalyzeImage(r.Context(), req.Image, req.MIMEType, model.ParseLanguage(req.Language))
	if err != nil {
		s.writeGateError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
