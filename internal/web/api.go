package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ndi_desktop/internal/desktop"
	"ndi_desktop/internal/domain"
	"ndi_desktop/internal/messaging/inproc"
)

type stateResponse struct {
	domain.DesktopState
	Windows []desktop.Window `json:"windows"`
}

func (s *Server) currentState() stateResponse {
	return stateResponse{
		DesktopState: s.engine.State(),
		Windows:      s.shell.Windows(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentState())
}

// handleEvent queues a child event on the bus inbox so HTTP and websocket
// events share one ordered stream.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var env domain.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode event: %w", err))
		return
	}
	if env.Source == "" {
		env.Source = domain.SourceID
	}
	if env.Source != domain.SourceID {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unexpected source %q", env.Source))
		return
	}
	if env.Type == "" {
		writeError(w, http.StatusBadRequest, errors.New("type is required"))
		return
	}
	if _, err := domain.DecodeEvent(env.Type, env.Data); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.bus.Emit(env); err != nil {
		if errors.Is(err, inproc.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"queued": env.Type})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset(r.Context())
	writeJSON(w, http.StatusOK, s.currentState())
}

func (s *Server) handleListWindows(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.shell.Windows())
}

func (s *Server) handleOpenWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppID string `json:"app_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	win, err := s.shell.OpenApp(req.AppID)
	if err != nil {
		writeError(w, windowErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, win)
}

func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request) {
	if err := s.shell.Close(chi.URLParam(r, "windowID")); err != nil {
		writeError(w, windowErrorStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFocusWindow(w http.ResponseWriter, r *http.Request) {
	s.windowAction(w, r, s.shell.Focus)
}

func (s *Server) handleMinimizeWindow(w http.ResponseWriter, r *http.Request) {
	s.windowAction(w, r, s.shell.Minimize)
}

func (s *Server) handleMaximizeWindow(w http.ResponseWriter, r *http.Request) {
	s.windowAction(w, r, s.shell.ToggleMaximize)
}

func (s *Server) handleMoveWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	s.windowAction(w, r, func(id string) error {
		return s.shell.Move(id, req.X, req.Y)
	})
}

func (s *Server) handleResizeWindow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
		DX     int    `json:"dx"`
		DY     int    `json:"dy"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	s.windowAction(w, r, func(id string) error {
		return s.shell.Resize(id, req.Handle, req.DX, req.DY)
	})
}

func (s *Server) windowAction(w http.ResponseWriter, r *http.Request, action func(id string) error) {
	id := chi.URLParam(r, "windowID")
	if err := action(id); err != nil {
		writeError(w, windowErrorStatus(err), err)
		return
	}
	win, err := s.shell.Window(id)
	if err != nil {
		writeError(w, windowErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, win)
}

func (s *Server) handleDismissToast(w http.ResponseWriter, r *http.Request) {
	if !s.engine.DismissToast(chi.URLParam(r, "toastID")) {
		writeError(w, http.StatusNotFound, errors.New("toast not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func windowErrorStatus(err error) int {
	switch {
	case errors.Is(err, desktop.ErrAppLocked):
		return http.StatusForbidden
	case errors.Is(err, desktop.ErrUnknownApp), errors.Is(err, desktop.ErrWindowNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
