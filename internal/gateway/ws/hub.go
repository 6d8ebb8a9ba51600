// Package ws bridges browser windows to the in-process event bus. Each
// embedded app connects once per window and speaks domain.Envelope frames.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"ndi_desktop/internal/desktop"
	"ndi_desktop/internal/domain"
	"ndi_desktop/internal/messaging/inproc"
)

// Windows resolves a handle to an open desktop window.
type Windows interface {
	Window(id string) (desktop.Window, error)
}

// Hub tracks one websocket connection per window handle.
type Hub struct {
	bus     *inproc.Bus
	windows Windows
	logger  zerolog.Logger

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func NewHub(bus *inproc.Bus, windows Windows, logger zerolog.Logger) *Hub {
	return &Hub{
		bus:     bus,
		windows: windows,
		logger:  logger,
		conns:   make(map[string]*websocket.Conn),
	}
}

// ServeWS upgrades the request for the window named by the "window" query
// parameter. Pushes for that handle are written as frames; frames read from
// the socket are emitted to the host inbox.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("window")
	if handle == "" {
		http.Error(w, "missing window parameter", http.StatusBadRequest)
		return
	}
	if !h.open(handle) {
		http.Error(w, "unknown window", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("window", handle).Msg("ws accept")
		return
	}

	h.attach(handle, conn)
	pushes := h.bus.Register(handle)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writePump(ctx, cancel, handle, conn, pushes)
	h.readPump(ctx, handle, conn)

	h.detach(handle, conn)
	conn.Close(websocket.StatusNormalClosure, "")

	// The window may have closed between the lookup and Register.
	if !h.open(handle) {
		h.bus.Unregister(handle)
	}
}

func (h *Hub) open(handle string) bool {
	_, err := h.windows.Window(handle)
	return err == nil
}

func (h *Hub) attach(handle string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev, ok := h.conns[handle]; ok {
		prev.Close(websocket.StatusPolicyViolation, "replaced by a newer connection")
	}
	h.conns[handle] = conn
	h.logger.Debug().Str("window", handle).Int("clients", len(h.conns)).Msg("ws client connected")
}

func (h *Hub) detach(handle string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[handle] == conn {
		delete(h.conns, handle)
	}
	h.logger.Debug().Str("window", handle).Int("clients", len(h.conns)).Msg("ws client disconnected")
}

func (h *Hub) readPump(ctx context.Context, handle string, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				h.logger.Debug().Str("window", handle).Msg("ws read closed")
			} else {
				h.logger.Debug().Err(err).Str("window", handle).Msg("ws read error")
			}
			return
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn().Err(err).Str("window", handle).Msg("ws unmarshal frame")
			continue
		}
		if env.Source != domain.SourceID {
			continue
		}
		env.Handle = handle
		if err := h.bus.Emit(env); err != nil {
			h.logger.Warn().Err(err).Str("window", handle).Str("event", env.Type).Msg("drop inbound event")
		}
	}
}

func (h *Hub) writePump(ctx context.Context, cancel context.CancelFunc, handle string, conn *websocket.Conn, pushes <-chan domain.Envelope) {
	defer cancel()
	for {
		select {
		case env, ok := <-pushes:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "window closed")
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				h.logger.Error().Err(err).Str("window", handle).Msg("marshal frame")
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Connected reports whether a window currently has a live socket.
func (h *Hub) Connected(handle string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.conns[handle]
	return ok
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for handle, conn := range h.conns {
		conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.conns, handle)
	}
}
