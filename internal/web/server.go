// Package web serves the desktop simulation: the HTML pages, their static
// assets, the content documents and the JSON API driving the quest engine.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ndi_desktop/internal/catalog"
	"ndi_desktop/internal/content"
	"ndi_desktop/internal/desktop"
	"ndi_desktop/internal/gateway/ws"
	"ndi_desktop/internal/messaging/inproc"
	"ndi_desktop/internal/orchestrator"
)

type Options struct {
	Addr      string
	BasePath  string
	PublicDir string
}

// Server is the HTTP front of the desktop.
type Server struct {
	httpServer *http.Server
	router     chi.Router

	catalog *catalog.Catalog
	engine  *orchestrator.Engine
	shell   *desktop.Shell
	bus     *inproc.Bus
	hub     *ws.Hub
	dialogs *content.DirStore
	views   *views
	opts    Options
	logger  zerolog.Logger
}

// NewServer builds the router. dialogs may be nil when content is fetched
// from a remote store, in which case /dialogs is not served.
func NewServer(
	cat *catalog.Catalog,
	engine *orchestrator.Engine,
	shell *desktop.Shell,
	bus *inproc.Bus,
	dialogs *content.DirStore,
	opts Options,
	logger zerolog.Logger,
) (*Server, error) {
	v, err := newViews(opts.BasePath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		catalog: cat,
		engine:  engine,
		shell:   shell,
		bus:     bus,
		hub:     ws.NewHub(bus, shell, logger.With().Str("cmp", "ws").Logger()),
		dialogs: dialogs,
		views:   v,
		opts:    opts,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))

	r.Get("/healthz", s.handleHealth)

	r.Get("/", s.handlePage("index", "accueil"))
	r.Get("/nird", s.handlePage("nird", "nird"))
	r.Get("/solutions", s.handlePage("solutions", "solutions"))
	r.Get("/simulateur", s.handlePage("simulateur", "simulateur"))
	r.Get("/ressources", s.handlePage("ressources", "ressources"))
	r.Get("/windows", s.handleDesktop)
	r.Get("/apps/{appID}", s.handleApp)

	for _, dir := range []string{"stylesheets", "images", "javascripts"} {
		r.Handle("/"+dir+"/*", s.staticHandler(dir))
	}
	if dialogs != nil {
		r.Get("/dialogs/*", s.handleDialog)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/events", s.handleEvent)
		r.Post("/reset", s.handleReset)
		r.Get("/windows", s.handleListWindows)
		r.Post("/windows", s.handleOpenWindow)
		r.Delete("/windows/{windowID}", s.handleCloseWindow)
		r.Post("/windows/{windowID}/focus", s.handleFocusWindow)
		r.Post("/windows/{windowID}/minimize", s.handleMinimizeWindow)
		r.Post("/windows/{windowID}/maximize", s.handleMaximizeWindow)
		r.Post("/windows/{windowID}/move", s.handleMoveWindow)
		r.Post("/windows/{windowID}/resize", s.handleResizeWindow)
		r.Delete("/toasts/{toastID}", s.handleDismissToast)
		r.Get("/ws", s.hub.ServeWS)
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and blocks until the server stops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info().Str("addr", ln.Addr().String()).Str("base_path", s.opts.BasePath).Msg("desktop listening")
	return s.httpServer.Serve(ln)
}

// Shutdown drops websocket clients, then drains HTTP requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC(),
	})
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Msg("request")
		})
	}
}
