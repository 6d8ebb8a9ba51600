// Package desktop keeps the windows of the simulated desktop. Which apps may
// be opened is decided by the quest engine; the shell only lays windows out.
package desktop

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ndi_desktop/internal/catalog"
)

var (
	ErrAppLocked      = errors.New("app is locked")
	ErrUnknownApp     = errors.New("unknown app")
	ErrWindowNotFound = errors.New("window not found")
)

// Gatekeeper answers whether an app may be opened right now.
type Gatekeeper interface {
	CanOpenApp(appID string) (bool, string)
	ClearNotification(appID string)
}

// Detacher releases the transport handle of a closed window.
type Detacher interface {
	Unregister(handle string)
}

type Config struct {
	BasePath      string
	DefaultWidth  int
	DefaultHeight int
	MinWidth      int
	MinHeight     int
	OffsetStep    int
	InitialX      int
	InitialY      int
	InitialZ      int
}

func (c Config) withDefaults() Config {
	if c.BasePath == "/" {
		c.BasePath = ""
	}
	if c.DefaultWidth <= 0 {
		c.DefaultWidth = 800
	}
	if c.DefaultHeight <= 0 {
		c.DefaultHeight = 500
	}
	if c.MinWidth <= 0 {
		c.MinWidth = 300
	}
	if c.MinHeight <= 0 {
		c.MinHeight = 200
	}
	if c.OffsetStep <= 0 {
		c.OffsetStep = 30
	}
	if c.InitialX <= 0 {
		c.InitialX = 100
	}
	if c.InitialY <= 0 {
		c.InitialY = 80
	}
	if c.InitialZ <= 0 {
		c.InitialZ = 1000
	}
	return c
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Window struct {
	Rect

	ID        string `json:"id"`
	AppID     string `json:"app_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	ZIndex    int    `json:"z_index"`
	Minimized bool   `json:"minimized"`
	Maximized bool   `json:"maximized"`

	prev *Rect
}

type Shell struct {
	catalog  *catalog.Catalog
	gate     Gatekeeper
	detacher Detacher
	cfg      Config
	logger   zerolog.Logger

	mu      sync.RWMutex
	windows []*Window
	nextZ   int
}

func NewShell(cat *catalog.Catalog, gate Gatekeeper, detacher Detacher, cfg Config, logger zerolog.Logger) *Shell {
	cfg = cfg.withDefaults()
	return &Shell{
		catalog:  cat,
		gate:     gate,
		detacher: detacher,
		cfg:      cfg,
		logger:   logger,
		nextZ:    cfg.InitialZ,
	}
}

// OpenApp opens a new window for the app. Locked or blocking-restricted apps
// yield ErrAppLocked and no window.
func (s *Shell) OpenApp(appID string) (Window, error) {
	app, ok := s.catalog.App(appID)
	if !ok {
		return Window{}, fmt.Errorf("%w: %s", ErrUnknownApp, appID)
	}
	if ok, reason := s.gate.CanOpenApp(appID); !ok {
		s.logger.Info().Str("app", appID).Str("reason", reason).Msg("open refused")
		return Window{}, fmt.Errorf("%w: %s: %s", ErrAppLocked, appID, reason)
	}
	s.gate.ClearNotification(appID)

	s.mu.Lock()
	defer s.mu.Unlock()

	offset := len(s.windows) * s.cfg.OffsetStep
	win := &Window{
		ID:    "win-" + uuid.NewString(),
		AppID: appID,
		Title: app.Name,
		URL:   joinURL(s.cfg.BasePath, app.Route),
		Rect: Rect{
			X:      s.cfg.InitialX + offset,
			Y:      s.cfg.InitialY + offset,
			Width:  s.cfg.DefaultWidth,
			Height: s.cfg.DefaultHeight,
		},
		ZIndex: s.nextZLocked(),
	}
	s.windows = append(s.windows, win)
	s.logger.Debug().Str("window", win.ID).Str("app", appID).Msg("window opened")
	return *win, nil
}

func (s *Shell) Close(id string) error {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrWindowNotFound
	}
	s.windows = append(s.windows[:idx], s.windows[idx+1:]...)
	s.mu.Unlock()

	if s.detacher != nil {
		s.detacher.Unregister(id)
	}
	return nil
}

// Focus raises the window and restores it when minimized.
func (s *Shell) Focus(id string) error {
	return s.update(id, func(w *Window) {
		w.ZIndex = s.nextZLocked()
		w.Minimized = false
	})
}

// Minimize toggles the minimized flag.
func (s *Shell) Minimize(id string) error {
	return s.update(id, func(w *Window) {
		w.Minimized = !w.Minimized
	})
}

func (s *Shell) ToggleMaximize(id string) error {
	return s.update(id, func(w *Window) {
		if w.Maximized {
			if w.prev != nil {
				w.Rect = *w.prev
			}
			w.prev = nil
			w.Maximized = false
			return
		}
		prev := w.Rect
		w.prev = &prev
		w.Maximized = true
		w.X, w.Y = 0, 0
	})
}

// Move places the window and raises it. Maximized windows do not move.
func (s *Shell) Move(id string, x, y int) error {
	return s.update(id, func(w *Window) {
		if w.Maximized {
			return
		}
		w.ZIndex = s.nextZLocked()
		w.X, w.Y = x, y
	})
}

// Resize applies a drag of (dx, dy) on the given edge handle, a combination
// of "n", "s", "e" and "w". Sizes never shrink below the configured minimum.
func (s *Shell) Resize(id, handle string, dx, dy int) error {
	return s.update(id, func(w *Window) {
		if w.Maximized {
			return
		}
		w.ZIndex = s.nextZLocked()
		start := w.Rect
		if strings.Contains(handle, "e") {
			w.Width = max(s.cfg.MinWidth, start.Width+dx)
		}
		if strings.Contains(handle, "w") {
			w.Width = max(s.cfg.MinWidth, start.Width-dx)
			w.X = start.X + (start.Width - w.Width)
		}
		if strings.Contains(handle, "s") {
			w.Height = max(s.cfg.MinHeight, start.Height+dy)
		}
		if strings.Contains(handle, "n") {
			w.Height = max(s.cfg.MinHeight, start.Height-dy)
			w.Y = start.Y + (start.Height - w.Height)
		}
	})
}

func (s *Shell) Window(id string) (Window, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Window{}, ErrWindowNotFound
	}
	return *s.windows[idx], nil
}

// Windows returns the open windows ordered bottom to top.
func (s *Shell) Windows() []Window {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Window, 0, len(s.windows))
	for _, w := range s.windows {
		out = append(out, *w)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// HandlesFor returns the transport handles of every open instance of an app.
func (s *Shell) HandlesFor(appID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, w := range s.windows {
		if w.AppID == appID {
			out = append(out, w.ID)
		}
	}
	return out
}

func (s *Shell) update(id string, fn func(*Window)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrWindowNotFound
	}
	fn(s.windows[idx])
	return nil
}

func (s *Shell) indexLocked(id string) int {
	for i, w := range s.windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func (s *Shell) nextZLocked() int {
	z := s.nextZ
	s.nextZ++
	return z
}

func joinURL(basePath, route string) string {
	if route == "" {
		return ""
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return basePath + route
}
