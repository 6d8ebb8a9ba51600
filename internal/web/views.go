package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"ndi_desktop/internal/content"
	"ndi_desktop/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTitles = map[string]string{
	"index":      "Accueil",
	"nird":       "La démarche NIRD",
	"solutions":  "Solutions libres",
	"simulateur": "Simulateur de coûts",
	"ressources": "Ressources",
}

type views struct {
	basePath string
	pages    map[string]*template.Template
}

// URL joins a route to the base path. An empty or "/" base path yields the
// route itself.
func URL(route, basePath string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	if basePath == "" || basePath == "/" {
		return route
	}
	return strings.TrimSuffix(basePath, "/") + route
}

func newViews(basePath string) (*views, error) {
	v := &views{basePath: basePath, pages: make(map[string]*template.Template)}
	funcs := template.FuncMap{
		"url":       func(route string) string { return URL(route, basePath) },
		"staticUrl": func(route string) string { return URL(route, basePath) },
	}

	layout, err := fs.ReadFile(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	for _, name := range []string{"page", "windows", "app"} {
		body, err := fs.ReadFile(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", name, err)
		}
		t, err := template.New(name).Funcs(funcs).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parse layout: %w", err)
		}
		if _, err := t.Parse(string(body)); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

func (v *views) render(w http.ResponseWriter, name string, data map[string]any) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	data["BasePath"] = v.basePath
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

func (s *Server) handlePage(name, page string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.renderOrFail(w, "page", map[string]any{
			"Name":  name,
			"Page":  page,
			"Title": pageTitles[name],
		})
	}
}

func (s *Server) handleDesktop(w http.ResponseWriter, _ *http.Request) {
	s.renderOrFail(w, "windows", map[string]any{
		"Page":  "windows",
		"Title": "Windows",
		"State": s.engine.State(),
	})
}

func (s *Server) handleApp(w http.ResponseWriter, r *http.Request) {
	app, ok := s.catalog.App(chi.URLParam(r, "appID"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.renderOrFail(w, "app", map[string]any{
		"Page":    "app",
		"Title":   app.Name,
		"App":     app,
		"Mailbox": app.ID == s.catalog.Mailbox,
		"Source":  domain.SourceID,
	})
}

func (s *Server) renderOrFail(w http.ResponseWriter, name string, data map[string]any) {
	if err := s.views.render(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("render view")
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (s *Server) staticHandler(dir string) http.Handler {
	root := http.Dir(path.Join(s.opts.PublicDir, dir))
	return http.StripPrefix("/"+dir+"/", http.FileServer(root))
}

func (s *Server) handleDialog(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	data, err := s.dialogs.Read(key)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrNotFound):
			http.NotFound(w, r)
		case errors.Is(err, content.ErrOutsideRoot):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			s.logger.Error().Err(err).Str("key", key).Msg("read dialog")
			http.Error(w, "read failed", http.StatusInternalServerError)
		}
		return
	}
	ctype := mime.TypeByExtension(path.Ext(key))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	if strings.HasSuffix(key, ".yaml") || strings.HasSuffix(key, ".yml") {
		ctype = "application/yaml"
	}
	w.Header().Set("Content-Type", ctype)
	_, _ = w.Write(data)
}
