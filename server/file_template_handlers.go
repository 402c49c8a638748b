package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
)

//go:embed templates/*
var templateFiles embed.FS

const layoutTemplate = "layout.html"

var pageTemplates = []string{
	"index.html",
	"login.html",
	"signup.html",
	"forgot_password.html",
	"reset_password.html",
	"dashboard.html",
	"admin.html",
}

var templateFuncs = template.FuncMap{
	"asset": AssetPath,
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// pages holds every page parsed together with the shared layout.
type pages struct {
	byName map[string]*template.Template
}

func loadPages() (*pages, error) {
	fsys := TemplateFilesFS()
	p := &pages{byName: make(map[string]*template.Template, len(pageTemplates))}
	for _, name := range pageTemplates {
		tmpl, err := template.New(layoutTemplate).Funcs(templateFuncs).ParseFS(fsys, layoutTemplate, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.byName[name] = tmpl
	}
	return p, nil
}

// PageData is the model shared by every page.
type PageData struct {
	AppName string
	Title   string
	Error   string
	Notice  string

	// Login and reset request
	Email      string
	AdminLogin bool
	ShowReset  bool

	// Reset password
	Ready             bool
	Preparing         bool
	FieldErrors       map[string]string
	MinPasswordLength int

	// Signed-in pages
	User       *identity.Identity
	ActivePage string
	Users      []identity.Identity
	UsersNote  string
}

func (s *Server) newPageData(title string) PageData {
	return PageData{
		AppName:           s.config.GetAppName(),
		Title:             title,
		MinPasswordLength: auth.MinPasswordLength,
	}
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, status int, name string, data PageData) {
	tmpl, ok := s.pages.byName[name]
	if !ok {
		log.Error().Str("template", name).Msg("unknown template")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutTemplate, data); err != nil {
		log.Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "500 - Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

const contentTypeHTML = "text/html; charset=utf-8"
