// Package web holds the server-rendered pages and their static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"cropcare/internal/model"
	"cropcare/internal/result"
	"cropcare/internal/upload"
	"cropcare/internal/workspace"
)

//go:embed templates/*.html static/*
var files embed.FS

const (
	PageHome    = "home"
	PageAuth    = "auth"
	PageHistory = "history"
)

// Layout is shared by every page.
type Layout struct {
	Title       string
	User        *model.User
	AutoRefresh bool
}

type HomePage struct {
	Layout
	State         workspace.State
	AdvisoryLimit string
}

// NewHomePage fills in the fixed copy and decides whether a script-less browser needs to poll.
func NewHomePage(user *model.User, st workspace.State) HomePage {
	pending := st.HasFile && !st.PreviewReady && !st.PreviewError
	return HomePage{
		Layout: Layout{
			Title:       "Analyze",
			User:        user,
			AutoRefresh: st.Snapshot.Loading() || pending,
		},
		State:         st,
		AdvisoryLimit: upload.AdvisoryLimit,
	}
}

const (
	TabLogin  = "login"
	TabSignup = "signup"
)

type AuthPage struct {
	Layout
	Tab       string
	Error     string
	Email     string
	FirstName string
	LastName  string
}

type HistoryPage struct {
	Layout
	Enabled bool
	Error   string
	Records []model.AnalysisRecord
}

var funcs = template.FuncMap{
	"percent": result.Percent,
	"tier":    result.TierFor,
	// dataURL lets the preview through the URL sanitizer. Only data: URLs built by the
	// preview decoder reach it.
	"dataURL": func(s string) template.URL {
		if strings.HasPrefix(s, "data:") {
			return template.URL(s)
		}
		return ""
	},
}

// Renderer executes the page templates, each parsed together with the base layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageHome, PageAuth, PageHistory} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(files,
			"templates/base.html",
			"templates/result.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s template failed: %w", page, err)
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(w io.Writer, page string, data any) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "base", data)
}

// Static serves the stylesheet and page script.
func Static() http.FileSystem {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
