package handler

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/joestump/joe-pages/web"
)

// BasePage carries layout-level data available to every template.
type BasePage struct {
	Title    string
	SignedIn bool
	OIDC     bool
}

// pageCache maps a page file name (e.g. "profile.html") to a compiled set
// containing base.html, the partials and that one page file. Each page gets
// its own set so {{define "content"}} blocks don't collide.
var pageCache map[string]*template.Template

var funcs = template.FuncMap{
	"initial": func(s string) string {
		for _, r := range strings.TrimSpace(s) {
			return strings.ToUpper(string(r))
		}
		return "?"
	},
}

func init() {
	partials, err := fs.Glob(web.TemplateFS, "templates/partials/*.html")
	if err != nil {
		panic("glob partials: " + err.Error())
	}
	pages, err := fs.Glob(web.TemplateFS, "templates/pages/*.html")
	if err != nil {
		panic("glob pages: " + err.Error())
	}

	pageCache = make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		files := append([]string{"templates/base.html"}, partials...)
		files = append(files, p)
		t, err := template.New("").Funcs(funcs).ParseFS(web.TemplateFS, files...)
		if err != nil {
			panic(fmt.Sprintf("parse %s: %v", p, err))
		}
		pageCache[strings.TrimPrefix(p, "templates/pages/")] = t
	}
}

// render executes a full-page template (base layout + named page).
func render(w http.ResponseWriter, logger *zap.Logger, status int, tmpl string, data any) {
	t, ok := pageCache[tmpl]
	if !ok {
		logger.Error("template not found", zap.String("template", tmpl))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	// Render into a buffer so a template error never arrives after a 200.
	var buf strings.Builder
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		logger.Error("render template", zap.String("template", tmpl), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}
