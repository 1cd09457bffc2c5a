package http

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"github.com/example/student-affairs/internal/application"
	"github.com/example/student-affairs/internal/notify"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed content/about.md
var aboutMarkdown string

// Raw HTML in stored Markdown is omitted from the output.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(goldmarkHTML.WithHardWraps()),
)

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

var pageTemplates = []string{
	"home.html",
	"about.html",
	"clubs.html",
	"club.html",
	"club_not_found.html",
	"events.html",
	"contact.html",
	"not_found.html",
	"error.html",
	"staff_login.html",
	"staff_dashboard.html",
	"staff_club_form.html",
	"staff_event_form.html",
	"staff_confirm_delete.html",
}

// pageData is the root value of every page template.
type pageData struct {
	Title         string
	Staff         application.StaffState
	CSRFField     template.HTML
	Notifications []notify.Notification
	Page          any
}

// renderer executes the embedded page templates inside the shared layout.
type renderer struct {
	pages  map[string]*template.Template
	flash  *flashCookies
	logger *slog.Logger
}

// newRenderer parses the page templates. A nil flash signs with a random key.
func newRenderer(logger *slog.Logger, flash *flashCookies) (*renderer, error) {
	funcs := template.FuncMap{
		"renderMarkdown": renderMarkdown,
		"add":            func(a, b int) int { return a + b },
		"fieldError": func(errs map[string]string, field string) string {
			return errs[field]
		},
		"isFixedRole": isFixedRole,
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		tpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tpl
	}
	if flash == nil {
		flash = newFlashCookies(nil, false)
	}
	return &renderer{pages: pages, flash: flash, logger: defaultLogger(logger)}, nil
}

// render writes the page with status. Notifications collected on the
// request and any pending flash are shown on the page.
func (rd *renderer) render(w http.ResponseWriter, r *http.Request, status int, name, title string, page any, notes ...notify.Notification) {
	tpl, ok := rd.pages[name]
	if !ok {
		handlerLogger(r.Context(), rd.logger, "renderer", "render", "template", name).
			ErrorContext(r.Context(), "unknown template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:         title,
		Staff:         StaffFromContext(r.Context()),
		CSRFField:     csrf.TemplateField(r),
		Notifications: append(rd.flash.take(w, r), notes...),
		Page:          page,
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		handlerLogger(r.Context(), rd.logger, "renderer", "render", "template", name).
			ErrorContext(r.Context(), "failed to render template", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (rd *renderer) notFound(w http.ResponseWriter, r *http.Request) {
	rd.render(w, r, http.StatusNotFound, "not_found.html", "Page Not Found", nil)
}

func (rd *renderer) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	rd.render(w, r, status, "error.html", http.StatusText(status), errorPage{Status: status, Message: message})
}

type errorPage struct {
	Status  int
	Message string
}

func isFixedRole(role string) bool {
	for _, fixed := range fixedRoles {
		if strings.EqualFold(fixed, role) {
			return true
		}
	}
	return false
}

var fixedRoles = func() []string {
	roles := make([]string, 0, 3)
	for _, leader := range application.DefaultLeadership() {
		roles = append(roles, leader.Role)
	}
	return roles
}()
