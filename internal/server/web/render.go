package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/dmitrijs2005/duplofs/internal/server/models"
	"github.com/dmitrijs2005/duplofs/internal/server/storage"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex    = "index.html"
	pageLogin    = "login.html"
	pageRegister = "register.html"
)

var templateFuncs = template.FuncMap{
	"humanSize":    humanSize,
	"downloadPath": func(name string) string { return "/download/" + storage.EscapeKey(name) },
}

// pageData is the view model shared by all pages.
type pageData struct {
	Title    string
	Flashes  []string
	LoggedIn bool

	Files  []models.StoredFile
	Bucket string
	Region string
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageIndex, pageLogin, pageRegister} {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render writes page with data, consuming pending flash notices.
func (s *Server) render(c *fiber.Ctx, page string, data pageData) error {
	t, ok := s.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	data.Flashes = s.popFlashes(c)
	data.LoggedIn = loggedIn(c)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
