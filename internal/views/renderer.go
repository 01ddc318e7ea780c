// Package views renders the few HTML pages served by the gateway itself.
package views

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
)

const (
	LoginTemplate  string = "login"
	LogoutTemplate string = "logout"
)

// LoginPage is the data of the login form
type LoginPage struct {
	LoginPath   string
	RedirectURL string
	Username    string
	Error       string
}

type LogoutPage struct {
	RedirectURL string
}

type TemplateRenderer struct {
	templates *template.Template
}

func (tr *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl := tr.templates.Lookup(name)
	if tmpl == nil {
		return fmt.Errorf("there is no %q page", name)
	}
	return tmpl.Execute(w, data)
}

func (tr *TemplateRenderer) Register(e *echo.Echo) {
	e.Renderer = tr
}

func NewTemplateRenderer() (*TemplateRenderer, error) {
	templates, err := getTemplates()
	if err != nil {
		return &TemplateRenderer{}, err
	}
	return &TemplateRenderer{templates: templates}, nil
}
