package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/weather-page/internal/assets"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewApp builds the Fiber app: middleware, static files and routes.
func NewApp(deps Deps) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               "weather-page",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			message := http.StatusText(code)
			if e, ok := err.(*fiber.Error); ok {
				code, message = e.Code, e.Message
			} else {
				log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": message,
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Use(deps.Config.Resolver().Path("/static"), filesystem.New(filesystem.Config{
		Root:       http.FS(assets.Static),
		PathPrefix: "static",
		MaxAge:     3600,
	}))

	if err := RegisterRoutes(app, deps); err != nil {
		return nil, err
	}
	return app, nil
}

type pages struct {
	tmpl *template.Template
}

func newPages(resolver assets.Resolver) (*pages, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{
		"asset": resolver.Path,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &pages{tmpl: tmpl}, nil
}

func (p *pages) render(c *fiber.Ctx, name string, data any) error {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("ERROR: executing template %s: %v", name, err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render page")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
