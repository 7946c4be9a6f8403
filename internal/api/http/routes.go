package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-page/internal/assets"
	"github.com/i474232898/weather-page/internal/config"
	"github.com/i474232898/weather-page/internal/fetchstate"
	"github.com/i474232898/weather-page/internal/store"
	"github.com/i474232898/weather-page/internal/weather"
)

var validate = validator.New()

// WeatherSource is the mounted fetch state behind the weather page.
type WeatherSource interface {
	State() fetchstate.State[weather.Payload]
	Refetch()
}

// History exposes recorded readings.
type History interface {
	Latest() (weather.Reading, error)
	Range(from, to time.Time) ([]weather.Reading, error)
}

// Deps holds what the routes need.
type Deps struct {
	Config  config.Config
	Weather WeatherSource
	History History
}

type routes struct {
	deps     Deps
	resolver assets.Resolver
	pages    *pages
	viewOpts weather.ViewOptions
}

// RegisterRoutes wires the HTTP handlers into the Fiber app under the
// configured base path.
func RegisterRoutes(app *fiber.App, deps Deps) error {
	resolver := deps.Config.Resolver()
	p, err := newPages(resolver)
	if err != nil {
		return err
	}

	r := &routes{
		deps:     deps,
		resolver: resolver,
		pages:    p,
		viewOpts: weather.ViewOptions{
			Location:        deps.Config.LocationName,
			Units:           deps.Config.Units,
			IconURLTemplate: deps.Config.IconURLTemplate,
		},
	}

	site := app.Group(deps.Config.BasePath)

	site.Get("/", r.index)
	site.Get("/health", r.health)
	site.Get("/weather", r.weatherPage)
	site.Post("/weather/refresh", r.refresh)

	v1 := site.Group("/api/v1")
	v1.Get("/weather/current", r.current)
	v1.Get("/weather/history", r.history)

	return nil
}

func (r *routes) index(c *fiber.Ctx) error {
	return r.pages.render(c, "index.html", fiber.Map{
		"Title":    "weather-page",
		"Location": r.deps.Config.LocationName,
		"BasePath": r.deps.Config.BasePath,
	})
}

func (r *routes) weatherPage(c *fiber.Ctx) error {
	view := weather.NewView(r.deps.Weather.State(), r.viewOpts)
	return r.pages.render(c, "weather.html", fiber.Map{
		"Title": "Weather - " + view.Location,
		"View":  view,
	})
}

func (r *routes) refresh(c *fiber.Ctx) error {
	r.deps.Weather.Refetch()
	return c.Redirect(r.resolver.Path("/weather"), fiber.StatusSeeOther)
}

func (r *routes) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "weather-page",
		"weather": r.deps.Weather.State().Status(),
	})
}

// currentResponse mirrors the page: an error hides every data field.
type currentResponse struct {
	Status      fetchstate.Status `json:"status"`
	Loading     bool              `json:"loading"`
	Error       string            `json:"error,omitempty"`
	Location    string            `json:"location"`
	Temperature *float64          `json:"temperature,omitempty"`
	Units       string            `json:"units"`
	Description string            `json:"description,omitempty"`
	Icon        string            `json:"icon,omitempty"`
	IconURL     string            `json:"iconUrl,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func (r *routes) current(c *fiber.Ctx) error {
	st := r.deps.Weather.State()
	view := weather.NewView(st, r.viewOpts)

	resp := currentResponse{
		Status:    st.Status(),
		Loading:   st.Loading,
		Error:     st.Error,
		Location:  r.deps.Config.LocationName,
		Units:     r.deps.Config.Units,
		UpdatedAt: st.UpdatedAt,
	}
	if view.ShowData() {
		if t, ok := st.Data.Temperature(); ok {
			resp.Temperature = &t
		}
		resp.Description, _ = st.Data.Description()
		resp.Icon, _ = st.Data.Icon()
		resp.IconURL = view.IconURL
	}
	return c.JSON(resp)
}

func (r *routes) history(c *fiber.Ctx) error {
	var req historyQuery
	if err := req.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	readings, err := r.deps.History.Range(req.From, req.To)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
	}

	return c.JSON(fiber.Map{
		"location": r.deps.Config.LocationName,
		"from":     req.From,
		"to":       req.To,
		"readings": readings,
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
