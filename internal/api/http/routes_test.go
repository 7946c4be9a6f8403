package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-page/internal/config"
	"github.com/i474232898/weather-page/internal/fetchstate"
	"github.com/i474232898/weather-page/internal/store"
	"github.com/i474232898/weather-page/internal/weather"
)

type stubSource struct {
	st        fetchstate.State[weather.Payload]
	refetches atomic.Int32
}

func (s *stubSource) State() fetchstate.State[weather.Payload] { return s.st }
func (s *stubSource) Refetch()                                 { s.refetches.Add(1) }

func testConfig(basePath, upstream string) config.Config {
	return config.Config{
		BasePath:           basePath,
		OpenWeatherBaseURL: upstream,
		OpenWeatherAPIKey:  "test-key",
		Latitude:           24.7135517,
		Longitude:          46.6752957,
		Units:              "metric",
		LocationName:       "Riyadh, Saudi Arabia",
		IconURLTemplate:    "https://openweathermap.org/img/wn/{icon}@2x.png",
		HTTPTimeout:        5 * time.Second,
		UpstreamRPS:        1000,
		UpstreamBurst:      10,
	}
}

// mountAgainst serves body with status from a fake provider and returns the
// settled page hook.
func mountAgainst(t *testing.T, cfg config.Config, status int, body string) *fetchstate.Hook[weather.Payload] {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg.OpenWeatherBaseURL = srv.URL
	client := weather.NewClient(cfg, srv.Client())
	h := fetchstate.Mount[weather.Payload]("/weather", client, fetchstate.Options[weather.Payload]{})
	t.Cleanup(h.Unmount)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return h
}

func get(t *testing.T, deps Deps, target string) (*http.Response, string) {
	t.Helper()
	app, err := NewApp(deps)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestWeatherPageShowsData(t *testing.T) {
	cfg := testConfig("", "")
	h := mountAgainst(t, cfg, http.StatusOK, `{"main":{"temp":30},"weather":[{"description":"sunny","icon":"01d"}]}`)

	resp, body := get(t, Deps{Config: cfg, Weather: h, History: store.NewMemoryStore(0, 0)}, "/weather")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("unexpected Content-Type %q", ct)
	}
	for _, want := range []string{"Riyadh, Saudi Arabia", "Temperature:", "30 °C", "Condition:", "sunny", "https://openweathermap.org/img/wn/01d@2x.png"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "Error:") {
		t.Error("unexpected error line")
	}
}

func TestWeatherPageShowsErrorWithoutStaleData(t *testing.T) {
	cfg := testConfig("", "")
	h := mountAgainst(t, cfg, http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key."}`)

	_, body := get(t, Deps{Config: cfg, Weather: h, History: store.NewMemoryStore(0, 0)}, "/weather")

	if !strings.Contains(body, "Error: "+fetchstate.GenericErrorMessage) {
		t.Errorf("page missing error line: %s", body)
	}
	for _, unwanted := range []string{"Invalid API key", "Temperature:", "Condition:", "°C"} {
		if strings.Contains(body, unwanted) {
			t.Errorf("error page contains %q", unwanted)
		}
	}
}

func TestWeatherPageErrorHidesRetainedData(t *testing.T) {
	temp := 30.0
	desc := "sunny"
	src := &stubSource{st: fetchstate.State[weather.Payload]{
		Error: fetchstate.GenericErrorMessage,
		Data:  &weather.Payload{Main: &weather.Main{Temp: &temp}, Weather: []weather.Condition{{Description: &desc}}},
	}}

	_, body := get(t, Deps{Config: testConfig("", ""), Weather: src, History: store.NewMemoryStore(0, 0)}, "/weather")
	if strings.Contains(body, "sunny") || strings.Contains(body, "30 °C") {
		t.Errorf("stale data rendered alongside error: %s", body)
	}
}

func TestWeatherPageMissingFields(t *testing.T) {
	cfg := testConfig("", "")
	h := mountAgainst(t, cfg, http.StatusOK, `{"name":"Riyadh"}`)

	resp, body := get(t, Deps{Config: cfg, Weather: h, History: store.NewMemoryStore(0, 0)}, "/weather")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if strings.Count(body, weather.PlaceholderMissing) != 2 {
		t.Errorf("expected two placeholders: %s", body)
	}
	if strings.Contains(body, "<img src=\"https://openweathermap.org") {
		t.Error("icon rendered without icon code")
	}
}

func TestWeatherPageLoading(t *testing.T) {
	src := &stubSource{st: fetchstate.State[weather.Payload]{Loading: true}}

	_, body := get(t, Deps{Config: testConfig("", ""), Weather: src, History: store.NewMemoryStore(0, 0)}, "/weather")
	if strings.Count(body, weather.PlaceholderLoading) != 2 {
		t.Errorf("expected a loading placeholder per field: %s", body)
	}
	if !strings.Contains(body, `http-equiv="refresh"`) {
		t.Error("expected auto refresh while loading")
	}
}

func TestBasePathRouting(t *testing.T) {
	src := &stubSource{}
	deps := Deps{Config: testConfig("/wx", ""), Weather: src, History: store.NewMemoryStore(0, 0)}

	resp, body := get(t, deps, "/wx/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	for _, want := range []string{`src="/wx/static/logo.svg"`, `href="/wx/weather"`, `href="/wx/static/site.css"`} {
		if !strings.Contains(body, want) {
			t.Errorf("home page missing %s", want)
		}
	}

	resp, _ = get(t, deps, "/weather")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected route outside base path to 404, got %d", resp.StatusCode)
	}

	resp, body = get(t, deps, "/wx/static/logo.svg")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected static asset, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "<svg") {
		t.Errorf("unexpected asset body %q", body)
	}

	resp, _ = get(t, deps, "/static/logo.svg")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected unprefixed asset to 404, got %d", resp.StatusCode)
	}
}

func TestRefreshRedirectsUnderBasePath(t *testing.T) {
	src := &stubSource{}
	app, err := NewApp(Deps{Config: testConfig("/wx", ""), Weather: src, History: store.NewMemoryStore(0, 0)})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/wx/weather/refresh", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/wx/weather" {
		t.Errorf("unexpected Location %q", loc)
	}
	if src.refetches.Load() != 1 {
		t.Errorf("expected one refetch, got %d", src.refetches.Load())
	}
}

func TestCurrentJSON(t *testing.T) {
	cfg := testConfig("", "")
	h := mountAgainst(t, cfg, http.StatusOK, `{"main":{"temp":30},"weather":[{"description":"sunny","icon":"01d"}]}`)

	resp, body := get(t, Deps{Config: cfg, Weather: h, History: store.NewMemoryStore(0, 0)}, "/api/v1/weather/current")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	var got currentResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != fetchstate.StatusSuccess || got.Temperature == nil || *got.Temperature != 30 || got.Description != "sunny" || got.Icon != "01d" {
		t.Errorf("unexpected response %+v", got)
	}
}

func TestCurrentJSONError(t *testing.T) {
	cfg := testConfig("", "")
	h := mountAgainst(t, cfg, http.StatusInternalServerError, `{"message":"upstream exploded"}`)

	_, body := get(t, Deps{Config: cfg, Weather: h, History: store.NewMemoryStore(0, 0)}, "/api/v1/weather/current")
	if strings.Contains(body, "upstream exploded") {
		t.Errorf("provider diagnostic leaked: %s", body)
	}

	var got currentResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != fetchstate.StatusError || got.Error != fetchstate.GenericErrorMessage || got.Temperature != nil {
		t.Errorf("unexpected response %+v", got)
	}
}

func TestHistoryValidation(t *testing.T) {
	deps := Deps{Config: testConfig("", ""), Weather: &stubSource{}, History: store.NewMemoryStore(0, 0)}

	for _, target := range []string{
		"/api/v1/weather/history",
		"/api/v1/weather/history?from=yesterday&to=today",
		"/api/v1/weather/history?from=1700003600&to=1700000000",
	} {
		resp, _ := get(t, deps, target)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", target, http.StatusBadRequest, resp.StatusCode)
		}
	}

	resp, _ := get(t, deps, "/api/v1/weather/history?from=1700000000&to=1700003600")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status %d for empty history, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHistoryReturnsReadings(t *testing.T) {
	hist := store.NewMemoryStore(0, 0)
	hist.Save(weather.Reading{Timestamp: time.Unix(1700001000, 0).UTC(), Units: "metric", Description: "sunny"})
	deps := Deps{Config: testConfig("", ""), Weather: &stubSource{}, History: hist}

	resp, body := get(t, deps, "/api/v1/weather/history?from=2023-11-14T22:00:00Z&to=1700003600")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}
	if !strings.Contains(body, `"description":"sunny"`) {
		t.Errorf("unexpected body %s", body)
	}
}

func TestHealth(t *testing.T) {
	deps := Deps{Config: testConfig("/wx", ""), Weather: &stubSource{}, History: store.NewMemoryStore(0, 0)}

	resp, body := get(t, deps, "/wx/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	if !strings.Contains(body, `"status":"ok"`) || !strings.Contains(body, `"weather":"idle"`) {
		t.Errorf("unexpected body %s", body)
	}
}
