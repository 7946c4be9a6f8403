package weather

import (
	"time"
)

// Payload is the subset of the OpenWeatherMap current-weather response the
// page consumes. Every field may be absent.
type Payload struct {
	Name    *string     `json:"name,omitempty"`
	Dt      *int64      `json:"dt,omitempty"`
	Main    *Main       `json:"main,omitempty"`
	Weather []Condition `json:"weather,omitempty"`
}

type Main struct {
	Temp *float64 `json:"temp,omitempty"`
}

// Condition is one entry of the provider's "weather" list.
type Condition struct {
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// Temperature returns main.temp when present.
func (p *Payload) Temperature() (float64, bool) {
	if p == nil || p.Main == nil || p.Main.Temp == nil {
		return 0, false
	}
	return *p.Main.Temp, true
}

// Description returns weather[0].description when present.
func (p *Payload) Description() (string, bool) {
	c := p.primary()
	if c == nil || c.Description == nil {
		return "", false
	}
	return *c.Description, true
}

// Icon returns weather[0].icon when present and non-empty.
func (p *Payload) Icon() (string, bool) {
	c := p.primary()
	if c == nil || c.Icon == nil || *c.Icon == "" {
		return "", false
	}
	return *c.Icon, true
}

func (p *Payload) primary() *Condition {
	if p == nil || len(p.Weather) == 0 {
		return nil
	}
	return &p.Weather[0]
}

// ObservedAt returns the provider timestamp, or fallback when dt is missing.
func (p *Payload) ObservedAt(fallback time.Time) time.Time {
	if p == nil || p.Dt == nil || *p.Dt == 0 {
		return fallback
	}
	return time.Unix(*p.Dt, 0).UTC()
}

// Reading is a flattened successful observation kept in history.
type Reading struct {
	Timestamp   time.Time `json:"timestamp"` // always UTC
	Temperature *float64  `json:"temperature,omitempty"`
	Units       string    `json:"units"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
}

// NewReading flattens p. receivedAt is used when the payload carries no dt.
func NewReading(p Payload, units string, receivedAt time.Time) Reading {
	r := Reading{
		Timestamp: p.ObservedAt(receivedAt.UTC()),
		Units:     units,
	}
	if t, ok := p.Temperature(); ok {
		r.Temperature = &t
	}
	r.Description, _ = p.Description()
	r.Icon, _ = p.Icon()
	return r
}
