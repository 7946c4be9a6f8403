package weather

import (
	"strconv"
	"strings"

	"github.com/i474232898/weather-page/internal/fetchstate"
)

const (
	PlaceholderLoading = "Loading..."
	PlaceholderMissing = "N/A"
)

// View is what the weather page renders for one fetch state.
type View struct {
	Location string
	Loading  bool

	// Error is set alone; when it is non-empty nothing else is shown.
	Error string

	Temperature string
	Condition   string
	IconURL     string
	IconAlt     string
}

// ShowData reports whether the data block is rendered.
func (v View) ShowData() bool {
	return v.Error == ""
}

// ViewOptions carries the presentation settings taken from config.
type ViewOptions struct {
	Location        string
	Units           string
	IconURLTemplate string
}

// NewView maps a fetch state to page fields. Missing fields render as
// placeholders: "Loading..." while a fetch is active, "N/A" otherwise.
func NewView(st fetchstate.State[Payload], opts ViewOptions) View {
	v := View{Location: opts.Location, Loading: st.Loading}
	if st.Error != "" {
		v.Error = st.Error
		return v
	}

	placeholder := PlaceholderMissing
	if st.Loading {
		placeholder = PlaceholderLoading
	}
	v.Temperature = placeholder
	v.Condition = placeholder

	if t, ok := st.Data.Temperature(); ok {
		v.Temperature = FormatTemperature(t, opts.Units)
	}
	if d, ok := st.Data.Description(); ok {
		v.Condition = d
	}
	if icon, ok := st.Data.Icon(); ok && opts.IconURLTemplate != "" {
		v.IconURL = strings.ReplaceAll(opts.IconURLTemplate, "{icon}", icon)
		v.IconAlt = "Weather icon"
		if d, ok := st.Data.Description(); ok {
			v.IconAlt = d
		}
	}
	return v
}

// FormatTemperature renders t with the suffix of the unit system.
func FormatTemperature(t float64, units string) string {
	return strconv.FormatFloat(t, 'f', -1, 64) + " " + UnitSuffix(units)
}

func UnitSuffix(units string) string {
	switch units {
	case "imperial":
		return "°F"
	case "standard":
		return "K"
	default:
		return "°C"
	}
}
