package layout

import (
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// Palette colors the rendered graph. Lanes cycle through LaneColors.
type Palette struct {
	Name       string   `json:"name"`
	Background string   `json:"background"`
	Text       string   `json:"text"`
	MergeLine  string   `json:"mergeLine"`
	Current    string   `json:"current"`
	LaneColors []string `json:"laneColors"`
}

var (
	LightPalette = Palette{
		Name:       "light",
		Background: "#ffffff",
		Text:       "#24292f",
		MergeLine:  "#666666",
		Current:    "#0969da",
		LaneColors: []string{"#2da44e", "#bf8700", "#cf222e", "#8250df", "#1b7c83"},
	}
	DarkPalette = Palette{
		Name:       "dark",
		Background: "#0d1117",
		Text:       "#c9d1d9",
		MergeLine:  "#8b949e",
		Current:    "#58a6ff",
		LaneColors: []string{"#3fb950", "#d29922", "#f85149", "#a371f7", "#39c5cf"},
	}
	detectDarkMode = darkmode.IsDarkMode
)

// PaletteForPreference resolves a preference to a palette. Auto consults the
// desktop dark-mode setting, so resolve once at startup and reuse the result
// to keep layouts deterministic.
func PaletteForPreference(pref ThemePreference) Palette {
	switch pref {
	case ThemeDark:
		return DarkPalette
	case ThemeLight:
		return LightPalette
	default:
		if detectDarkMode != nil {
			dark, err := detectDarkMode()
			if err != nil {
				slog.Debug("detect dark-mode", slog.Any("error", err))
				return LightPalette
			}
			if dark {
				return DarkPalette
			}
		}
		return LightPalette
	}
}

func (p Palette) laneColor(i int) string {
	if len(p.LaneColors) == 0 {
		return p.Text
	}
	return p.LaneColors[i%len(p.LaneColors)]
}
