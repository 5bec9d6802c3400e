package domain

import "fmt"

// Theme is the persisted visual theme name.
type Theme string

const (
	ThemeClassic    Theme = "classic"
	ThemeDragonBall Theme = "dragonball"
	ThemeMHA        Theme = "mha"
	ThemeShinChan   Theme = "shinchan"
)

// DefaultTheme applies when no theme has been saved.
const DefaultTheme = ThemeClassic

// Themes lists the selectable themes in switcher order.
var Themes = []Theme{ThemeClassic, ThemeDragonBall, ThemeMHA, ThemeShinChan}

// Palette is the colour set a theme contributes to the presentation layer.
// Colours are hex strings usable by lipgloss and by the web front-end.
type Palette struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Text      string `json:"text"`
	Border    string `json:"border"`
	Accent    string `json:"accent"`
	Font      string `json:"font"`
}

var palettes = map[Theme]Palette{
	ThemeClassic:    {Primary: "#4F46E5", Secondary: "#EEF2FF", Text: "#4F46E5", Border: "#E0E7FF", Accent: "indigo", Font: "Inter"},
	ThemeDragonBall: {Primary: "#F97316", Secondary: "#EFF6FF", Text: "#EA580C", Border: "#FDBA74", Accent: "orange", Font: "sans-serif"},
	ThemeMHA:        {Primary: "#DC2626", Secondary: "#E2E8F0", Text: "#DC2626", Border: "#1E3A8A", Accent: "red", Font: "Impact"},
	ThemeShinChan:   {Primary: "#FACC15", Secondary: "#ECFDF5", Text: "#A16207", Border: "#FEF08A", Accent: "yellow", Font: "cursive"},
}

// Palette returns the colours for t, falling back to the default theme.
func (t Theme) Palette() Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[DefaultTheme]
}

// Next returns the theme after t in switcher order, wrapping around.
func (t Theme) Next() Theme {
	for i, th := range Themes {
		if th == t {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return DefaultTheme
}

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	for _, th := range Themes {
		if string(th) == s {
			return th, nil
		}
	}
	return "", &ValidationError{Field: "theme", Message: fmt.Sprintf("unknown theme %q", s)}
}
