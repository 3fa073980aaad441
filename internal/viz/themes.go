package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the TUI color scheme. With ParticleColors set the cloud is
// drawn in each particle's own color; otherwise in Primary.
type Theme struct {
	Name           string
	Primary        lipgloss.Color
	Secondary      lipgloss.Color
	Accent         lipgloss.Color
	Text           lipgloss.Color
	Muted          lipgloss.Color
	Tree           lipgloss.Color
	ParticleColors bool
}

var (
	ThemeNebula = Theme{
		Name:           "nebula",
		Primary:        lipgloss.Color("#ff00ff"),
		Secondary:      lipgloss.Color("#00ffff"),
		Accent:         lipgloss.Color("#ffff00"),
		Text:           lipgloss.Color("#ffffff"),
		Muted:          lipgloss.Color("#666666"),
		Tree:           lipgloss.Color("#333355"),
		ParticleColors: true,
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"), // Green phosphor
		Secondary: lipgloss.Color("#00cc00"),
		Accent:    lipgloss.Color("#88ff88"),
		Text:      lipgloss.Color("#00ff00"),
		Muted:     lipgloss.Color("#005500"),
		Tree:      lipgloss.Color("#004400"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#cccccc"),
		Accent:    lipgloss.Color("#0088ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#888888"),
		Tree:      lipgloss.Color("#444444"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#00a8cc"),
		Secondary: lipgloss.Color("#0077be"),
		Accent:    lipgloss.Color("#ffd700"),
		Text:      lipgloss.Color("#e0f0ff"),
		Muted:     lipgloss.Color("#4488aa"),
		Tree:      lipgloss.Color("#003355"),
	}

	ThemeSunset = Theme{
		Name:           "sunset",
		Primary:        lipgloss.Color("#ff6b6b"), // Coral
		Secondary:      lipgloss.Color("#feca57"),
		Accent:         lipgloss.Color("#ff9ff3"),
		Text:           lipgloss.Color("#fff5f5"),
		Muted:          lipgloss.Color("#8b6b8c"),
		Tree:           lipgloss.Color("#4d2b4e"),
		ParticleColors: true,
	}

	Themes = []Theme{
		ThemeNebula,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to the first one.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the theme after name, wrapping around.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

// ThemeNames returns list of available theme names
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
