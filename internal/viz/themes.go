package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the color scheme of the live view.
type Theme struct {
	Name    string
	Points  lipgloss.Color
	Tree    lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
}

var (
	ThemeNebula = Theme{
		Name:    "nebula",
		Points:  lipgloss.Color("#e0d8ff"),
		Tree:    lipgloss.Color("#5a3f8c"),
		Accent:  lipgloss.Color("#ff6ad5"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#7a7a99"),
		Warning: lipgloss.Color("#ffaa00"),
	}

	ThemePhosphor = Theme{
		Name:    "phosphor",
		Points:  lipgloss.Color("#33ff66"),
		Tree:    lipgloss.Color("#0f5f2a"),
		Accent:  lipgloss.Color("#aaffaa"),
		Text:    lipgloss.Color("#33ff66"),
		Muted:   lipgloss.Color("#1f7a3a"),
		Warning: lipgloss.Color("#ffff00"),
	}

	ThemeMono = Theme{
		Name:    "mono",
		Points:  lipgloss.Color("#ffffff"),
		Tree:    lipgloss.Color("#555555"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Warning: lipgloss.Color("#ffaa00"),
	}

	Themes = []Theme{ThemeNebula, ThemePhosphor, ThemeMono}
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

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
