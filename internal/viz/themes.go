package viz

import "github.com/charmbracelet/lipgloss"

// Theme is the viewer's color scheme.
type Theme struct {
	Name   string
	Arm    lipgloss.Color
	Header lipgloss.Color
	Select lipgloss.Color
	Text   lipgloss.Color
	Muted  lipgloss.Color
	Good   lipgloss.Color
	Warn   lipgloss.Color
	Bad    lipgloss.Color
}

var Themes = []Theme{
	{
		Name:   "phosphor",
		Arm:    lipgloss.Color("#33ff66"),
		Header: lipgloss.Color("86"),
		Select: lipgloss.Color("213"),
		Text:   lipgloss.Color("252"),
		Muted:  lipgloss.Color("242"),
		Good:   lipgloss.Color("82"),
		Warn:   lipgloss.Color("220"),
		Bad:    lipgloss.Color("196"),
	},
	{
		Name:   "blueprint",
		Arm:    lipgloss.Color("#66ccff"),
		Header: lipgloss.Color("#e0f0ff"),
		Select: lipgloss.Color("#ffd700"),
		Text:   lipgloss.Color("#e0f0ff"),
		Muted:  lipgloss.Color("#4488aa"),
		Good:   lipgloss.Color("#00ff88"),
		Warn:   lipgloss.Color("#ffcc00"),
		Bad:    lipgloss.Color("#ff4444"),
	},
	{
		Name:   "amber",
		Arm:    lipgloss.Color("#ffb000"),
		Header: lipgloss.Color("#ffcc66"),
		Select: lipgloss.Color("#ffffff"),
		Text:   lipgloss.Color("#ffd9a0"),
		Muted:  lipgloss.Color("#886633"),
		Good:   lipgloss.Color("#ffcc66"),
		Warn:   lipgloss.Color("#ff8800"),
		Bad:    lipgloss.Color("#ff3300"),
	},
	{
		Name:   "mono",
		Arm:    lipgloss.Color("#ffffff"),
		Header: lipgloss.Color("#ffffff"),
		Select: lipgloss.Color("#0088ff"),
		Text:   lipgloss.Color("#cccccc"),
		Muted:  lipgloss.Color("#888888"),
		Good:   lipgloss.Color("#cccccc"),
		Warn:   lipgloss.Color("#ffaa00"),
		Bad:    lipgloss.Color("#ff0000"),
	},
}

// ThemeIndex returns the position of the named theme, or 0.
func ThemeIndex(name string) int {
	for i, t := range Themes {
		if t.Name == name {
			return i
		}
	}
	return 0
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
