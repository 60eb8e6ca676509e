package chatui

import "github.com/charmbracelet/lipgloss"

// Theme defines the chat surface style tokens.
type Theme struct {
	Name string

	Background string
	Foreground string
	Muted      string
	Accent     string
	Border     string

	OwnMessage       string
	OtherMessage     string
	AssistantMessage string
	Separator        string

	Header       string
	Footer       string
	SelectedItem string
	UnreadBadge  string
	Card         string
}

// DefaultTheme is the baseline dark palette.
var DefaultTheme = Theme{
	Name:             "default",
	Background:       "234",
	Foreground:       "252",
	Muted:            "245",
	Accent:           "75",
	Border:           "240",
	OwnMessage:       "81",
	OtherMessage:     "147",
	AssistantMessage: "214",
	Separator:        "203",
	Header:           "111",
	Footer:           "110",
	SelectedItem:     "75",
	UnreadBadge:      "203",
	Card:             "109",
}

// HighContrastTheme maximizes foreground/background separation.
var HighContrastTheme = Theme{
	Name:             "high-contrast",
	Background:       "0",
	Foreground:       "15",
	Muted:            "7",
	Accent:           "14",
	Border:           "15",
	OwnMessage:       "10",
	OtherMessage:     "13",
	AssistantMessage: "11",
	Separator:        "9",
	Header:           "14",
	Footer:           "14",
	SelectedItem:     "14",
	UnreadBadge:      "9",
	Card:             "14",
}

// Themes lists available palettes by name.
var Themes = map[string]Theme{
	"default":       DefaultTheme,
	"high-contrast": HighContrastTheme,
}

// ThemeByName returns the named theme, falling back to the default.
func ThemeByName(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return DefaultTheme
}

func (t Theme) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted))
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent))
}

func (t Theme) ownStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.OwnMessage))
}

func (t Theme) otherStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.OtherMessage))
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.AssistantMessage)).Italic(true)
}

func (t Theme) separatorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Separator)).Bold(true)
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Header)).Bold(true)
}

func (t Theme) footerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Footer))
}

func (t Theme) selectedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.SelectedItem)).Bold(true)
}

func (t Theme) badgeStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(t.Background)).Background(lipgloss.Color(t.UnreadBadge)).Padding(0, 1)
}

func (t Theme) cardStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Card)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(t.Border)).
		Padding(0, 1)
}
