package ui

import (
	"image/color"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
)

// Theme defines the colors used across the grid UI.
type Theme struct {
	HeaderFG   color.Color // Column titles
	SelectedFG color.Color // Cursor row foreground
	SelectedBG color.Color // Cursor row background
	AccentFG   color.Color // Active column, page, focused input
	MutedFG    color.Color // Hints and placeholders
	ErrorFG    color.Color // Error status text
	SuccessFG  color.Color // Success status text
	DraftBG    color.Color // Inline add row
}

// ThemePresets are the built-in themes by name.
var ThemePresets = map[string]Theme{
	"dark": {
		HeaderFG:   lipgloss.Color("#7AA2F7"),
		SelectedFG: lipgloss.Color("#1A1B26"),
		SelectedBG: lipgloss.Color("#7AA2F7"),
		AccentFG:   lipgloss.Color("#E0AF68"),
		MutedFG:    lipgloss.Color("#565F89"),
		ErrorFG:    lipgloss.Color("#F7768E"),
		SuccessFG:  lipgloss.Color("#9ECE6A"),
		DraftBG:    lipgloss.Color("#24283B"),
	},
	"light": {
		HeaderFG:   lipgloss.Color("#2E7DE9"),
		SelectedFG: lipgloss.Color("#E1E2E7"),
		SelectedBG: lipgloss.Color("#2E7DE9"),
		AccentFG:   lipgloss.Color("#8C6C3E"),
		MutedFG:    lipgloss.Color("#848CB5"),
		ErrorFG:    lipgloss.Color("#F52A65"),
		SuccessFG:  lipgloss.Color("#587539"),
		DraftBG:    lipgloss.Color("#D0D5E3"),
	},
}

// ThemeNames lists the presets in sorted order.
func ThemeNames() []string {
	names := make([]string, 0, len(ThemePresets))
	for n := range ThemePresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ThemeByName returns the named preset, falling back to dark.
func ThemeByName(name string) Theme {
	if th, ok := ThemePresets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return th
	}
	return ThemePresets["dark"]
}

type styles struct {
	title   lipgloss.Style
	label   lipgloss.Style
	accent  lipgloss.Style
	muted   lipgloss.Style
	err     lipgloss.Style
	success lipgloss.Style
	draft   lipgloss.Style
	current lipgloss.Style
}

func newStyles(th Theme, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			title: plain, label: plain, accent: plain, muted: plain,
			err: plain, success: plain, draft: plain, current: plain,
		}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(th.HeaderFG),
		label:   lipgloss.NewStyle().Foreground(th.HeaderFG),
		accent:  lipgloss.NewStyle().Foreground(th.AccentFG),
		muted:   lipgloss.NewStyle().Foreground(th.MutedFG),
		err:     lipgloss.NewStyle().Foreground(th.ErrorFG),
		success: lipgloss.NewStyle().Foreground(th.SuccessFG),
		draft:   lipgloss.NewStyle().Background(th.DraftBG),
		current: lipgloss.NewStyle().Bold(true).Foreground(th.AccentFG),
	}
}
