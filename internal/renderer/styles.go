package renderer

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/GovCraft/ntangler/internal/model"
)

// styles holds the lipgloss styles used to paint one row of the
// pipeline view. Colors are inert (no-op) when the Renderer decides
// not to style output, so callers never need to branch on that here.
type styles struct {
	repo     lipgloss.Style
	oid      lipgloss.Style
	file     lipgloss.Style
	header   lipgloss.Style
	pending  lipgloss.Style
	majorSem lipgloss.Style
	minorSem lipgloss.Style
	patchSem lipgloss.Style
	noneSem  lipgloss.Style
	title    lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		repo:     lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true),
		oid:      lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		file:     lipgloss.NewStyle().Foreground(lipgloss.Color("#cdd6f4")),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		pending:  lipgloss.NewStyle().Foreground(lipgloss.Color("#9399b2")).Italic(true),
		majorSem: lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true),
		minorSem: lipgloss.NewStyle().Foreground(lipgloss.Color("#89dceb")),
		patchSem: lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		noneSem:  lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086")),
		title:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f5c2e7")).Bold(true).Underline(true),
	}
}

// plainStyles renders with no ANSI codes at all, for non-TTY output.
func plainStyles() styles {
	plain := lipgloss.NewStyle()
	return styles{
		repo: plain, oid: plain, file: plain, header: plain,
		pending: plain, majorSem: plain, minorSem: plain, patchSem: plain,
		noneSem: plain, title: plain,
	}
}

func (s styles) semver(impact model.SemverImpact) lipgloss.Style {
	switch impact {
	case model.Major:
		return s.majorSem
	case model.Minor:
		return s.minorSem
	case model.Patch:
		return s.patchSem
	default:
		return s.noneSem
	}
}
