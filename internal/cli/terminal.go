package cli

import (
	"fmt"
	"strings"

	"github.com/bastiangx/linkserve/internal/utils"
	"github.com/bastiangx/linkserve/pkg/lookup"
	"github.com/charmbracelet/lipgloss"
)

var (
	idStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#286983", Dark: "#9ccfd8"})
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// formatCandidate renders one candidate as a single line with its main scores.
func formatCandidate(rank int, c lookup.Candidate) string {
	return fmt.Sprintf("%2d. %s %-40s ed=%.2f jac=%.2f pop=%.3f pos=%.3f %s",
		rank,
		idStyle.Render(fmt.Sprintf("%-10s", c.ID)),
		nameStyle.Render(utils.Truncate(c.Name, 40)),
		c.EditDistance,
		c.JaccardScore,
		c.Popularity,
		c.PosScore,
		dimStyle.Render(formatTypes(c.Types)),
	)
}

// formatTypes lists type labels, falling back to the id when a type has no label.
func formatTypes(types []lookup.TypeRef) string {
	if len(types) == 0 {
		return ""
	}
	parts := make([]string, 0, len(types))
	for _, t := range types {
		if t.Name != nil {
			parts = append(parts, *t.Name)
			continue
		}
		parts = append(parts, t.ID)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
