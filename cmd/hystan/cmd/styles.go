package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/makoty26/HysteresisAnalyzer/src/types"
)

var (
	primary = lipgloss.Color("#4682B4")
	muted   = lipgloss.Color("#6B7280")
	warning = lipgloss.Color("#FF8C00")
	danger  = lipgloss.Color("#EF4444")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primary)

	labelStyle = lipgloss.NewStyle().
			Foreground(muted).
			Width(12)

	warnStyle = lipgloss.NewStyle().
			Foreground(warning)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(danger)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true)
)

// field prints one "label value" line.
func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(label), value)
}

// formatIDs compresses sorted identifiers into ranges, e.g. "4, 6-7, 9".
func formatIDs(ids []types.ElmNo) string {
	if len(ids) == 0 {
		return "none"
	}
	var parts []string
	for i := 0; i < len(ids); {
		j := i
		for j+1 < len(ids) && ids[j+1] == ids[j]+1 {
			j++
		}
		if j == i {
			parts = append(parts, fmt.Sprintf("%d", ids[i]))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", ids[i], ids[j]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
