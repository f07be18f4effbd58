package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/normalizr/pkg/errors"
	"github.com/matzehuels/normalizr/pkg/normalize"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary values
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(24)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// Status lines go to stderr so stdout stays clean for JSON output.
var uiOut io.Writer = os.Stderr

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(uiOut, styleIconWarning.Render(iconWarning)+" "+styleWarning.Render(msg))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+styleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+styleDim.Render(iconArrow)+" "+styleValue.Render(path))
}

func printTitle(title string) {
	fmt.Fprintln(uiOut, styleTitle.Render(title))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(uiOut, "  "+styleKey.Render(key)+" "+styleValue.Render(value))
}

// =============================================================================
// Run Summaries
// =============================================================================

// printStats prints run statistics on a single line.
func printStats(entities, schemas int, cached bool) {
	var parts []string
	if entities > 0 {
		parts = append(parts, fmt.Sprintf("%d entities", entities))
	}
	if schemas > 0 {
		parts = append(parts, fmt.Sprintf("%d schemas", schemas))
	}

	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += styleDim.Render(" · ")
		}
		line += styleDim.Render(part)
	}
	if len(parts) > 0 {
		line += styleDim.Render(" · ")
	}
	fmt.Fprintln(uiOut, line+statusStyle.Render(status))
}

// printPartitions prints the record count of every store partition.
func printPartitions(store normalize.Store) {
	for _, p := range store.Partitions() {
		printKeyValue(p.Module+"."+p.Resource, styleNumber.Render(fmt.Sprint(p.Count)))
	}
}

// printUnresolved warns about every schema config the builder left
// unresolved.
func printUnresolved(configs []errors.Unresolved) {
	for _, u := range configs {
		printWarning("unresolved %s", u)
	}
}
