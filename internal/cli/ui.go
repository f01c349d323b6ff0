package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/transitmap/pkg/errors"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorAccent = lipgloss.Color("36")  // teal
	colorOK     = lipgloss.Color("35")  // green
	colorWarn   = lipgloss.Color("220") // amber
	colorFail   = lipgloss.Color("167") // soft red
	colorCmd    = lipgloss.Color("75")  // light blue
	colorValue  = lipgloss.Color("255") // bright white
	colorLabel  = lipgloss.Color("245") // gray
	colorMuted  = lipgloss.Color("240") // dim gray
)

var (
	styleHighlight = lipgloss.NewStyle().Foreground(colorAccent) // layer ids
	styleMuted     = lipgloss.NewStyle().Foreground(colorMuted)
	styleValue     = lipgloss.NewStyle().Foreground(colorValue)
	styleLabel     = lipgloss.NewStyle().Foreground(colorLabel).Width(12)
	styleWarn      = lipgloss.NewStyle().Foreground(colorWarn)
	styleCommand   = lipgloss.NewStyle().Foreground(colorCmd)
	styleSpinner   = lipgloss.NewStyle().Foreground(colorAccent)

	markOK   = lipgloss.NewStyle().Foreground(colorOK).Render("✓")
	markFail = lipgloss.NewStyle().Foreground(colorFail).Render("✗")
	markWarn = styleWarn.Render("!")
	markInfo = lipgloss.NewStyle().Foreground(colorLabel).Render("›")
)

const arrow = "→"

// =============================================================================
// Status Lines
// =============================================================================

// statusOut receives status lines. Commands that stream an artifact to
// stdout switch it to stderr.
var statusOut io.Writer = os.Stdout

func status(mark, msg string) { fmt.Fprintln(statusOut, mark+" "+msg) }

func printSuccess(format string, args ...any) { status(markOK, fmt.Sprintf(format, args...)) }

func printError(format string, args ...any) { status(markFail, fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	status(markWarn, styleWarn.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) { status(markInfo, fmt.Sprintf(format, args...)) }

// printDetail prints an indented, muted line under the previous status.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+styleMuted.Render(fmt.Sprintf(format, args...)))
}

// printFile lists a written artifact.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+styleMuted.Render(arrow)+" "+styleValue.Render(path))
}

// printKeyValue prints one row of a report.
func printKeyValue(key, value string) {
	fmt.Fprintln(statusOut, styleLabel.Render(key)+" "+styleValue.Render(value))
}

// printStored confirms that a network was saved as a layer.
func printStored(id string, segments, stations int) {
	printSuccess("Stored layer %s", styleHighlight.Render(id))
	printDetail("%d segments, %d stations", segments, stations)
}

// printStats summarizes a schematic on one line, for example
//
//	12 segments · 40 stations · crossings 9 → 2 · fresh
func printStats(st pipeline.Stats, cached bool) {
	parts := []string{
		fmt.Sprintf("%d segments", st.Segments),
		fmt.Sprintf("%d stations", st.Stations),
		fmt.Sprintf("crossings %d %s %d", st.CrossingsBefore, arrow, st.CrossingsAfter),
	}
	if st.OverlapsAfter > 0 {
		parts = append(parts, fmt.Sprintf("%d overlaps", st.OverlapsAfter))
	}
	if st.Grid.Frozen > 0 {
		parts = append(parts, fmt.Sprintf("%d frozen", st.Grid.Frozen))
	}
	for i, p := range parts {
		parts[i] = styleMuted.Render(p)
	}
	if cached {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorOK).Render("cached"))
	} else {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorLabel).Render("fresh"))
	}
	fmt.Fprintln(statusOut, "  "+strings.Join(parts, styleMuted.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, styleMuted.Render(description+":")+" "+styleCommand.Render(cmd))
}

// PrintError prints err with its error code, if any, to stderr.
func PrintError(err error) {
	msg := errors.UserMessage(err)
	if code := errors.GetCode(err); code != "" {
		msg = styleMuted.Render(string(code)) + " " + msg
	}
	fmt.Fprintln(os.Stderr, markFail+" "+msg)
}
