package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// ASCIILogo is printed by the root command
const ASCIILogo = `
  ╔════════════════════════════════════════════════════════╗
  ║ ████████╗██╗    ██╗███████╗███████╗████████╗            ║
  ║ ╚══██╔══╝██║    ██║██╔════╝██╔════╝╚══██╔══╝            ║
  ║    ██║   ██║ █╗ ██║█████╗  █████╗     ██║   UTIL        ║
  ║    ██║   ██║███╗██║██╔══╝  ██╔══╝     ██║               ║
  ║    ██║   ╚███╔███╔╝███████╗███████╗   ██║               ║
  ║    ╚═╝    ╚══╝╚══╝ ╚══════╝╚══════╝   ╚═╝               ║
  ║          POST • SEARCH • TIMELINE • ARCHIVE             ║
  ╚════════════════════════════════════════════════════════╝
`

// Out is where every printer writes
var Out io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize(lipgloss.NewStyle().Foreground(lipgloss.Color("6")))
	Yellow  = colorize(lipgloss.NewStyle().Foreground(lipgloss.Color("3")))
	Red     = colorize(lipgloss.NewStyle().Foreground(lipgloss.Color("1")))
	Green   = colorize(lipgloss.NewStyle().Foreground(lipgloss.Color("2")))
	Magenta = colorize(lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true))
	Dim     = colorize(lipgloss.NewStyle().Faint(true))
)

// colorize returns a function that renders text with style. Colors are
// dropped when stdout is not a terminal.
func colorize(style lipgloss.Style) func(string) string {
	return func(text string) string {
		return style.Render(text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Out, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}
