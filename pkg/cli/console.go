package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))  // green
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
)

// PrintSuccess writes a green result line to stdout.
func PrintSuccess(text string) {
	fmt.Println(successStyle.Render("✓ " + text))
}

// PrintWarning writes a yellow warning line to stderr, keeping stdout clean
// for results.
func PrintWarning(text string) {
	fmt.Fprintln(os.Stderr, warningStyle.Render("! "+text))
}

// PrintError writes a red failure line to stderr.
func PrintError(text string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+text))
}
