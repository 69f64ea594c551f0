// Package ui holds the terminal styling used by the CLI.
package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI styles. They are emptied by Disable.
var (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// Disable turns every style into the empty string.
func Disable() {
	ColorReset, ColorBold, ColorDim = "", "", ""
	ColorCyan, ColorGreen, ColorYellow, ColorWhite, ColorRed = "", "", "", "", ""
}

// AutoDisable drops styling when NO_COLOR is set or f is not a terminal.
func AutoDisable(f *os.File) {
	if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		Disable()
	}
}

func Bold(s string) string {
	return ColorBold + s + ColorReset
}

func Success(s string) string {
	return ColorGreen + s + ColorReset
}

func Info(s string) string {
	return ColorDim + ColorYellow + s + ColorReset
}

func Error(s string) string {
	return ColorRed + s + ColorReset
}

// Status colors a unit outcome: green for success, yellow for cancelled and
// red otherwise.
func Status(s string) string {
	switch s {
	case "success":
		return Success(s)
	case "cancelled":
		return ColorYellow + s + ColorReset
	default:
		return Error(s)
	}
}
