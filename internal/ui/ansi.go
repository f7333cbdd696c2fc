package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	strike = "\033[9m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

var (
	forceColor   bool
	disableColor bool

	// Out and Err are where status lines and panels go.
	Out io.Writer = os.Stdout
	Err io.Writer = os.Stderr
)

// SetColorForcing overrides TTY detection. disable wins over force.
func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable
}

// IsTTY reports whether f is an interactive terminal.
func IsTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func colorOn() bool {
	if disableColor {
		return false
	}
	if forceColor {
		return true
	}
	f, ok := Out.(*os.File)
	return ok && IsTTY(f)
}

// C wraps s in color when color output is on.
func C(color, s string) string {
	if color == "" || !colorOn() {
		return s
	}
	return color + s + reset
}

// Dim renders s faint.
func Dim(s string) string { return C(dim, s) }

// OK prints a success line to Out.
func OK(msg string) { fmt.Fprintln(Out, C(fgGreen, symCheck+" "+msg)) }

// Fail prints an error line to Err.
func Fail(msg string) { fmt.Fprintln(Err, C(fgRed, symCross+" "+msg)) }

// Hint prints a muted follow-up line to Err.
func Hint(msg string) { fmt.Fprintln(Err, C(fgGray, msg)) }
