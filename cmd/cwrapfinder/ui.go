package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// colorEnabled reports whether stdout is an interactive terminal, mirroring
// the pack's `kraklabs/cie` CLI output layer: colored/progress-bar output
// degrades to plain text when piped or redirected.
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.Faint)
	goodColor   = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
)

func printHeader(s string) {
	if colorEnabled() {
		headerColor.Println(s)
		return
	}
	fmt.Println(s)
}

func printDim(s string) {
	if colorEnabled() {
		dimColor.Println(s)
		return
	}
	fmt.Println(s)
}

func printGood(s string) {
	if colorEnabled() {
		goodColor.Println(s)
		return
	}
	fmt.Println(s)
}

func printWarn(s string) {
	if colorEnabled() {
		warnColor.Println(s)
		return
	}
	fmt.Println(s)
}

// newProgressBar returns a terminal progress bar over total items, or nil
// when stdout is not interactive (a nil bar's methods are never called —
// callers always guard with a nil check).
func newProgressBar(total int, description string) *progressbar.ProgressBar {
	if total <= 0 || !colorEnabled() {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
