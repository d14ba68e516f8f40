//go:build windows

package main

import (
	"os"

	"golang.org/x/term"
)

// prepareTerminal reports whether f is an interactive console. echo flags are left alone.
func prepareTerminal(f *os.File) (tty bool, restore func()) {
	return term.IsTerminal(int(f.Fd())), func() {}
}
