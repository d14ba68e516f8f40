//go:build !windows

package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// prepareTerminal reports whether f is an interactive terminal. for a terminal it also turns
// off ECHOCTL, so ^C does not smear the field prompt on interrupt; restore puts it back.
// piped input gets a no-op restore.
func prepareTerminal(f *os.File) (tty bool, restore func()) {
	noop := func() {}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return false, noop
	}

	tio, err := unix.IoctlGetTermios(fd, getTermios)
	if err != nil {
		return true, noop
	}
	saved := *tio
	tio.Lflag &^= unix.ECHOCTL
	if err := unix.IoctlSetTermios(fd, setTermios, tio); err != nil {
		return true, noop
	}
	return true, func() {
		_ = unix.IoctlSetTermios(fd, setTermios, &saved)
	}
}
