//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package main

import "golang.org/x/sys/unix"

// termios ioctl requests on bsd-derived systems.
const (
	getTermios = unix.TIOCGETA
	setTermios = unix.TIOCSETA
)
