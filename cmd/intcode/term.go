// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

//go:build linux || darwin

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

var termRestore *unix.Termios

// Puts stdin into raw mode. Reads return after at most a tenth of a second
// so keyboard input can fall back to an idle value.
func enterRawTerm() error {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), ioctlGetTermios)

	if err != nil {
		return err
	}

	restore := *termios
	termRestore = &restore
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 0
	termstate.Cc[unix.VTIME] = 1

	return unix.IoctlSetTermios(
		int(os.Stdin.Fd()), ioctlSetTermios, &termstate,
	)
}

func exitRawTerm() {
	if termRestore == nil {
		return
	}

	if err := unix.IoctlSetTermios(
		int(os.Stdin.Fd()), ioctlSetTermios, termRestore,
	); err != nil {
		panic(err)
	}

	termRestore = nil
}
