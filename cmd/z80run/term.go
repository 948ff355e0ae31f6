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

package main

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

var termRestore *unix.Termios

// enterRawTerm switches stdin to unbuffered, non-blocking reads without
// echo so the console device sees single key presses. Signals stay enabled
// so an interrupt still reaches the debugger. Nothing is changed when
// stdin is not a terminal.
func enterRawTerm() error {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil
	}

	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
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
	termstate.Cc[unix.VTIME] = 0

	return unix.IoctlSetTermios(fd, ioctlWriteTermios, &termstate)
}

func exitRawTerm() error {
	if termRestore == nil {
		return nil
	}

	return unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlWriteTermios, termRestore)
}
