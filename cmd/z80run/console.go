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
	"bufio"
	"io"

	"github.com/lassandro/goz80/pkg/machine"
)

// console is a character device on two ports. Writes to the data port go
// to out. Reads from the data port return the next input byte, or 0 when
// none is waiting. The status port, one above the data port, reads 0x01
// while input is waiting. Only the low address byte is decoded.
type console struct {
	port    byte
	in      io.Reader
	out     *bufio.Writer
	pending []byte
}

func newConsole(port byte, in io.Reader, out io.Writer) *console {
	return &console{
		port: port,
		in:   in,
		out:  bufio.NewWriter(out),
	}
}

func (c *console) Attach(p *machine.Processor) func() {
	removeRead := p.OnAccess(c.read, machine.AfterPortRead)
	removeWrite := p.OnAccess(c.write, machine.AfterPortWrite)

	return func() {
		removeRead()
		removeWrite()
		c.out.Flush()
	}
}

// poll reads at most one byte. With stdin in raw mode the read returns
// straight away when nothing was typed.
func (c *console) poll() {
	if len(c.pending) > 0 {
		return
	}

	var buf [1]byte
	if n, _ := c.in.Read(buf[:]); n == 1 {
		c.pending = append(c.pending, buf[0])
	}
}

func (c *console) read(e *machine.AccessEvent) {
	switch byte(e.Address) {
	case c.port:
		c.poll()

		if len(c.pending) == 0 {
			e.Value = 0x00
			return
		}

		e.Value = c.pending[0]
		c.pending = c.pending[1:]

	case c.port + 1:
		c.poll()

		if len(c.pending) > 0 {
			e.Value = 0x01
		} else {
			e.Value = 0x00
		}
	}
}

func (c *console) write(e *machine.AccessEvent) {
	if byte(e.Address) != c.port || e.Cancel {
		return
	}

	c.out.WriteByte(e.Value)

	if e.Value == '\n' {
		c.out.Flush()
	}
}
