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

package debugger

import (
	"io"
	"sync/atomic"

	"github.com/lassandro/goz80/pkg/assembler"
	"github.com/lassandro/goz80/pkg/machine"
)

type WatchpointType uint

const (
	ReadWatch WatchpointType = iota
	WriteWatch
	ReadWriteWatch
)

type Watchpoint struct {
	Addr uint16
	Type WatchpointType
}

type Breakpoint struct {
	Addr uint16
}

type Debugger struct {
	// Break is set from other goroutines (e.g. a signal handler) to stop at
	// the next instruction.
	Break atomic.Bool

	Breakpoints []Breakpoint
	Watchpoints []Watchpoint

	Symbols *assembler.SymTable
	Out     io.Writer

	HandleBreak func(*Debugger, *machine.Processor)
	HandleRead  func(uint16, *Debugger, *machine.Processor)
	HandleWrite func(uint16, *Debugger, *machine.Processor)
}
