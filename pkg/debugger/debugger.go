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
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lassandro/goz80/pkg/machine"
)

// Attach subscribes the debugger to p and returns a function that detaches
// it again.
func (dbg *Debugger) Attach(p *machine.Processor) func() {
	removers := []func(){
		p.OnBeforeFetch(func(*machine.BeforeFetchEvent) {
			dbg.Step(p)
		}),
		p.OnAccess(func(e *machine.AccessEvent) {
			dbg.Read(e.Address, p)
		}, machine.BeforeMemoryRead),
		p.OnAccess(func(e *machine.AccessEvent) {
			dbg.Write(e.Address, p)
		}, machine.BeforeMemoryWrite),
	}

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (dbg *Debugger) Step(p *machine.Processor) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break.Swap(false) {
		dbg.HandleBreak(dbg, p)
		return
	}

	pc := p.Registers().PC
	for _, breakpoint := range dbg.Breakpoints {
		if pc == breakpoint.Addr {
			dbg.HandleBreak(dbg, p)
			break
		}
	}
}

func (dbg *Debugger) Read(addr uint16, p *machine.Processor) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, p)
			break
		}
	}
}

func (dbg *Debugger) Write(addr uint16, p *machine.Processor) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, p)
			break
		}
	}
}

func (dbg *Debugger) out() io.Writer {
	if dbg.Out == nil {
		return os.Stdout
	}

	return dbg.Out
}

// PrintMem dumps count bytes from addr, eight per row. Access modes are
// bypassed so unconnected areas show the store contents.
func (dbg *Debugger) PrintMem(p *machine.Processor, addr, count uint16) {
	out := dbg.out()
	store := p.Memory().Store()

	for i := uint16(0); i < count; i++ {
		at := addr + i

		if i == 0 {
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", at)
		} else if i%8 == 0 {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "\033[1m[%#04x]\033[0m ", at)
		}

		result, err := store.Get(int(at))
		if err != nil {
			fmt.Fprint(out, "\033[1;30m----\033[0m ")
			continue
		}

		if result == 0 {
			fmt.Fprintf(out, "\033[1;30m%#02x\033[0m ", result)
		} else {
			fmt.Fprintf(out, "%#02x ", result)
		}
	}

	fmt.Fprintln(out)
}

func (dbg *Debugger) PrintRegisters(p *machine.Processor) {
	out := dbg.out()
	regs := p.Registers()
	alt := regs.Alternate()

	fmt.Fprintf(out, "AF %#04x  BC %#04x  DE %#04x  HL %#04x\n", regs.AF, regs.BC, regs.DE, regs.HL)
	fmt.Fprintf(out, "AF'%#04x  BC'%#04x  DE'%#04x  HL'%#04x\n", alt.AF, alt.BC, alt.DE, alt.HL)
	fmt.Fprintf(out, "IX %#04x  IY %#04x  SP %#04x  PC %#04x\n", regs.IX, regs.IY, regs.SP, regs.PC)
	fmt.Fprintf(
		out,
		"I  %#02x  R  %#02x  IFF1 %v  IFF2 %v  IM %d\n",
		regs.I(),
		regs.R(),
		regs.IFF1,
		regs.IFF2,
		p.InterruptMode(),
	)
	fmt.Fprintf(
		out,
		"S %v Z %v H %v P/V %v N %v C %v\n",
		regs.SF(),
		regs.ZF(),
		regs.HF(),
		regs.PF(),
		regs.NF(),
		regs.CF(),
	)
	fmt.Fprintf(
		out,
		"PC at %s, %d T-states since reset\n",
		dbg.Symbols.Symbolize(regs.PC),
		p.TStatesSinceReset(),
	)
}

func (dbg *Debugger) PrintLabels() {
	out := dbg.out()

	if dbg.Symbols == nil || len(dbg.Symbols.Labels) == 0 {
		fmt.Fprintln(out, "No symbol table loaded")
		return
	}

	addrs := make([]uint16, 0, len(dbg.Symbols.Labels))
	for addr := range dbg.Symbols.Labels {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, addr := range addrs {
		fmt.Fprintf(out, "\033[1m[%#04x]\033[0m %s\n", addr, dbg.Symbols.Labels[addr])
	}
}
