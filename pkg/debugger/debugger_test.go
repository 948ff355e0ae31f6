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

package debugger_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lassandro/goz80/pkg/assembler"
	"github.com/lassandro/goz80/pkg/debugger"
	"github.com/lassandro/goz80/pkg/executor"
	"github.com/lassandro/goz80/pkg/machine"
)

func newProcessor(t *testing.T, program ...byte) *machine.Processor {
	t.Helper()

	p, err := machine.New(
		machine.WithExecutor(executor.New()),
		machine.WithClockSynchronizer(nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Memory().Store().SetContents(0, program); err != nil {
		t.Fatal(err)
	}

	return p
}

func TestBreakpoint(t *testing.T) {
	p := newProcessor(t, 0x00, 0x00, 0x00, 0x00, 0x76)

	var hits []uint16
	dbg := debugger.Debugger{
		Breakpoints: []debugger.Breakpoint{{Addr: 0x0003}},
		HandleBreak: func(dbg *debugger.Debugger, p *machine.Processor) {
			hits = append(hits, p.Registers().PC)
			p.RequestStop(true)
		},
	}
	detach := dbg.Attach(p)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	if len(hits) != 1 || hits[0] != 0x0003 {
		t.Errorf("Breakpoint hits mismatch\nwant:[0x0003]\nhave:%#04x", hits)
	}

	if have := p.State(); have != machine.Paused {
		t.Errorf("State mismatch\nwant:%v\nhave:%v", machine.Paused, have)
	}

	detach()

	if err := p.Continue(); err != nil {
		t.Fatal(err)
	}

	if len(hits) != 1 || p.StopReason() != machine.DiPlusHalt {
		t.Errorf("Detached debugger still active\nhave:hits=%d reason=%v", len(hits), p.StopReason())
	}
}

func TestBreakFlag(t *testing.T) {
	p := newProcessor(t, 0x00, 0x00, 0x76)

	steps := 0
	dbg := debugger.Debugger{
		HandleBreak: func(dbg *debugger.Debugger, p *machine.Processor) {
			// Single-step until the HALT
			steps++
			dbg.Break.Store(true)
		},
	}
	dbg.Attach(p)
	dbg.Break.Store(true)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	if steps != 3 {
		t.Errorf("Step count mismatch\nwant:3\nhave:%d", steps)
	}
}

func TestWatchpoints(t *testing.T) {
	// LD A,(0x0100); LD (0x0101),A; HALT
	p := newProcessor(t, 0x3A, 0x00, 0x01, 0x32, 0x01, 0x01, 0x76)

	var reads, writes []uint16
	dbg := debugger.Debugger{
		Watchpoints: []debugger.Watchpoint{
			{Addr: 0x0100, Type: debugger.ReadWriteWatch},
			{Addr: 0x0101, Type: debugger.ReadWatch},
		},
		HandleRead: func(addr uint16, dbg *debugger.Debugger, p *machine.Processor) {
			reads = append(reads, addr)
		},
		HandleWrite: func(addr uint16, dbg *debugger.Debugger, p *machine.Processor) {
			writes = append(writes, addr)
		},
	}
	dbg.Attach(p)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	if len(reads) != 1 || reads[0] != 0x0100 {
		t.Errorf("Read watch mismatch\nwant:[0x100]\nhave:%#04x", reads)
	}

	if len(writes) != 0 {
		t.Errorf("Write to a read watchpoint reported\nhave:%#04x", writes)
	}
}

func TestPrintMem(t *testing.T) {
	p := newProcessor(t, 0x3E, 0x05)

	var out bytes.Buffer
	dbg := debugger.Debugger{Out: &out}
	dbg.PrintMem(p, 0x0000, 9)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Row count mismatch\nwant:2\nhave:%d\n%s", len(lines), out.String())
	}

	if !strings.Contains(lines[0], "[0x00]") || !strings.Contains(lines[0], "0x3e 0x5") {
		t.Errorf("First row mismatch\nhave:%q", lines[0])
	}

	if !strings.Contains(lines[1], "[0x08]") {
		t.Errorf("Second row mismatch\nhave:%q", lines[1])
	}
}

func TestPrintRegistersAndLabels(t *testing.T) {
	p := newProcessor(t)
	p.Registers().PC = 0x8004

	var out bytes.Buffer
	dbg := debugger.Debugger{
		Out: &out,
		Symbols: &assembler.SymTable{
			Labels: map[uint16]string{0x8000: "main", 0x8010: "main.loop"},
		},
	}

	dbg.PrintRegisters(p)
	if !strings.Contains(out.String(), "PC at main+4") {
		t.Errorf("Register dump mismatch\nhave:%s", out.String())
	}

	out.Reset()
	dbg.PrintLabels()

	want := "\033[1m[0x8000]\033[0m main\n\033[1m[0x8010]\033[0m main.loop\n"
	if have := out.String(); have != want {
		t.Errorf("Label listing mismatch\nwant:%q\nhave:%q", want, have)
	}
}
