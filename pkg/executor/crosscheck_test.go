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

package executor_test

import (
	"testing"

	chipz80 "github.com/user-none/go-chip-z80"

	"github.com/lassandro/goz80/pkg/machine"
)

var crosscheckProgram = []byte{
	0x31, 0x00, 0xF0, // LD SP,0xF000
	0x21, 0x34, 0x12, // LD HL,0x1234
	0x11, 0x0F, 0x0F, // LD DE,0x0F0F
	0x06, 0x0A,       // LD B,10
	0x19,             // loop: ADD HL,DE
	0x7C,             // LD A,H
	0xAD,             // XOR L
	0x17,             // RLA
	0x88,             // ADC A,B
	0x2F,             // CPL
	0x4F,             // LD C,A
	0xED, 0x52,       // SBC HL,DE
	0x09,             // ADD HL,BC
	0x10, 0xF4,       // DJNZ loop
	0x76,             // HALT
}

const (
	crosscheckLoopEnd = 0x0015
	crosscheckHalt    = 0x0017

	// documentedFlags masks out the undocumented X and Y bits along with
	// the half carry.
	documentedFlags = 0xC7
)

type flatMemory [1 << 16]byte

// chipBus is the bus shape go-chip-z80 expects.
type chipBus struct {
	flatMemory
}

func (b *chipBus) Fetch(addr uint16) uint8 {
	return b.flatMemory[addr]
}

func (b *chipBus) Read(addr uint16) uint8 {
	return b.flatMemory[addr]
}

func (b *chipBus) Write(addr uint16, value uint8) {
	b.flatMemory[addr] = value
}

func (b *chipBus) In(port uint16) uint8 {
	return 0
}

func (b *chipBus) Out(port uint16, value uint8) {}

func step(t *testing.T, p *machine.Processor) int {
	t.Helper()

	tstates, err := p.ExecuteNextInstruction()
	if err != nil {
		t.Fatal(err)
	}

	return tstates
}

func compareRegisters(t *testing.T, p *machine.Processor, steps int, want map[string]uint16) {
	t.Helper()

	regs := p.Registers()

	have := map[string]uint16{
		"A":  uint16(regs.A()),
		"F":  uint16(regs.F() & documentedFlags),
		"BC": regs.BC,
		"DE": regs.DE,
		"HL": regs.HL,
		"SP": regs.SP,
	}

	for name := range want {
		if want[name] != have[name] {
			t.Errorf(
				"Register mismatch at step %d\nwant:%#04x (%s)\nhave:%#04x",
				steps,
				want[name],
				name,
				have[name],
			)
		}
	}
}

// TestAgainstChip compares T-states on every step and registers at the end
// of each loop pass against a cycle counting Z80 core.
func TestAgainstChip(t *testing.T) {
	bus := &chipBus{}
	copy(bus.flatMemory[:], crosscheckProgram)
	reference := chipz80.New(bus)

	p := newProcessor(t)
	load(t, p, 0, crosscheckProgram)
	regs := p.Registers()

	total := 0

	for steps := 0; regs.PC != crosscheckHalt; steps++ {
		if steps > 1000 {
			t.Fatal("Program did not reach HALT")
		}

		have := step(t, p)
		want := reference.Step()
		total += have

		if want != have {
			t.Fatalf(
				"T-states mismatch at %#04x\nwant:%d\nhave:%d",
				reference.Registers().PC,
				want,
				have,
			)
		}

		state := reference.Registers()
		if state.PC != regs.PC {
			t.Fatalf("PC diverged\nwant:%#04x\nhave:%#04x", state.PC, regs.PC)
		}

		if regs.PC != crosscheckLoopEnd {
			continue
		}

		compareRegisters(t, p, steps, map[string]uint16{
			"A":  state.AF >> 8,
			"F":  state.AF & documentedFlags,
			"BC": state.BC,
			"DE": state.DE,
			"HL": state.HL,
			"SP": state.SP,
		})
	}

	// Setup, ten loop bodies, nine taken DJNZ and the final one.
	if want := 37 + 10*61 + 9*13 + 8; total != want {
		t.Errorf("Total T-states mismatch\nwant:%d\nhave:%d", want, total)
	}
}
