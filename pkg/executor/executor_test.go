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

	"github.com/lassandro/goz80/pkg/executor"
	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/registers"
)

type testCase struct {
	Name    string
	Steps   uint
	Program []byte
	Input   map[string]uint16
	Memory  map[uint16]byte
	Output  map[string]uint16
	Written map[uint16]byte
	TStates int
}

func newProcessor(t *testing.T) *machine.Processor {
	t.Helper()

	p, err := machine.New(
		machine.WithExecutor(executor.New()),
		machine.WithClockSynchronizer(nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	return p
}

func load(t *testing.T, p *machine.Processor, addr uint16, contents []byte) {
	t.Helper()

	if err := p.Memory().Store().SetContents(int(addr), contents); err != nil {
		t.Fatal(err)
	}
}

func register(regs *registers.Bank, name string) *uint16 {
	switch name {
	case "AF":
		return &regs.AF
	case "BC":
		return &regs.BC
	case "DE":
		return &regs.DE
	case "HL":
		return &regs.HL
	case "IX":
		return &regs.IX
	case "IY":
		return &regs.IY
	case "SP":
		return &regs.SP
	case "PC":
		return &regs.PC
	default:
		return nil
	}
}

// view reads a register by name; single letters are 8-bit halves.
func view(regs *registers.Bank, name string) uint16 {
	switch name {
	case "A":
		return uint16(regs.A())
	case "F":
		return uint16(regs.F())
	case "B":
		return uint16(regs.B())
	case "C":
		return uint16(regs.C())
	default:
		return *register(regs, name)
	}
}

func testExecute(t *testing.T, test *testCase) {
	p := newProcessor(t)
	regs := p.Registers()
	regs.AF, regs.SP = 0, 0xF000

	for name, value := range test.Input {
		ptr := register(regs, name)
		if ptr == nil {
			panic("Unknown input register " + name)
		}
		*ptr = value
	}

	for addr, value := range test.Memory {
		load(t, p, addr, []byte{value})
	}
	load(t, p, 0, test.Program)

	if test.Steps == 0 {
		test.Steps = 1
	}

	tstates := 0
	for i := uint(0); i < test.Steps; i++ {
		n, err := p.ExecuteNextInstruction()
		if err != nil {
			t.Fatalf("Step %d failed: %v", i, err)
		}
		tstates += n
	}

	for name, want := range test.Output {
		have := view(regs, name)
		if have != want {
			t.Errorf(
				"Register mismatch\nwant:%#04x (test.Output[%q])\nhave:%#04x",
				want,
				name,
				have,
			)
		}
	}

	for addr, want := range test.Written {
		have, _ := p.Memory().Read(int(addr))
		if have != want {
			t.Errorf(
				"Memory mismatch at %#04x\nwant:%#02x\nhave:%#02x",
				addr,
				want,
				have,
			)
		}
	}

	if test.TStates != 0 && tstates != test.TStates {
		t.Errorf("T-states mismatch\nwant:%d\nhave:%d", test.TStates, tstates)
	}
}

func TestInstructions(t *testing.T) {
	tests := []testCase{
		{
			Name:    "LD A,n then INC A",
			Steps:   2,
			Program: []byte{0x3E, 0x05, 0x3C},
			Output:  map[string]uint16{"A": 0x06, "F": 0x00, "PC": 3},
			TStates: 11,
		},
		{
			Name:    "ADD A,B overflow",
			Program: []byte{0x80},
			Input:   map[string]uint16{"AF": 0x7F00, "BC": 0x0100},
			Output:  map[string]uint16{"A": 0x80, "F": 0x94},
			TStates: 4,
		},
		{
			Name:    "SUB B borrow",
			Program: []byte{0x90},
			Input:   map[string]uint16{"BC": 0x0100},
			Output:  map[string]uint16{"A": 0xFF, "F": 0xBB},
		},
		{
			Name:    "CP n keeps A",
			Program: []byte{0xFE, 0x28},
			Input:   map[string]uint16{"AF": 0x1000},
			Output:  map[string]uint16{"A": 0x10, "F": 0xBB, "PC": 2},
			TStates: 7,
		},
		{
			Name:    "AND B zero",
			Program: []byte{0xA0},
			Input:   map[string]uint16{"AF": 0xF000, "BC": 0x0F00},
			Output:  map[string]uint16{"A": 0x00, "F": 0x54},
		},
		{
			Name:    "XOR A",
			Program: []byte{0xAF},
			Input:   map[string]uint16{"AF": 0x55FF},
			Output:  map[string]uint16{"A": 0x00, "F": 0x44},
		},
		{
			Name:    "SCF then CCF",
			Steps:   2,
			Program: []byte{0x37, 0x3F},
			Input:   map[string]uint16{"AF": 0x00C4},
			Output:  map[string]uint16{"A": 0x00, "F": 0xD4},
			TStates: 8,
		},
		{
			Name:    "DAA after BCD add",
			Steps:   2,
			Program: []byte{0x80, 0x27},
			Input:   map[string]uint16{"AF": 0x1500, "BC": 0x2700},
			Output:  map[string]uint16{"A": 0x42, "F": 0x14},
			TStates: 8,
		},
		{
			Name:    "ADD HL,HL carry",
			Program: []byte{0x29},
			Input:   map[string]uint16{"HL": 0x8000},
			Output:  map[string]uint16{"HL": 0x0000, "F": 0x01},
			TStates: 11,
		},
		{
			Name:    "SBC HL,DE",
			Program: []byte{0xED, 0x52},
			Input:   map[string]uint16{"AF": 0x0001, "HL": 0x1000, "DE": 0x0001},
			Output:  map[string]uint16{"HL": 0x0FFE, "F": 0x1A},
			TStates: 15,
		},
		{
			Name:    "NEG",
			Program: []byte{0xED, 0x44},
			Input:   map[string]uint16{"AF": 0x0100},
			Output:  map[string]uint16{"A": 0xFF, "F": 0xBB, "PC": 2},
			TStates: 8,
		},
		{
			Name:    "LD (IX+d),n",
			Program: []byte{0xDD, 0x36, 0x05, 0xAB},
			Input:   map[string]uint16{"IX": 0x1000},
			Output:  map[string]uint16{"PC": 4},
			Written: map[uint16]byte{0x1005: 0xAB},
			TStates: 19,
		},
		{
			Name:    "LD B,(IY-1)",
			Program: []byte{0xFD, 0x46, 0xFF},
			Input:   map[string]uint16{"IY": 0x2001},
			Memory:  map[uint16]byte{0x2000: 0x77},
			Output:  map[string]uint16{"B": 0x77, "PC": 3},
			TStates: 19,
		},
		{
			Name:    "INC IXH",
			Program: []byte{0xDD, 0x24},
			Input:   map[string]uint16{"IX": 0x12FF},
			Output:  map[string]uint16{"IX": 0x13FF, "HL": 0, "F": 0x00},
			TStates: 8,
		},
		{
			Name:    "DD before unaffected opcode",
			Steps:   2,
			Program: []byte{0xDD, 0x3C},
			Output:  map[string]uint16{"A": 0x01, "PC": 2},
			TStates: 8,
		},
		{
			Name:    "JP (IY)",
			Program: []byte{0xFD, 0xE9},
			Input:   map[string]uint16{"IY": 0x1234},
			Output:  map[string]uint16{"PC": 0x1234},
			TStates: 8,
		},
		{
			Name:    "JR NZ not taken",
			Program: []byte{0x20, 0x05},
			Input:   map[string]uint16{"AF": 0x0040},
			Output:  map[string]uint16{"PC": 2},
			TStates: 7,
		},
		{
			Name:    "DJNZ loop",
			Steps:   4,
			Program: []byte{0x06, 0x03, 0x10, 0xFE},
			Output:  map[string]uint16{"B": 0x00, "PC": 4},
			TStates: 41,
		},
		{
			Name:    "CALL then RET",
			Steps:   2,
			Program: []byte{0xCD, 0x05, 0x00, 0x00, 0x00, 0xC9},
			Input:   map[string]uint16{"SP": 0x8000},
			Output:  map[string]uint16{"PC": 3, "SP": 0x8000},
			Written: map[uint16]byte{0x7FFE: 0x03, 0x7FFF: 0x00},
			TStates: 27,
		},
		{
			Name:    "PUSH AF POP BC",
			Steps:   2,
			Program: []byte{0xF5, 0xC1},
			Input:   map[string]uint16{"AF": 0x1234},
			Output:  map[string]uint16{"BC": 0x1234, "SP": 0xF000},
			TStates: 21,
		},
		{
			Name:    "LDIR",
			Steps:   2,
			Program: []byte{0xED, 0xB0},
			Input:   map[string]uint16{"HL": 0x100, "DE": 0x200, "BC": 2},
			Memory:  map[uint16]byte{0x100: 0xAA, 0x101: 0xBB},
			Output: map[string]uint16{
				"HL": 0x102, "DE": 0x202, "BC": 0, "PC": 2, "F": 0x28,
			},
			Written: map[uint16]byte{0x200: 0xAA, 0x201: 0xBB},
			TStates: 37,
		},
		{
			Name:    "BIT 7,A",
			Program: []byte{0xCB, 0x7F},
			Input:   map[string]uint16{"AF": 0x8000},
			Output:  map[string]uint16{"A": 0x80, "F": 0x90},
			TStates: 8,
		},
		{
			Name:    "SET 3,(HL)",
			Program: []byte{0xCB, 0xDE},
			Input:   map[string]uint16{"HL": 0x300},
			Written: map[uint16]byte{0x300: 0x08},
			TStates: 15,
		},
		{
			Name:    "RLC (IX+2) copies to B",
			Program: []byte{0xDD, 0xCB, 0x02, 0x00},
			Input:   map[string]uint16{"IX": 0x400},
			Memory:  map[uint16]byte{0x402: 0x81},
			Output:  map[string]uint16{"B": 0x03, "F": 0x05, "PC": 4},
			Written: map[uint16]byte{0x402: 0x03},
			TStates: 23,
		},
		{
			Name:    "RRD",
			Program: []byte{0xED, 0x67},
			Input:   map[string]uint16{"AF": 0x8400, "HL": 0x500},
			Memory:  map[uint16]byte{0x500: 0x20},
			Output:  map[string]uint16{"A": 0x80, "F": 0x80},
			Written: map[uint16]byte{0x500: 0x42},
			TStates: 18,
		},
	}

	for i := range tests {
		test := &tests[i]
		t.Run(test.Name, func(t *testing.T) {
			testExecute(t, test)
		})
	}
}

func TestHaltAfterDi(t *testing.T) {
	p := newProcessor(t)
	load(t, p, 0, []byte{0x3E, 0x05, 0x3C, 0x76})

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	if have := p.StopReason(); have != machine.DiPlusHalt {
		t.Errorf("Stop reason mismatch\nwant:%v\nhave:%v", machine.DiPlusHalt, have)
	}

	regs := p.Registers()
	if regs.A() != 0x06 || regs.PC != 4 {
		t.Errorf("State mismatch\nwant:A=0x06 PC=0x0004\nhave:A=%#02x PC=%#04x", regs.A(), regs.PC)
	}

	if have := p.TStatesSinceStart(); have != 15 {
		t.Errorf("T-states mismatch\nwant:15\nhave:%d", have)
	}
}

func TestCancelledInstruction(t *testing.T) {
	p := newProcessor(t)
	load(t, p, 0, []byte{0x3E, 0x05})

	p.OnBeforeExecution(func(e *machine.BeforeExecutionEvent) {
		e.Cancel = true
	})

	tstates, err := p.ExecuteNextInstruction()
	if err != nil {
		t.Fatal(err)
	}

	regs := p.Registers()
	if regs.A() != 0x00 || regs.PC != 2 || tstates != 0 {
		t.Errorf(
			"Cancelled instruction had effects\nhave:A=%#02x PC=%#04x T=%d",
			regs.A(),
			regs.PC,
			tstates,
		)
	}
}

func TestExtendedPortAddress(t *testing.T) {
	p := newProcessor(t)
	if err := p.SetUseExtendedPorts(true); err != nil {
		t.Fatal(err)
	}

	if err := p.Ports().Store().Set(0x1234, 0x99); err != nil {
		t.Fatal(err)
	}

	var ports []uint16
	p.OnAccess(func(e *machine.AccessEvent) {
		ports = append(ports, e.Address)
	}, machine.BeforePortRead)

	load(t, p, 0, []byte{0x3E, 0x12, 0xDB, 0x34})

	for range 2 {
		if _, err := p.ExecuteNextInstruction(); err != nil {
			t.Fatal(err)
		}
	}

	if len(ports) != 1 || ports[0] != 0x1234 {
		t.Errorf("Port address mismatch\nwant:[0x1234]\nhave:%#04x", ports)
	}

	if have := p.Registers().A(); have != 0x99 {
		t.Errorf("Port read mismatch\nwant:0x99\nhave:%#02x", have)
	}
}

func TestInterruptReturnHooks(t *testing.T) {
	p := newProcessor(t)
	p.Registers().SP = 0x8000
	load(t, p, 0x8000, []byte{0x34, 0x12})
	load(t, p, 0, []byte{0xED, 0x4D})

	var events []machine.InterruptReturnEvent
	p.OnInterruptReturn(func(e machine.InterruptReturnEvent) {
		events = append(events, e)
	})

	if _, err := p.ExecuteNextInstruction(); err != nil {
		t.Fatal(err)
	}

	want := []machine.InterruptReturnEvent{
		{Instruction: machine.Reti, After: false},
		{Instruction: machine.Reti, After: true},
	}

	if len(events) != len(want) || events[0] != want[0] || events[1] != want[1] {
		t.Errorf("Interrupt return events mismatch\nwant:%v\nhave:%v", want, events)
	}

	if have := p.Registers().PC; have != 0x1234 {
		t.Errorf("Return address mismatch\nwant:0x1234\nhave:%#04x", have)
	}
}

func TestRefreshRegister(t *testing.T) {
	tests := []struct {
		Name    string
		Program []byte
		Want    byte
	}{
		{"NOP", []byte{0x00}, 1},
		{"CB", []byte{0xCB, 0x00}, 2},
		{"ED", []byte{0xED, 0x44}, 2},
		{"DD", []byte{0xDD, 0x21, 0x00, 0x00}, 2},
		{"DD CB", []byte{0xDD, 0xCB, 0x00, 0x06}, 2},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			p := newProcessor(t)
			p.Registers().IR = 0
			load(t, p, 0, test.Program)

			if _, err := p.ExecuteNextInstruction(); err != nil {
				t.Fatal(err)
			}

			if have := p.Registers().R(); have != test.Want {
				t.Errorf("R mismatch\nwant:%d\nhave:%d", test.Want, have)
			}
		})
	}
}
