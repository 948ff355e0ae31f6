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

// Package snapshot saves processor state as a 48K ZX Spectrum .sna image
// through github.com/paulhankin/z80asm/z80io.
package snapshot

import (
	"errors"
	"fmt"

	"github.com/paulhankin/z80asm"
	"github.com/paulhankin/z80asm/z80io"

	"github.com/lassandro/goz80/pkg/assembler"
	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/registers"
)

const (
	RAM_SIZE = 1 << 16

	// The .sna format has no room for the first 16K, which is ROM on the
	// Spectrum, and the writer refuses images with data there.
	ROM_SIZE = 0x4000
)

var (
	ErrRomInUse = errors.New("Snapshot memory below 0x4000 is not empty")
)

// FromRegisters builds a z80asm machine from a register bank and a memory
// image. ram is copied into a 64K buffer.
func FromRegisters(regs *registers.Bank, interruptMode byte, ram []byte) *z80asm.Machine {
	alt := regs.Alternate()

	image := make([]byte, RAM_SIZE)
	copy(image, ram)

	return &z80asm.Machine{
		AF:         regs.AF,
		BC:         regs.BC,
		DE:         regs.DE,
		HL:         regs.HL,
		IX:         regs.IX,
		IY:         regs.IY,
		AF2:        alt.AF,
		BC2:        alt.BC,
		DE2:        alt.DE,
		HL2:        alt.HL,
		SP:         regs.SP,
		PC:         regs.PC,
		I:          regs.I(),
		R:          regs.R(),
		IntEnabled: regs.IFF1.Bool(),
		IntMode:    interruptMode,
		RAM:        image,
	}
}

// Save writes the current state of p to filename. Memory is read from the
// store directly, bypassing access modes.
func Save(filename string, p *machine.Processor) error {
	store := p.Memory().Store()

	size := store.Size()
	if size > RAM_SIZE {
		size = RAM_SIZE
	}

	ram, err := store.Contents(0, size)
	if err != nil {
		return err
	}

	return write(filename, FromRegisters(p.Registers(), p.InterruptMode(), ram))
}

// SaveProgram writes an assembled program as a snapshot that resumes at
// its entry point with the stack at the top of memory.
func SaveProgram(filename string, program *assembler.Program) error {
	regs := registers.New()
	regs.PC = program.Entry
	regs.SP = 0x0000

	return write(filename, FromRegisters(regs, 1, program.RAM))
}

// write refuses machines with data in the ROM area, including the return
// address the writer pushes below SP.
func write(filename string, m *z80asm.Machine) error {
	for addr := 0; addr < ROM_SIZE; addr++ {
		if m.RAM[addr] != 0 {
			return fmt.Errorf("%w: %#04x", ErrRomInUse, addr)
		}
	}

	// The PC is pushed onto the stack before writing.
	for _, addr := range []uint16{m.SP - 1, m.SP - 2} {
		if addr < ROM_SIZE {
			return fmt.Errorf("%w: stack at %#04x", ErrRomInUse, m.SP)
		}
	}

	return z80io.SaveSNA(filename, m)
}
