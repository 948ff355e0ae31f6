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

// Package assembler turns Z80 source into a memory image using
// github.com/paulhankin/z80asm, and records the labels it defines for the
// debugger.
package assembler

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/paulhankin/z80asm"
)

var (
	majorLabel = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	minorLabel = regexp.MustCompile(`^\s*\.([A-Za-z_][A-Za-z0-9_]*)`)
)

// AssembleFile assembles filename. The program counter starts at the label
// named entry, or at DEFAULT_ORG when entry is empty.
func AssembleFile(filename string, entry string) (*Program, error) {
	asm, err := z80asm.NewAssembler()
	if err != nil {
		return nil, err
	}

	if err := asm.AssembleFile(filename); err != nil {
		return nil, err
	}

	program := &Program{
		RAM:   make([]byte, RAM_SIZE),
		Entry: DEFAULT_ORG,
	}
	copy(program.RAM, asm.RAM())

	if program.Symbols, err = scanLabels(asm, filename); err != nil {
		return nil, err
	}

	if entry != "" {
		addr, ok := asm.GetLabel("", entry)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoEntry, entry)
		}

		program.Entry = addr
	}

	return program, nil
}

// AssembleSource assembles source held in memory by way of a temporary
// file, since z80asm only reads from disk.
func AssembleSource(source string, entry string) (*Program, error) {
	file, err := os.CreateTemp("", "z80asm-*.asm")
	if err != nil {
		return nil, err
	}

	defer os.Remove(file.Name())

	if _, err := file.WriteString(source); err != nil {
		file.Close()
		return nil, err
	}

	if err := file.Close(); err != nil {
		return nil, err
	}

	program, err := AssembleFile(file.Name(), entry)
	if err != nil {
		return nil, err
	}

	program.Symbols.Source = ""
	return program, nil
}

// scanLabels collects the labels defined in filename itself. Labels from
// included files are not listed.
func scanLabels(asm *z80asm.Assembler, filename string) (*SymTable, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	defer file.Close()

	table := &SymTable{Labels: make(map[uint16]string)}
	if table.Source, err = filepath.Abs(filename); err != nil {
		table.Source = filename
	}

	major := ""
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}

		if match := majorLabel.FindStringSubmatch(line); match != nil {
			major = match[1]
			if addr, ok := asm.GetLabel("", major); ok {
				table.Labels[addr] = major
			}
		} else if match := minorLabel.FindStringSubmatch(line); match != nil {
			if addr, ok := asm.GetLabel(major, "."+match[1]); ok {
				table.Labels[addr] = major + "." + match[1]
			}
		}
	}

	return table, scanner.Err()
}
