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

package assembler_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/lassandro/goz80/pkg/assembler"
)

const source = `// increments A once and halts
main:
	ld a, 5
.loop
	inc a
	halt
`

func writeSource(t *testing.T, contents string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "test.asm")
	if err := os.WriteFile(filename, []byte(contents), 0666); err != nil {
		t.Fatal(err)
	}

	return filename
}

func TestAssembleFile(t *testing.T) {
	filename := writeSource(t, source)

	program, err := assembler.AssembleFile(filename, assembler.DEFAULT_ENTRY)
	if err != nil {
		t.Fatal(err)
	}

	if size := len(program.RAM); size != assembler.RAM_SIZE {
		t.Fatalf("Invalid buffer length\nwant:%d\nhave:%d", assembler.RAM_SIZE, size)
	}

	want := []byte{0x3E, 0x05, 0x3C, 0x76}
	org := int(assembler.DEFAULT_ORG)
	if have := program.RAM[org : org+len(want)]; !reflect.DeepEqual(have, want) {
		t.Errorf("Instruction encoding mismatch\nwant:% x\nhave:% x", want, have)
	}

	if program.Entry != assembler.DEFAULT_ORG {
		t.Errorf("Entry mismatch\nwant:%#04x\nhave:%#04x", assembler.DEFAULT_ORG, program.Entry)
	}

	labels := map[uint16]string{0x8000: "main", 0x8002: "main.loop"}
	if !reflect.DeepEqual(program.Symbols.Labels, labels) {
		t.Errorf("Label mismatch\nwant:%v\nhave:%v", labels, program.Symbols.Labels)
	}

	if abs, _ := filepath.Abs(filename); program.Symbols.Source != abs {
		t.Errorf("Source mismatch\nwant:%s\nhave:%s", abs, program.Symbols.Source)
	}
}

func TestAssembleSource(t *testing.T) {
	program, err := assembler.AssembleSource("org 0x100\nstart: nop\n\tjp start\n", "start")
	if err != nil {
		t.Fatal(err)
	}

	if program.Entry != 0x100 {
		t.Errorf("Entry mismatch\nwant:0x0100\nhave:%#04x", program.Entry)
	}

	want := []byte{0x00, 0xC3, 0x00, 0x01}
	if have := program.RAM[0x100:0x104]; !reflect.DeepEqual(have, want) {
		t.Errorf("Instruction encoding mismatch\nwant:% x\nhave:% x", want, have)
	}

	if program.Symbols.Source != "" {
		t.Errorf("Source should be empty\nhave:%s", program.Symbols.Source)
	}
}

func TestAssemblerFail(t *testing.T) {
	if _, err := assembler.AssembleSource("nop\n", "missing"); !errors.Is(err, assembler.ErrNoEntry) {
		t.Errorf("Missing entry error mismatch\nhave:%v", err)
	}

	if _, err := assembler.AssembleSource("xor a, b\n", ""); err == nil {
		t.Error("Invalid instruction assembled")
	}
}

func TestSymbolize(t *testing.T) {
	table := &assembler.SymTable{
		Labels: map[uint16]string{0x8000: "main", 0x8010: "main.loop"},
	}

	tests := []struct {
		Addr uint16
		Want string
	}{
		{0x7FFF, "0x7fff"},
		{0x8000, "main"},
		{0x8004, "main+4"},
		{0x8012, "main.loop+2"},
	}

	for _, test := range tests {
		if have := table.Symbolize(test.Addr); have != test.Want {
			t.Errorf("Symbolize(%#04x) mismatch\nwant:%s\nhave:%s", test.Addr, test.Want, have)
		}
	}

	if addr, ok := table.Address("main.loop"); !ok || addr != 0x8010 {
		t.Errorf("Address mismatch\nwant:0x8010\nhave:%#04x", addr)
	}

	var empty *assembler.SymTable
	if have := empty.Symbolize(0x10); have != "0x10" {
		t.Errorf("Nil table Symbolize mismatch\nwant:0x10\nhave:%s", have)
	}
}
