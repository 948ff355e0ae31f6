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

package assembler

import (
	"errors"
	"fmt"
)

var (
	ErrNoEntry = errors.New("Entry label not defined")
)

// SymTable maps addresses back to the labels defined at them. Minor labels
// are stored as major.minor.
type SymTable struct {
	Source string
	Labels map[uint16]string
}

// Lookup returns the closest label at or below addr and the distance to it.
func (table *SymTable) Lookup(addr uint16) (string, uint16, bool) {
	if table == nil {
		return "", 0, false
	}

	var best string
	var bestAddr uint16
	found := false

	for labelAddr, label := range table.Labels {
		if labelAddr > addr {
			continue
		}

		if !found || labelAddr > bestAddr || (labelAddr == bestAddr && label < best) {
			best, bestAddr, found = label, labelAddr, true
		}
	}

	return best, addr - bestAddr, found
}

// Symbolize formats addr as label+offset, or as a bare address when no
// label precedes it.
func (table *SymTable) Symbolize(addr uint16) string {
	label, offset, ok := table.Lookup(addr)

	switch {
	case !ok:
		return fmt.Sprintf("%#04x", addr)
	case offset == 0:
		return label
	default:
		return fmt.Sprintf("%s+%d", label, offset)
	}
}

// Address finds the address of a label by name.
func (table *SymTable) Address(name string) (uint16, bool) {
	if table == nil {
		return 0, false
	}

	for addr, label := range table.Labels {
		if label == name {
			return addr, true
		}
	}

	return 0, false
}

// Program is an assembled 64K memory image.
type Program struct {
	RAM     []byte
	Entry   uint16
	Symbols *SymTable
}
