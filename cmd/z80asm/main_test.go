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

import "testing"

func TestBinaryRange(t *testing.T) {
	ram := make([]byte, 1<<16)
	ram[0x8000] = 0x3E
	ram[0x8001] = 0x05
	ram[0x8003] = 0x76

	tests := []struct {
		Name string
		From string
		To   string
		Want [2]int
		Fail bool
	}{
		{"trailing zeros trimmed", "0x8000", "", [2]int{0x8000, 0x8004}, false},
		{"explicit end", "0x8000", "0x8010", [2]int{0x8000, 0x8010}, false},
		{"empty from end", "0x9000", "", [2]int{0x9000, 0x9000}, false},
		{"end before start", "0x8000", "0x7000", [2]int{}, true},
		{"bad address", "nope", "", [2]int{}, true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			fromvar, tovar = test.From, test.To

			from, to, err := binaryRange(ram)

			if test.Fail {
				if err == nil {
					t.Errorf("Expected error")
				}
				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if have := [2]int{from, to}; have != test.Want {
				t.Errorf("Range mismatch\nwant:%#04x\nhave:%#04x", test.Want, have)
			}
		})
	}
}
