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

package encoding

type Bit uint8

const (
	Off Bit = 0
	On  Bit = 1
)

// BitOf panics on anything other than 0 or 1.
func BitOf(value int) Bit {
	switch value {
	case 0:
		return Off
	case 1:
		return On
	default:
		panic("Bit value must be 0 or 1")
	}
}

func BitFromBool(value bool) Bit {
	if value {
		return On
	}

	return Off
}

func (b Bit) Int() int {
	return int(b)
}

func (b Bit) Bool() bool {
	return b == On
}

func (b Bit) String() string {
	if b == On {
		return "1"
	}

	return "0"
}

func And(a, b Bit) Bit {
	return a & b
}

func Or(a, b Bit) Bit {
	return a | b
}

func Xor(a, b Bit) Bit {
	return a ^ b
}

func Not(a Bit) Bit {
	return a ^ On
}
