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

import (
	"errors"
	"strconv"
	"strings"
)

var ErrInvalidHex = errors.New("Invalid hex string")

// Decodes a hexidecimal string in the formats: 0xFFFF, xFFFF, $FFFF, FFFFh
func DecodeHex(s string) (uint16, error) {
	switch {
	case strings.HasPrefix(s, "$"):
		s = "0x" + s[1:]
	case len(s) > 1 && strings.HasSuffix(strings.ToLower(s), "h"):
		s = "0x" + s[:len(s)-1]
	case strings.IndexAny(s, "xX") == 0:
		s = "0" + s
	case strings.IndexAny(s, "xX") != 1:
		return 0, ErrInvalidHex
	}

	result, err := strconv.ParseUint(s, 0, 16)

	if err != nil {
		return 0, err
	}

	return uint16(result), nil
}

// Decodes a base-10 string in the formats: #123, 123
func DecodeInt(s string) (int, error) {
	s = strings.TrimPrefix(s, "#")

	result, err := strconv.ParseInt(s, 10, 32)

	if err != nil {
		return 0, err
	}

	return int(result), nil
}

func HighByte(value uint16) byte {
	return byte(value >> 8)
}

func LowByte(value uint16) byte {
	return byte(value)
}

func SetHighByte(value uint16, high byte) uint16 {
	return (value & 0x00FF) | uint16(high)<<8
}

func SetLowByte(value uint16, low byte) uint16 {
	return (value & 0xFF00) | uint16(low)
}

func MakeWord(low, high byte) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// Inc, Dec, Add and Sub wrap around the width of T.
func Inc[T ~uint8 | ~uint16](value T) T {
	return value + 1
}

func Dec[T ~uint8 | ~uint16](value T) T {
	return value - 1
}

func Add[T ~uint8 | ~uint16](value T, amount int) T {
	return value + T(amount)
}

func Sub[T ~uint8 | ~uint16](value T, amount int) T {
	return value - T(amount)
}

// Increments the low 7 bits of value, preserving bit 7. This is how the
// refresh register advances.
func Inc7Bits(value byte) byte {
	return (value & 0x80) | ((value + 1) & 0x7F)
}

func GetBit(value byte, position uint) Bit {
	if position > 7 {
		panic("Invalid bit position")
	}

	return Bit((value >> position) & 1)
}

func WithBit(value byte, position uint, bit Bit) byte {
	if position > 7 {
		panic("Invalid bit position")
	}

	if bit == On {
		return value | (1 << position)
	}

	return value &^ (1 << position)
}

// Displace applies a signed 8-bit displacement to addr.
func Displace(addr uint16, offset byte) uint16 {
	return addr + uint16(int16(int8(offset)))
}
