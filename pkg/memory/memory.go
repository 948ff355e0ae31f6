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

package memory

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSize = errors.New("Memory size must be greater than zero")
	ErrOutOfRange  = errors.New("Address out of range")
)

// Memory is a fixed size, byte addressable store.
type Memory interface {
	Size() int
	Get(addr int) (byte, error)
	Set(addr int, value byte) error
	SetContents(start int, contents []byte) error
	Contents(start, length int) ([]byte, error)
}

// Plain is a flat byte slice with no side effects on access.
type Plain struct {
	data []byte
}

func NewPlain(size int) (*Plain, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	return &Plain{data: make([]byte, size)}, nil
}

func (m *Plain) Size() int {
	return len(m.data)
}

func (m *Plain) Get(addr int) (byte, error) {
	if addr < 0 || addr >= len(m.data) {
		return 0, fmt.Errorf("%w: %#04x", ErrOutOfRange, addr)
	}

	return m.data[addr], nil
}

func (m *Plain) Set(addr int, value byte) error {
	if addr < 0 || addr >= len(m.data) {
		return fmt.Errorf("%w: %#04x", ErrOutOfRange, addr)
	}

	m.data[addr] = value
	return nil
}

func (m *Plain) SetContents(start int, contents []byte) error {
	if start < 0 || start+len(contents) > len(m.data) {
		return fmt.Errorf(
			"%w: %#04x+%d exceeds %d bytes",
			ErrOutOfRange, start, len(contents), len(m.data),
		)
	}

	copy(m.data[start:], contents)
	return nil
}

func (m *Plain) Contents(start, length int) ([]byte, error) {
	if start < 0 || length < 0 || start+length > len(m.data) {
		return nil, fmt.Errorf(
			"%w: %#04x+%d exceeds %d bytes",
			ErrOutOfRange, start, length, len(m.data),
		)
	}

	result := make([]byte, length)
	copy(result, m.data[start:])
	return result, nil
}
