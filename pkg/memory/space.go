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

type AccessMode uint8

const (
	ReadAndWrite AccessMode = iota
	ReadOnly
	WriteOnly
	NotConnected
)

// Value returned by reads that do not reach the store.
const Unconnected byte = 0xFF

var ErrStoreTooSmall = errors.New("Store is smaller than the address space")

func (mode AccessMode) Readable() bool {
	return mode == ReadAndWrite || mode == ReadOnly
}

func (mode AccessMode) Writable() bool {
	return mode == ReadAndWrite || mode == WriteOnly
}

func (mode AccessMode) String() string {
	switch mode {
	case ReadAndWrite:
		return "ReadAndWrite"
	case ReadOnly:
		return "ReadOnly"
	case WriteOnly:
		return "WriteOnly"
	case NotConnected:
		return "NotConnected"
	default:
		return fmt.Sprintf("AccessMode(%d)", uint8(mode))
	}
}

// Space overlays an access mode and wait state count on every address of a
// store. Memory uses a 64K space; ports use 256 or 64K.
type Space struct {
	store   Memory
	modes   []AccessMode
	waits   []byte
	m1Waits []byte
}

func NewSpace(store Memory, size int) (*Space, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	space := &Space{
		modes:   make([]AccessMode, size),
		waits:   make([]byte, size),
		m1Waits: make([]byte, size),
	}

	if err := space.SetStore(store); err != nil {
		return nil, err
	}

	return space, nil
}

func (s *Space) Size() int {
	return len(s.modes)
}

func (s *Space) Store() Memory {
	return s.store
}

func (s *Space) SetStore(store Memory) error {
	if store == nil {
		return errors.New("Store cannot be nil")
	}

	if store.Size() < len(s.modes) {
		return fmt.Errorf(
			"%w: %d < %d", ErrStoreTooSmall, store.Size(), len(s.modes),
		)
	}

	s.store = store
	return nil
}

// Resize grows or shrinks the space. Settings of the addresses both sizes
// share are kept, new addresses are ReadAndWrite with no wait states.
func (s *Space) Resize(size int) error {
	if size < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}

	if s.store.Size() < size {
		return fmt.Errorf(
			"%w: %d < %d", ErrStoreTooSmall, s.store.Size(), size,
		)
	}

	s.modes = resize(s.modes, size)
	s.waits = resize(s.waits, size)
	s.m1Waits = resize(s.m1Waits, size)
	return nil
}

func resize[T any](values []T, size int) []T {
	result := make([]T, size)
	copy(result, values)
	return result
}

func (s *Space) check(addr int) error {
	if addr < 0 || addr >= len(s.modes) {
		return fmt.Errorf("%w: %#04x", ErrOutOfRange, addr)
	}

	return nil
}

func (s *Space) checkRange(start, length int) error {
	if length < 0 || start < 0 || start+length > len(s.modes) {
		return fmt.Errorf(
			"%w: %#04x+%d exceeds %d", ErrOutOfRange, start, length, len(s.modes),
		)
	}

	return nil
}

// Read returns Unconnected for addresses that are not readable without
// touching the store.
func (s *Space) Read(addr int) (byte, error) {
	if err := s.check(addr); err != nil {
		return 0, err
	}

	if !s.modes[addr].Readable() {
		return Unconnected, nil
	}

	return s.store.Get(addr)
}

// Write silently drops the value for addresses that are not writable.
func (s *Space) Write(addr int, value byte) error {
	if err := s.check(addr); err != nil {
		return err
	}

	if !s.modes[addr].Writable() {
		return nil
	}

	return s.store.Set(addr, value)
}

func (s *Space) SetMode(start, length int, mode AccessMode) error {
	if err := s.checkRange(start, length); err != nil {
		return err
	}

	for i := start; i < start+length; i++ {
		s.modes[i] = mode
	}

	return nil
}

func (s *Space) Mode(addr int) (AccessMode, error) {
	if err := s.check(addr); err != nil {
		return NotConnected, err
	}

	return s.modes[addr], nil
}

func (s *Space) SetWaitStates(start, length int, count byte) error {
	if err := s.checkRange(start, length); err != nil {
		return err
	}

	for i := start; i < start+length; i++ {
		s.waits[i] = count
	}

	return nil
}

func (s *Space) WaitStates(addr int) byte {
	if s.check(addr) != nil {
		return 0
	}

	return s.waits[addr]
}

// SetM1WaitStates sets the wait states charged to opcode fetches.
func (s *Space) SetM1WaitStates(start, length int, count byte) error {
	if err := s.checkRange(start, length); err != nil {
		return err
	}

	for i := start; i < start+length; i++ {
		s.m1Waits[i] = count
	}

	return nil
}

func (s *Space) M1WaitStates(addr int) byte {
	if s.check(addr) != nil {
		return 0
	}

	return s.m1Waits[addr]
}
