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

package machine

import (
	"sync/atomic"
)

// InterruptLine is an InterruptSource driven by a host device. Its methods
// may be called from any goroutine.
type InterruptLine struct {
	active atomic.Bool
	nmi    atomic.Bool
	bus    atomic.Int32
}

const noBusValue = -1

func NewInterruptLine() *InterruptLine {
	line := &InterruptLine{}
	line.bus.Store(noBusValue)
	return line
}

func (l *InterruptLine) SetInt(active bool) {
	l.active.Store(active)
}

// SetDataBus sets the byte supplied during interrupt acknowledge.
func (l *InterruptLine) SetDataBus(value byte) {
	l.bus.Store(int32(value))
}

func (l *InterruptLine) ClearDataBus() {
	l.bus.Store(noBusValue)
}

// PulseNMI raises an NMI edge. Pulses raised before the processor observes
// the first one are merged.
func (l *InterruptLine) PulseNMI() {
	l.nmi.Store(true)
}

func (l *InterruptLine) IntLineActive() bool {
	return l.active.Load()
}

func (l *InterruptLine) ValueOnDataBus() (byte, bool) {
	value := l.bus.Load()
	if value == noBusValue {
		return 0, false
	}

	return byte(value), true
}

func (l *InterruptLine) NMIPulsed() bool {
	return l.nmi.Swap(false)
}
