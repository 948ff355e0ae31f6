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
	"fmt"
)

type AccessEventType uint8

const (
	BeforeMemoryRead AccessEventType = iota
	AfterMemoryRead
	BeforeMemoryWrite
	AfterMemoryWrite
	BeforePortRead
	AfterPortRead
	BeforePortWrite
	AfterPortWrite
)

func (t AccessEventType) String() string {
	switch t {
	case BeforeMemoryRead:
		return "BeforeMemoryRead"
	case AfterMemoryRead:
		return "AfterMemoryRead"
	case BeforeMemoryWrite:
		return "BeforeMemoryWrite"
	case AfterMemoryWrite:
		return "AfterMemoryWrite"
	case BeforePortRead:
		return "BeforePortRead"
	case AfterPortRead:
		return "AfterPortRead"
	case BeforePortWrite:
		return "BeforePortWrite"
	case AfterPortWrite:
		return "AfterPortWrite"
	default:
		return fmt.Sprintf("AccessEventType(%d)", uint8(t))
	}
}

func (t AccessEventType) IsBefore() bool {
	return t%2 == 0
}

func (t AccessEventType) IsPort() bool {
	return t >= BeforePortRead
}

// AccessEvent is passed to the before and after phases of a memory or port
// access. Value starts at 0xFF for reads and at the written value for
// writes. Setting Cancel in the before phase skips the store, and the
// after phase then sees Value as the before phase left it. LocalState set
// in the before phase is passed unmodified to the after phase.
type AccessEvent struct {
	Type       AccessEventType
	Address    uint16
	Value      byte
	Cancel     bool
	LocalState any
}

type BeforeFetchEvent struct {
	Stopper    Stopper
	LocalState any
}

type FetchFinishedEvent struct {
	FetchInfo
	Opcode []byte
}

type BeforeExecutionEvent struct {
	Opcode     []byte
	Cancel     bool
	LocalState any
}

type AfterExecutionEvent struct {
	Opcode     []byte
	TStates    int
	Stopper    Stopper
	LocalState any
}

type InterruptType uint8

const (
	Maskable InterruptType = iota
	NonMaskable
)

func (t InterruptType) String() string {
	if t == NonMaskable {
		return "NonMaskable"
	}

	return "Maskable"
}

type InterruptReturn uint8

const (
	Reti InterruptReturn = iota
	Retn
)

type InterruptReturnEvent struct {
	Instruction InterruptReturn
	After       bool
}

type hookEntry[E any] struct {
	id int
	fn func(E)
}

// hookList invokes its subscribers synchronously, in registration order.
type hookList[E any] struct {
	seq     int
	entries []hookEntry[E]
}

func (l *hookList[E]) add(fn func(E)) func() {
	l.seq++
	id := l.seq
	l.entries = append(l.entries, hookEntry[E]{id, fn})

	return func() {
		for i, entry := range l.entries {
			if entry.id == id {
				l.entries = append(l.entries[:i:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

func (l *hookList[E]) fire(e E) {
	for _, entry := range l.entries {
		entry.fn(e)
	}
}

func (l *hookList[E]) empty() bool {
	return len(l.entries) == 0
}

type hooks struct {
	beforeFetch     hookList[*BeforeFetchEvent]
	fetchFinished   hookList[*FetchFinishedEvent]
	beforeExecution hookList[*BeforeExecutionEvent]
	afterExecution  hookList[*AfterExecutionEvent]
	access          [AfterPortWrite + 1]hookList[*AccessEvent]
	interrupt       hookList[InterruptType]
	interruptReturn hookList[InterruptReturnEvent]
}

// Each On method returns a function that removes the subscription.

func (p *Processor) OnBeforeFetch(fn func(*BeforeFetchEvent)) func() {
	return p.hooks.beforeFetch.add(fn)
}

func (p *Processor) OnFetchFinished(fn func(*FetchFinishedEvent)) func() {
	return p.hooks.fetchFinished.add(fn)
}

func (p *Processor) OnBeforeExecution(fn func(*BeforeExecutionEvent)) func() {
	return p.hooks.beforeExecution.add(fn)
}

func (p *Processor) OnAfterExecution(fn func(*AfterExecutionEvent)) func() {
	return p.hooks.afterExecution.add(fn)
}

// OnAccess subscribes fn to the given access event types, or to all of them
// if none are given.
func (p *Processor) OnAccess(fn func(*AccessEvent), types ...AccessEventType) func() {
	if len(types) == 0 {
		for t := BeforeMemoryRead; t <= AfterPortWrite; t++ {
			types = append(types, t)
		}
	}

	removers := make([]func(), 0, len(types))
	for _, t := range types {
		removers = append(removers, p.hooks.access[t].add(fn))
	}

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (p *Processor) OnInterruptServicing(fn func(InterruptType)) func() {
	return p.hooks.interrupt.add(fn)
}

func (p *Processor) OnInterruptReturn(fn func(InterruptReturnEvent)) func() {
	return p.hooks.interruptReturn.add(fn)
}
