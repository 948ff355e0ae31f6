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

	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/memory"
	"github.com/lassandro/goz80/pkg/registers"
)

// agent is handed to the executor. Misuse and store errors are raised as
// panics and recovered by the loop.
type agent struct {
	p *Processor
}

type stopper struct {
	p *Processor
}

func (s stopper) Stop(isPause bool) {
	s.p.requireActive("Stop")

	if isPause {
		s.p.ctx.stop(PauseInvoked)
	} else {
		s.p.ctx.stop(StopInvoked)
	}
}

func (p *Processor) requireActive(call string) {
	if !p.active {
		panic(fmt.Errorf("%w: %s outside of instruction execution", ErrAgentMisuse, call))
	}
}

func (p *Processor) requireFetching(call string) {
	p.requireActive(call)

	if p.ctx.fetchComplete {
		panic(fmt.Errorf("%w: %s after the fetch finished", ErrAgentMisuse, call))
	}
}

func (p *Processor) requireFetched(call string) {
	p.requireActive(call)

	if !p.ctx.fetchComplete {
		panic(fmt.Errorf("%w: %s before the fetch finished", ErrAgentMisuse, call))
	}
}

func (a agent) Stop(isPause bool) {
	stopper(a).Stop(isPause)
}

func (a agent) FetchNextOpcode() byte {
	a.p.requireFetching("FetchNextOpcode")
	return a.p.fetchOpcode()
}

func (a agent) PeekNextOpcode() byte {
	p := a.p
	p.requireFetching("PeekNextOpcode")

	if !p.ctx.hasPeeked || p.ctx.peekedAddr != p.regs.PC {
		// Wait states are charged when the byte is actually fetched
		p.ctx.peeked = p.access(
			p.memory, p.regs.PC, 0, BeforeMemoryRead, 0,
		)
		p.ctx.peekedAddr = p.regs.PC
		p.ctx.hasPeeked = true
	}

	return p.ctx.peeked
}

func (a agent) FetchFinished(info FetchInfo) bool {
	p := a.p
	p.requireActive("FetchFinished")

	if p.ctx.fetchComplete {
		return !p.ctx.cancelled
	}

	p.ctx.fetchComplete = true
	p.ctx.info = info
	p.ctx.spAfterFetch = p.regs.SP

	if p.ctx.inInterrupt {
		return true
	}

	if !p.hooks.fetchFinished.empty() {
		p.hooks.fetchFinished.fire(&FetchFinishedEvent{
			FetchInfo: info,
			Opcode:    p.ctx.opcodeBytes(),
		})
	}

	opcode := p.ctx.opcodeBytes()
	event := BeforeExecutionEvent{
		Opcode:     opcode,
		LocalState: p.ctx.localState,
	}
	p.hooks.beforeExecution.fire(&event)
	p.fireInterruptReturn(opcode, false)

	p.ctx.localState = event.LocalState
	p.ctx.cancelled = event.Cancel
	return !event.Cancel
}

func (a agent) ReadMemory(addr uint16) byte {
	a.p.requireFetched("ReadMemory")
	return a.p.readMemory(addr)
}

func (a agent) WriteMemory(addr uint16, value byte) {
	a.p.requireFetched("WriteMemory")
	a.p.writeMemory(addr, value)
}

func (a agent) ReadPort(port byte) byte {
	return a.ReadPortExtended(port, 0)
}

func (a agent) WritePort(port byte, value byte) {
	a.WritePortExtended(port, 0, value)
}

func (a agent) ReadPortExtended(low, high byte) byte {
	p := a.p
	p.requireFetched("ReadPort")

	port := p.portAddress(low, high)
	return p.access(
		p.ports, port, 0, BeforePortRead, p.ports.WaitStates(int(port)),
	)
}

func (a agent) WritePortExtended(low, high, value byte) {
	p := a.p
	p.requireFetched("WritePort")

	port := p.portAddress(low, high)
	p.access(
		p.ports, port, value, BeforePortWrite, p.ports.WaitStates(int(port)),
	)
}

func (a agent) Registers() *registers.Bank {
	return a.p.regs
}

func (a agent) SetInterruptMode(mode byte) error {
	a.p.requireFetched("SetInterruptMode")
	return a.p.SetInterruptMode(mode)
}

func (p *Processor) portAddress(low, high byte) uint16 {
	if p.extendedPorts {
		return encoding.MakeWord(low, high)
	}

	return uint16(low)
}

// fetchOpcode reads the byte at PC as an M1 cycle and advances PC. A byte
// peeked at the same address earlier in this instruction is not read twice.
func (p *Processor) fetchOpcode() byte {
	addr := p.regs.PC
	waits := p.memory.M1WaitStates(int(addr))

	var opcode byte
	if p.ctx.hasPeeked && p.ctx.peekedAddr == addr {
		opcode = p.ctx.peeked
		p.ctx.waitStates += int(waits)
	} else {
		opcode = p.access(p.memory, addr, 0, BeforeMemoryRead, waits)
	}

	p.ctx.dropPeeked()
	p.ctx.opcode = append(p.ctx.opcode, opcode)
	p.regs.PC = encoding.Inc(p.regs.PC)
	return opcode
}

func (p *Processor) readMemory(addr uint16) byte {
	return p.access(
		p.memory, addr, 0, BeforeMemoryRead, p.memory.WaitStates(int(addr)),
	)
}

func (p *Processor) writeMemory(addr uint16, value byte) {
	p.access(
		p.memory, addr, value, BeforeMemoryWrite, p.memory.WaitStates(int(addr)),
	)
}

// access performs one read or write through space, surrounded by the before
// and after hooks of its event type. kind is always a Before type.
func (p *Processor) access(
	space *memory.Space,
	addr uint16,
	value byte,
	kind AccessEventType,
	waits byte,
) byte {
	isRead := kind == BeforeMemoryRead || kind == BeforePortRead

	before := AccessEvent{Type: kind, Address: addr, Value: value}
	if isRead {
		before.Value = memory.Unconnected
	}

	p.hooks.access[kind].fire(&before)

	result := before.Value
	if !before.Cancel {
		var err error

		if isRead {
			result, err = space.Read(int(addr))
		} else {
			err = space.Write(int(addr), before.Value)
		}

		if err != nil {
			panic(err)
		}
	}

	p.ctx.waitStates += int(waits)

	after := AccessEvent{
		Type:       kind + 1,
		Address:    addr,
		Value:      result,
		Cancel:     before.Cancel,
		LocalState: before.LocalState,
	}
	p.hooks.access[kind+1].fire(&after)

	return after.Value
}
