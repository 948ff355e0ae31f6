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

// Package executor is a machine.InstructionExecutor for the documented Z80
// instruction set, plus the undocumented IXH/IXL/IYH/IYL forms, SLL and the
// register copy of DD CB/FD CB results.
package executor

import (
	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/registers"
)

const (
	indexHL byte = iota
	indexIX
	indexIY
)

// Executor keeps per-instruction scratch state and must only be used by one
// processor at a time.
type Executor struct {
	agent machine.Agent
	r     *registers.Bank

	index   byte
	disp    byte
	hasDisp bool
}

func New() *Executor {
	return &Executor{}
}

func (e *Executor) Execute(agent machine.Agent, opcode byte) (int, error) {
	e.agent = agent
	e.r = agent.Registers()
	e.index = indexHL
	e.hasDisp = false

	defer func() {
		e.agent = nil
		e.r = nil
	}()

	e.r.IncR()
	return baseOps[opcode](e), nil
}

func (e *Executor) fetch() byte {
	return e.agent.FetchNextOpcode()
}

func (e *Executor) fetchWord() uint16 {
	low := e.fetch()
	high := e.fetch()
	return encoding.MakeWord(low, high)
}

// ready ends the fetch phase. Instructions must not touch any state when it
// returns false.
func (e *Executor) ready(info machine.FetchInfo) bool {
	return e.agent.FetchFinished(info)
}

func (e *Executor) read(addr uint16) byte {
	return e.agent.ReadMemory(addr)
}

func (e *Executor) write(addr uint16, value byte) {
	e.agent.WriteMemory(addr, value)
}

func (e *Executor) readWord(addr uint16) uint16 {
	low := e.read(addr)
	high := e.read(encoding.Inc(addr))
	return encoding.MakeWord(low, high)
}

func (e *Executor) writeWord(addr uint16, value uint16) {
	e.write(addr, encoding.LowByte(value))
	e.write(encoding.Inc(addr), encoding.HighByte(value))
}

// push writes the high byte first, as the hardware does.
func (e *Executor) push(value uint16) {
	e.r.SP = encoding.Sub(e.r.SP, 2)
	e.write(encoding.Inc(e.r.SP), encoding.HighByte(value))
	e.write(e.r.SP, encoding.LowByte(value))
}

func (e *Executor) pop() uint16 {
	low := e.read(e.r.SP)
	high := e.read(encoding.Inc(e.r.SP))
	e.r.SP = encoding.Add(e.r.SP, 2)
	return encoding.MakeWord(low, high)
}

// in and out put high on the upper half of the address bus, which only
// matters to processors using the extended port space.
func (e *Executor) in(low, high byte) byte {
	if ext, ok := e.agent.(machine.ExtendedPortsAgent); ok {
		return ext.ReadPortExtended(low, high)
	}

	return e.agent.ReadPort(low)
}

func (e *Executor) out(low, high, value byte) {
	if ext, ok := e.agent.(machine.ExtendedPortsAgent); ok {
		ext.WritePortExtended(low, high, value)
		return
	}

	e.agent.WritePort(low, value)
}

func (e *Executor) indexed() bool {
	return e.index != indexHL
}

// hl is HL, IX or IY depending on the prefix of the instruction.
func (e *Executor) hl() uint16 {
	switch e.index {
	case indexIX:
		return e.r.IX
	case indexIY:
		return e.r.IY
	default:
		return e.r.HL
	}
}

func (e *Executor) setHL(value uint16) {
	switch e.index {
	case indexIX:
		e.r.IX = value
	case indexIY:
		e.r.IY = value
	default:
		e.r.HL = value
	}
}

// operand fetches the index displacement if any of codes refers to (HL).
func (e *Executor) operand(codes ...byte) {
	if !e.indexed() || e.hasDisp {
		return
	}

	for _, code := range codes {
		if code == 6 {
			e.disp = e.fetch()
			e.hasDisp = true
			return
		}
	}
}

func (e *Executor) memAddr() uint16 {
	if !e.indexed() {
		return e.r.HL
	}

	return encoding.Displace(e.hl(), e.disp)
}

// reg8 reads a register by its 3-bit opcode code. Code 6 is (HL). H and L
// become the index halves under a prefix unless the instruction also
// addresses (IX+d).
func (e *Executor) reg8(code byte) byte {
	switch code {
	case 0:
		return e.r.B()
	case 1:
		return e.r.C()
	case 2:
		return e.r.D()
	case 3:
		return e.r.E()
	case 4:
		return encoding.HighByte(e.halves())
	case 5:
		return encoding.LowByte(e.halves())
	case 6:
		return e.read(e.memAddr())
	default:
		return e.r.A()
	}
}

func (e *Executor) setReg8(code byte, value byte) {
	switch code {
	case 0:
		e.r.SetB(value)
	case 1:
		e.r.SetC(value)
	case 2:
		e.r.SetD(value)
	case 3:
		e.r.SetE(value)
	case 4:
		e.setHalves(encoding.SetHighByte(e.halves(), value))
	case 5:
		e.setHalves(encoding.SetLowByte(e.halves(), value))
	case 6:
		e.write(e.memAddr(), value)
	default:
		e.r.SetA(value)
	}
}

func (e *Executor) halves() uint16 {
	if e.hasDisp {
		return e.r.HL
	}

	return e.hl()
}

func (e *Executor) setHalves(value uint16) {
	if e.hasDisp {
		e.r.HL = value
		return
	}

	e.setHL(value)
}

// reg16 decodes the rr field of BC/DE/HL/SP instructions.
func (e *Executor) reg16(code byte) uint16 {
	switch code {
	case 0:
		return e.r.BC
	case 1:
		return e.r.DE
	case 2:
		return e.hl()
	default:
		return e.r.SP
	}
}

func (e *Executor) setReg16(code byte, value uint16) {
	switch code {
	case 0:
		e.r.BC = value
	case 1:
		e.r.DE = value
	case 2:
		e.setHL(value)
	default:
		e.r.SP = value
	}
}

// condition decodes the cc field of conditional jumps, calls and returns.
func (e *Executor) condition(code byte) bool {
	f := e.r.F()

	switch code {
	case 0:
		return f&flagZ == 0
	case 1:
		return f&flagZ != 0
	case 2:
		return f&flagC == 0
	case 3:
		return f&flagC != 0
	case 4:
		return f&flagPV == 0
	case 5:
		return f&flagPV != 0
	case 6:
		return f&flagS == 0
	default:
		return f&flagS != 0
	}
}
