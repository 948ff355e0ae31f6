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

package executor

import (
	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/machine"
)

var edOps [256]op

// edModes maps the y field of ED 46/4E/.../7E to an interrupt mode.
var edModes = [8]byte{0, 0, 1, 2, 0, 0, 1, 2}

func init() {
	for i := range edOps {
		edOps[i] = simple(8, func(e *Executor) {})
	}

	for code := byte(0); code < 8; code++ {
		reg := code

		// IN r,(C); ED 70 only sets flags
		edOps[0x40|reg<<3] = simple(12, func(e *Executor) {
			value := e.in(e.r.C(), e.r.B())
			e.r.SetF(szp(value) | e.r.F()&flagC)

			if reg != 6 {
				e.setReg8(reg, value)
			}
		})

		// OUT (C),r; ED 71 writes zero
		edOps[0x41|reg<<3] = simple(12, func(e *Executor) {
			var value byte
			if reg != 6 {
				value = e.reg8(reg)
			}

			e.out(e.r.C(), e.r.B(), value)
		})

		// NEG
		edOps[0x44|reg<<3] = simple(8, func(e *Executor) {
			value := e.r.A()
			e.r.SetA(0)
			e.sub(value, 0, true)
		})

		// RETN, and RETI at ED 4D
		edOps[0x45|reg<<3] = func(e *Executor) int {
			if !e.ready(machine.FetchInfo{IsRet: true}) {
				return 0
			}

			e.r.PC = e.pop()
			e.r.IFF1 = e.r.IFF2
			return 14
		}

		mode := edModes[reg]
		edOps[0x46|reg<<3] = simple(8, func(e *Executor) {
			if err := e.agent.SetInterruptMode(mode); err != nil {
				panic(err)
			}
		})
	}

	for code := byte(0); code < 4; code++ {
		rr := code

		edOps[0x42|rr<<4] = simple(15, func(e *Executor) {
			e.r.HL = e.sbc16(e.r.HL, e.reg16(rr))
		})

		edOps[0x4A|rr<<4] = simple(15, func(e *Executor) {
			e.r.HL = e.adc16(e.r.HL, e.reg16(rr))
		})

		// LD (nn),rr
		edOps[0x43|rr<<4] = func(e *Executor) int {
			addr := e.fetchWord()
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			e.writeWord(addr, e.reg16(rr))
			return 20
		}

		// LD rr,(nn)
		edOps[0x4B|rr<<4] = func(e *Executor) int {
			addr := e.fetchWord()
			if !e.ready(machine.FetchInfo{IsLdSp: rr == 3}) {
				return 0
			}

			e.setReg16(rr, e.readWord(addr))
			return 20
		}
	}

	edOps[0x47] = simple(9, func(e *Executor) { e.r.SetI(e.r.A()) })
	edOps[0x4F] = simple(9, func(e *Executor) { e.r.SetR(e.r.A()) })
	edOps[0x57] = simple(9, func(e *Executor) { e.loadAIR(e.r.I()) })
	edOps[0x5F] = simple(9, func(e *Executor) { e.loadAIR(e.r.R()) })

	// RRD
	edOps[0x67] = simple(18, func(e *Executor) {
		a := e.r.A()
		value := e.read(e.r.HL)
		e.write(e.r.HL, a<<4|value>>4)
		e.setADigit(a&0xF0 | value&0x0F)
	})

	// RLD
	edOps[0x6F] = simple(18, func(e *Executor) {
		a := e.r.A()
		value := e.read(e.r.HL)
		e.write(e.r.HL, value<<4|a&0x0F)
		e.setADigit(a&0xF0 | value>>4)
	})

	for _, block := range []struct {
		opcode byte
		fn     func(e *Executor, step uint16) bool
	}{
		{0xA0, (*Executor).ldi},
		{0xA1, (*Executor).cpi},
		{0xA2, (*Executor).ini},
		{0xA3, (*Executor).outi},
	} {
		fn := block.fn

		edOps[block.opcode] = simple(16, func(e *Executor) { fn(e, 1) })
		edOps[block.opcode|0x08] = simple(16, func(e *Executor) { fn(e, 0xFFFF) })
		edOps[block.opcode|0x10] = repeated(fn, 1)
		edOps[block.opcode|0x18] = repeated(fn, 0xFFFF)
	}
}

func opPrefixED(e *Executor) int {
	opcode := e.fetch()
	e.r.IncR()

	return edOps[opcode](e)
}

// repeated builds LDIR, CPIR, INIR, OTIR and their decrementing forms, which
// re-execute by moving PC back over themselves.
func repeated(fn func(e *Executor, step uint16) bool, step uint16) op {
	return func(e *Executor) int {
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		if !fn(e, step) {
			return 16
		}

		e.r.PC = encoding.Sub(e.r.PC, 2)
		return 21
	}
}

func (e *Executor) loadAIR(value byte) {
	e.r.SetA(value)

	f := sz(value) | e.r.F()&flagC
	if e.r.IFF2 == encoding.On {
		f |= flagPV
	}

	e.r.SetF(f)
}

func (e *Executor) setADigit(a byte) {
	e.r.SetA(a)
	e.r.SetF(szp(a) | e.r.F()&flagC)
}

// The block helpers return whether the repeating form goes round again.

func (e *Executor) ldi(step uint16) bool {
	value := e.read(e.r.HL)
	e.write(e.r.DE, value)

	e.r.HL += step
	e.r.DE += step
	e.r.BC--

	n := value + e.r.A()
	f := e.r.F()&(flagS|flagZ|flagC) | n&flagX | (n<<4)&flagY
	f |= flagIf(e.r.BC != 0, flagPV)
	e.r.SetF(f)

	return e.r.BC != 0
}

func (e *Executor) cpi(step uint16) bool {
	value := e.read(e.r.HL)
	a := e.r.A()
	res := a - value
	half := a&0x0F < value&0x0F

	e.r.HL += step
	e.r.BC--

	n := res
	if half {
		n--
	}

	f := e.r.F()&flagC | flagN | res&flagS | n&flagX | (n<<4)&flagY
	f |= flagIf(res == 0, flagZ)
	f |= flagIf(half, flagH)
	f |= flagIf(e.r.BC != 0, flagPV)
	e.r.SetF(f)

	return e.r.BC != 0 && res != 0
}

func (e *Executor) ini(step uint16) bool {
	value := e.in(e.r.C(), e.r.B())
	e.write(e.r.HL, value)

	e.r.HL += step
	return e.decB()
}

func (e *Executor) outi(step uint16) bool {
	value := e.read(e.r.HL)
	repeat := e.decB()
	e.out(e.r.C(), e.r.B(), value)

	e.r.HL += step
	return repeat
}

func (e *Executor) decB() bool {
	b := e.r.B() - 1
	e.r.SetB(b)
	e.r.SetF(sz(b) | flagN | e.r.F()&flagC)

	return b != 0
}
