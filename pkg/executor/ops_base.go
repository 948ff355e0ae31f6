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

type op func(e *Executor) int

var (
	baseOps [256]op

	// indexable marks the unprefixed opcodes that DD and FD apply to.
	indexable [256]bool
)

func init() {
	for i := range baseOps {
		baseOps[i] = opNop
	}

	initLoads()
	initArithmetic()
	initControl()
	initMisc()
	initIndexable()

	baseOps[0xCB] = opPrefixCB
	baseOps[0xED] = opPrefixED
	baseOps[0xDD] = func(e *Executor) int { return e.prefixIndex(indexIX) }
	baseOps[0xFD] = func(e *Executor) int { return e.prefixIndex(indexIY) }
}

// simple wraps an instruction with no operand bytes.
func simple(tstates int, fn func(e *Executor)) op {
	return func(e *Executor) int {
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		fn(e)
		return tstates
	}
}

func opNop(e *Executor) int {
	e.ready(machine.FetchInfo{})
	return 4
}

func initLoads() {
	for code := byte(0); code < 4; code++ {
		rr := code

		// LD rr,nn
		baseOps[0x01|rr<<4] = func(e *Executor) int {
			value := e.fetchWord()
			if !e.ready(machine.FetchInfo{IsLdSp: rr == 3}) {
				return 0
			}

			e.setReg16(rr, value)
			return 10
		}
	}

	for code := byte(0); code < 8; code++ {
		dst := code

		// LD r,n
		baseOps[0x06|dst<<3] = func(e *Executor) int {
			e.operand(dst)
			value := e.fetch()
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			e.setReg8(dst, value)
			if dst == 6 && !e.indexed() {
				return 10
			}
			return 7
		}

		for code := byte(0); code < 8; code++ {
			src := code
			opcode := 0x40 | dst<<3 | src
			if opcode == 0x76 {
				continue
			}

			baseOps[opcode] = func(e *Executor) int {
				e.operand(dst, src)
				if !e.ready(machine.FetchInfo{}) {
					return 0
				}

				e.setReg8(dst, e.reg8(src))
				if dst == 6 || src == 6 {
					return 7
				}
				return 4
			}
		}
	}

	baseOps[0x02] = simple(7, func(e *Executor) { e.write(e.r.BC, e.r.A()) })
	baseOps[0x12] = simple(7, func(e *Executor) { e.write(e.r.DE, e.r.A()) })
	baseOps[0x0A] = simple(7, func(e *Executor) { e.r.SetA(e.read(e.r.BC)) })
	baseOps[0x1A] = simple(7, func(e *Executor) { e.r.SetA(e.read(e.r.DE)) })

	// LD (nn),HL
	baseOps[0x22] = func(e *Executor) int {
		addr := e.fetchWord()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.writeWord(addr, e.hl())
		return 16
	}

	// LD HL,(nn)
	baseOps[0x2A] = func(e *Executor) int {
		addr := e.fetchWord()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.setHL(e.readWord(addr))
		return 16
	}

	// LD (nn),A
	baseOps[0x32] = func(e *Executor) int {
		addr := e.fetchWord()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.write(addr, e.r.A())
		return 13
	}

	// LD A,(nn)
	baseOps[0x3A] = func(e *Executor) int {
		addr := e.fetchWord()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.r.SetA(e.read(addr))
		return 13
	}

	// LD SP,HL
	baseOps[0xF9] = func(e *Executor) int {
		if !e.ready(machine.FetchInfo{IsLdSp: true}) {
			return 0
		}

		e.r.SP = e.hl()
		return 6
	}

	for code := byte(0); code < 4; code++ {
		qq := code

		// POP qq
		baseOps[0xC1|qq<<4] = simple(10, func(e *Executor) {
			value := e.pop()
			if qq == 3 {
				e.r.AF = value
			} else {
				e.setReg16(qq, value)
			}
		})

		// PUSH qq
		baseOps[0xC5|qq<<4] = simple(11, func(e *Executor) {
			if qq == 3 {
				e.push(e.r.AF)
			} else {
				e.push(e.reg16(qq))
			}
		})
	}

	baseOps[0x08] = simple(4, func(e *Executor) { e.r.ExchangeAF() })
	baseOps[0xD9] = simple(4, func(e *Executor) { e.r.ExchangeMain() })
	baseOps[0xEB] = simple(4, func(e *Executor) {
		e.r.DE, e.r.HL = e.r.HL, e.r.DE
	})

	// EX (SP),HL
	baseOps[0xE3] = simple(19, func(e *Executor) {
		value := e.readWord(e.r.SP)
		e.writeWord(e.r.SP, e.hl())
		e.setHL(value)
	})
}

func initArithmetic() {
	for code := byte(0); code < 8; code++ {
		aluop := code

		for code := byte(0); code < 8; code++ {
			src := code

			baseOps[0x80|aluop<<3|src] = func(e *Executor) int {
				e.operand(src)
				if !e.ready(machine.FetchInfo{}) {
					return 0
				}

				e.alu(aluop, e.reg8(src))
				if src == 6 {
					return 7
				}
				return 4
			}
		}

		// ALU A,n
		baseOps[0xC6|aluop<<3] = func(e *Executor) int {
			value := e.fetch()
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			e.alu(aluop, value)
			return 7
		}
	}

	for code := byte(0); code < 8; code++ {
		reg := code

		// INC r
		baseOps[0x04|reg<<3] = func(e *Executor) int {
			e.operand(reg)
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			e.setReg8(reg, e.inc8(e.reg8(reg)))
			if reg == 6 {
				return 11
			}
			return 4
		}

		// DEC r
		baseOps[0x05|reg<<3] = func(e *Executor) int {
			e.operand(reg)
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			e.setReg8(reg, e.dec8(e.reg8(reg)))
			if reg == 6 {
				return 11
			}
			return 4
		}
	}

	for code := byte(0); code < 4; code++ {
		rr := code

		baseOps[0x03|rr<<4] = simple(6, func(e *Executor) {
			e.setReg16(rr, e.reg16(rr)+1)
		})

		baseOps[0x0B|rr<<4] = simple(6, func(e *Executor) {
			e.setReg16(rr, e.reg16(rr)-1)
		})

		// ADD HL,rr
		baseOps[0x09|rr<<4] = simple(11, func(e *Executor) {
			e.setHL(e.add16(e.hl(), e.reg16(rr)))
		})
	}

	baseOps[0x07] = simple(4, func(e *Executor) { e.rotateA(0) })
	baseOps[0x0F] = simple(4, func(e *Executor) { e.rotateA(1) })
	baseOps[0x17] = simple(4, func(e *Executor) { e.rotateA(2) })
	baseOps[0x1F] = simple(4, func(e *Executor) { e.rotateA(3) })
	baseOps[0x27] = simple(4, func(e *Executor) { e.daa() })

	// CPL
	baseOps[0x2F] = simple(4, func(e *Executor) {
		a := ^e.r.A()
		e.r.SetA(a)
		e.r.SetF(e.r.F()&(flagS|flagZ|flagPV|flagC) | a&flagsXY | flagH | flagN)
	})

	// SCF
	baseOps[0x37] = simple(4, func(e *Executor) {
		e.r.SetF(e.r.F()&(flagS|flagZ|flagPV) | e.r.A()&flagsXY | flagC)
	})

	// CCF
	baseOps[0x3F] = simple(4, func(e *Executor) {
		carry := e.r.CF()
		e.r.SetF(e.r.F()&(flagS|flagZ|flagPV|flagC) | e.r.A()&flagsXY)
		e.r.SetHF(carry)
		e.r.SetCF(encoding.Not(carry))
	})
}

func initControl() {
	// JP nn
	baseOps[0xC3] = func(e *Executor) int {
		addr := e.fetchWord()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.r.PC = addr
		return 10
	}

	// JP (HL)
	baseOps[0xE9] = simple(4, func(e *Executor) { e.r.PC = e.hl() })

	// JR e
	baseOps[0x18] = func(e *Executor) int {
		offset := e.fetch()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.r.PC = encoding.Displace(e.r.PC, offset)
		return 12
	}

	// DJNZ e
	baseOps[0x10] = func(e *Executor) int {
		offset := e.fetch()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		b := e.r.B() - 1
		e.r.SetB(b)
		if b == 0 {
			return 8
		}

		e.r.PC = encoding.Displace(e.r.PC, offset)
		return 13
	}

	// CALL nn
	baseOps[0xCD] = func(e *Executor) int {
		addr := e.fetchWord()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.push(e.r.PC)
		e.r.PC = addr
		return 17
	}

	// RET
	baseOps[0xC9] = func(e *Executor) int {
		if !e.ready(machine.FetchInfo{IsRet: true}) {
			return 0
		}

		e.r.PC = e.pop()
		return 10
	}

	for code := byte(0); code < 4; code++ {
		cc := code

		// JR cc,e
		baseOps[0x20|cc<<3] = func(e *Executor) int {
			offset := e.fetch()
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			if !e.condition(cc) {
				return 7
			}

			e.r.PC = encoding.Displace(e.r.PC, offset)
			return 12
		}
	}

	for code := byte(0); code < 8; code++ {
		cc := code

		// RET cc
		baseOps[0xC0|cc<<3] = func(e *Executor) int {
			taken := e.condition(cc)
			if !e.ready(machine.FetchInfo{IsRet: taken}) {
				return 0
			}

			if !taken {
				return 5
			}

			e.r.PC = e.pop()
			return 11
		}

		// JP cc,nn
		baseOps[0xC2|cc<<3] = func(e *Executor) int {
			addr := e.fetchWord()
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			if e.condition(cc) {
				e.r.PC = addr
			}
			return 10
		}

		// CALL cc,nn
		baseOps[0xC4|cc<<3] = func(e *Executor) int {
			addr := e.fetchWord()
			if !e.ready(machine.FetchInfo{}) {
				return 0
			}

			if !e.condition(cc) {
				return 10
			}

			e.push(e.r.PC)
			e.r.PC = addr
			return 17
		}

		// RST p
		target := uint16(cc) << 3
		baseOps[0xC7|cc<<3] = simple(11, func(e *Executor) {
			e.push(e.r.PC)
			e.r.PC = target
		})
	}
}

func initMisc() {
	// HALT leaves PC past itself; the processor feeds NOPs until an
	// interrupt arrives.
	baseOps[0x76] = func(e *Executor) int {
		if !e.ready(machine.FetchInfo{IsHalt: true}) {
			return 0
		}

		return 4
	}

	// DI
	baseOps[0xF3] = func(e *Executor) int {
		if !e.ready(machine.FetchInfo{IsEiOrDi: true}) {
			return 0
		}

		e.r.IFF1, e.r.IFF2 = encoding.Off, encoding.Off
		return 4
	}

	// EI
	baseOps[0xFB] = func(e *Executor) int {
		if !e.ready(machine.FetchInfo{IsEiOrDi: true}) {
			return 0
		}

		e.r.IFF1, e.r.IFF2 = encoding.On, encoding.On
		return 4
	}

	// OUT (n),A
	baseOps[0xD3] = func(e *Executor) int {
		port := e.fetch()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.out(port, e.r.A(), e.r.A())
		return 11
	}

	// IN A,(n)
	baseOps[0xDB] = func(e *Executor) int {
		port := e.fetch()
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		e.r.SetA(e.in(port, e.r.A()))
		return 11
	}
}

func initIndexable() {
	for _, opcode := range []byte{
		0x09, 0x19, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26,
		0x29, 0x2A, 0x2B, 0x2C, 0x2D, 0x2E, 0x34, 0x35,
		0x36, 0x39, 0xCB, 0xE1, 0xE3, 0xE5, 0xE9, 0xF9,
	} {
		indexable[opcode] = true
	}

	uses := func(code byte) bool { return code >= 4 && code <= 6 }

	for opcode := 0x40; opcode < 0xC0; opcode++ {
		dst := byte(opcode>>3) & 7
		src := byte(opcode) & 7

		switch {
		case opcode == 0x76:
		case opcode < 0x80:
			indexable[opcode] = uses(dst) || uses(src)
		default:
			indexable[opcode] = uses(src)
		}
	}
}
