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

const (
	flagC  byte = 0x01
	flagN  byte = 0x02
	flagPV byte = 0x04
	flagX  byte = 0x08
	flagH  byte = 0x10
	flagY  byte = 0x20
	flagZ  byte = 0x40
	flagS  byte = 0x80

	flagsXY = flagX | flagY
)

const (
	aluAdd byte = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

// parity reports whether value has an even number of set bits.
func parity(value byte) bool {
	value ^= value >> 4
	value ^= value >> 2
	value ^= value >> 1
	return value&1 == 0
}

func flagIf(cond bool, flag byte) byte {
	if cond {
		return flag
	}

	return 0
}

// sz returns S, Z and the undocumented X/Y bits for value.
func sz(value byte) byte {
	return value&(flagS|flagsXY) | flagIf(value == 0, flagZ)
}

func szp(value byte) byte {
	return sz(value) | flagIf(parity(value), flagPV)
}

func (e *Executor) alu(op byte, value byte) {
	switch op {
	case aluAdd:
		e.add(value, 0)
	case aluAdc:
		e.add(value, e.r.F()&flagC)
	case aluSub:
		e.sub(value, 0, true)
	case aluSbc:
		e.sub(value, e.r.F()&flagC, true)
	case aluAnd:
		a := e.r.A() & value
		e.r.SetA(a)
		e.r.SetF(szp(a) | flagH)
	case aluXor:
		a := e.r.A() ^ value
		e.r.SetA(a)
		e.r.SetF(szp(a))
	case aluOr:
		a := e.r.A() | value
		e.r.SetA(a)
		e.r.SetF(szp(a))
	case aluCp:
		e.sub(value, 0, false)
		// CP takes X and Y from the operand, not the result
		e.r.SetF(e.r.F()&^flagsXY | value&flagsXY)
	}
}

func (e *Executor) add(value, carry byte) {
	a := e.r.A()
	sum := uint16(a) + uint16(value) + uint16(carry)
	res := byte(sum)

	f := sz(res)
	f |= flagIf((a&0x0F)+(value&0x0F)+carry > 0x0F, flagH)
	f |= flagIf((a^value)&0x80 == 0 && (a^res)&0x80 != 0, flagPV)
	f |= flagIf(sum > 0xFF, flagC)

	e.r.SetA(res)
	e.r.SetF(f)
}

func (e *Executor) sub(value, carry byte, store bool) {
	a := e.r.A()
	diff := int(a) - int(value) - int(carry)
	res := byte(diff)

	f := sz(res) | flagN
	f |= flagIf(int(a&0x0F)-int(value&0x0F)-int(carry) < 0, flagH)
	f |= flagIf((a^value)&0x80 != 0 && (a^res)&0x80 != 0, flagPV)
	f |= flagIf(diff < 0, flagC)

	if store {
		e.r.SetA(res)
	}
	e.r.SetF(f)
}

func (e *Executor) inc8(value byte) byte {
	res := value + 1

	f := e.r.F()&flagC | sz(res)
	f |= flagIf(value&0x0F == 0x0F, flagH)
	f |= flagIf(value == 0x7F, flagPV)

	e.r.SetF(f)
	return res
}

func (e *Executor) dec8(value byte) byte {
	res := value - 1

	f := e.r.F()&flagC | sz(res) | flagN
	f |= flagIf(value&0x0F == 0, flagH)
	f |= flagIf(value == 0x80, flagPV)

	e.r.SetF(f)
	return res
}

func (e *Executor) add16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	res := uint16(sum)

	f := e.r.F() & (flagS | flagZ | flagPV)
	f |= byte(res>>8) & flagsXY
	f |= flagIf((a&0x0FFF)+(b&0x0FFF) > 0x0FFF, flagH)
	f |= flagIf(sum > 0xFFFF, flagC)

	e.r.SetF(f)
	return res
}

func (e *Executor) adc16(a, b uint16) uint16 {
	carry := uint32(e.r.F() & flagC)
	sum := uint32(a) + uint32(b) + carry
	res := uint16(sum)

	f := byte(res>>8) & (flagS | flagsXY)
	f |= flagIf(res == 0, flagZ)
	f |= flagIf(uint32(a&0x0FFF)+uint32(b&0x0FFF)+carry > 0x0FFF, flagH)
	f |= flagIf((a^b)&0x8000 == 0 && (a^res)&0x8000 != 0, flagPV)
	f |= flagIf(sum > 0xFFFF, flagC)

	e.r.SetF(f)
	return res
}

func (e *Executor) sbc16(a, b uint16) uint16 {
	carry := int(e.r.F() & flagC)
	diff := int(a) - int(b) - carry
	res := uint16(diff)

	f := byte(res>>8)&(flagS|flagsXY) | flagN
	f |= flagIf(res == 0, flagZ)
	f |= flagIf(int(a&0x0FFF)-int(b&0x0FFF)-carry < 0, flagH)
	f |= flagIf((a^b)&0x8000 != 0 && (a^res)&0x8000 != 0, flagPV)
	f |= flagIf(diff < 0, flagC)

	e.r.SetF(f)
	return res
}

// shift runs one of the eight CB rotate/shift operations and sets the flags.
func (e *Executor) shift(op byte, value byte) byte {
	var res, carry byte
	oldCarry := e.r.F() & flagC

	switch op {
	case 0: // RLC
		carry = value >> 7
		res = value<<1 | carry
	case 1: // RRC
		carry = value & 1
		res = value>>1 | carry<<7
	case 2: // RL
		carry = value >> 7
		res = value<<1 | oldCarry
	case 3: // RR
		carry = value & 1
		res = value>>1 | oldCarry<<7
	case 4: // SLA
		carry = value >> 7
		res = value << 1
	case 5: // SRA
		carry = value & 1
		res = value>>1 | value&0x80
	case 6: // SLL
		carry = value >> 7
		res = value<<1 | 1
	default: // SRL
		carry = value & 1
		res = value >> 1
	}

	e.r.SetF(szp(res) | carry)
	return res
}

// rotateA implements RLCA, RRCA, RLA and RRA, which leave S, Z and P/V alone.
func (e *Executor) rotateA(op byte) {
	f := e.r.F()
	a := e.r.A()
	var carry byte

	switch op {
	case 0:
		carry = a >> 7
		a = a<<1 | carry
	case 1:
		carry = a & 1
		a = a>>1 | carry<<7
	case 2:
		carry = a >> 7
		a = a<<1 | f&flagC
	default:
		carry = a & 1
		a = a>>1 | (f&flagC)<<7
	}

	e.r.SetA(a)
	e.r.SetF(f&(flagS|flagZ|flagPV) | a&flagsXY | carry)
}

func (e *Executor) bit(n byte, value byte) {
	f := e.r.F()&flagC | flagH | value&flagsXY

	if value&(1<<n) == 0 {
		f |= flagZ | flagPV
	} else if n == 7 {
		f |= flagS
	}

	e.r.SetF(f)
}

func (e *Executor) daa() {
	a := e.r.A()
	f := e.r.F()

	var correction byte
	carry := f & flagC

	if f&flagH != 0 || a&0x0F > 9 {
		correction |= 0x06
	}

	if carry != 0 || a > 0x99 {
		correction |= 0x60
		carry = flagC
	}

	var res byte
	var half bool
	if f&flagN != 0 {
		res = a - correction
		half = f&flagH != 0 && a&0x0F < 6
	} else {
		res = a + correction
		half = a&0x0F > 9
	}

	e.r.SetA(res)
	e.r.SetF(szp(res) | f&flagN | flagIf(half, flagH) | carry)
}
