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
	"github.com/lassandro/goz80/pkg/machine"
)

const prefixCB byte = 0xCB

func opPrefixCB(e *Executor) int {
	opcode := e.fetch()
	e.r.IncR()

	reg := opcode & 7
	if !e.ready(machine.FetchInfo{}) {
		return 0
	}

	value := e.reg8(reg)
	res, store := e.bitOp(opcode, value)
	if store {
		e.setReg8(reg, res)
	}

	switch {
	case reg != 6:
		return 8
	case !store:
		return 12
	default:
		return 15
	}
}

// bitOp runs a CB-prefixed operation on value. store is false for BIT,
// which only sets flags.
func (e *Executor) bitOp(opcode byte, value byte) (res byte, store bool) {
	n := (opcode >> 3) & 7

	switch opcode >> 6 {
	case 0:
		return e.shift(n, value), true
	case 1:
		e.bit(n, value)
		return value, false
	case 2:
		return value &^ (1 << n), true
	default:
		return value | 1<<n, true
	}
}

// indexedCB runs DD CB d op or FD CB d op. Results other than BIT are also
// copied into the register named by the low bits of op, unless it is 6.
func (e *Executor) indexedCB() int {
	e.disp = e.fetch()
	e.hasDisp = true
	opcode := e.fetch()

	if !e.ready(machine.FetchInfo{}) {
		return 0
	}

	addr := e.memAddr()
	res, store := e.bitOp(opcode, e.read(addr))
	if !store {
		return 20
	}

	e.write(addr, res)
	if reg := opcode & 7; reg != 6 {
		e.setReg8(reg, res)
	}

	return 23
}

// prefixIndex handles DD and FD. A prefix in front of an opcode it does not
// affect runs as a NOP and leaves that opcode to the next instruction.
func (e *Executor) prefixIndex(index byte) int {
	next := e.agent.PeekNextOpcode()
	if !indexable[next] {
		if !e.ready(machine.FetchInfo{}) {
			return 0
		}

		return 4
	}

	e.fetch()
	e.r.IncR()
	e.index = index

	if next == prefixCB {
		return e.indexedCB()
	}

	tstates := baseOps[next](e)
	if tstates == 0 {
		return 0
	}

	tstates += 4
	if e.hasDisp {
		tstates += 8
	}

	return tstates
}
