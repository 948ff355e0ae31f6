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

// executionContext is the bookkeeping for the instruction being run. It is
// reset at the top of every loop iteration. A peeked opcode is only reused
// by a fetch within the same instruction; the next instruction always reads
// memory again so hooks, access modes and M1 wait states apply to it.
type executionContext struct {
	opcode        []byte
	fetchComplete bool
	cancelled     bool
	info          FetchInfo
	spAfterFetch  uint16
	waitStates    int
	stopReason    StopReason
	localState    any
	inInterrupt   bool

	hasPeeked  bool
	peeked     byte
	peekedAddr uint16
}

func (ctx *executionContext) reset() {
	ctx.opcode = ctx.opcode[:0]
	ctx.fetchComplete = false
	ctx.cancelled = false
	ctx.info = FetchInfo{}
	ctx.spAfterFetch = 0
	ctx.waitStates = 0
	ctx.stopReason = NotApplicable
	ctx.localState = nil
	ctx.inInterrupt = false
	ctx.dropPeeked()
}

func (ctx *executionContext) dropPeeked() {
	ctx.hasPeeked = false
}

func (ctx *executionContext) opcodeBytes() []byte {
	result := make([]byte, len(ctx.opcode))
	copy(result, ctx.opcode)
	return result
}

// stop records the first stop reason of the instruction.
func (ctx *executionContext) stop(reason StopReason) {
	if ctx.stopReason == NotApplicable {
		ctx.stopReason = reason
	}
}
