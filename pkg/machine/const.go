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

const (
	MEMSPACE_SIZE      = 1 << 16
	PORTSPACE_SIZE     = 1 << 8
	PORTSPACE_EXT_SIZE = 1 << 16
)

const (
	ADDR_RST38 uint16 = 0x0038
	ADDR_NMI   uint16 = 0x0066
)

const (
	OP_NOP       byte = 0x00
	OP_RST38     byte = 0xFF
	OP_PREFIX_ED byte = 0xED
	OP_RETI      byte = 0x4D
	OP_RETN      byte = 0x45

	// Masks the mirrored encodings of RETI and RETN
	OP_RET_MIRROR_MASK byte = 0xCF
)

// T-states spent acknowledging an interrupt, excluding wait states
const (
	TSTATES_NMI = 11
	TSTATES_IM0 = 13
	TSTATES_IM1 = 13
	TSTATES_IM2 = 19
)

const (
	MIN_EFFECTIVE_MHZ = 0.001
	MAX_EFFECTIVE_MHZ = 100.0

	DEFAULT_MHZ = 4.0
)
