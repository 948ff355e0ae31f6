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

package registers

import (
	"errors"

	"github.com/lassandro/goz80/pkg/encoding"
)

const (
	FlagC  = 0
	FlagN  = 1
	FlagPV = 2
	Flag3  = 3
	FlagH  = 4
	Flag5  = 5
	FlagZ  = 6
	FlagS  = 7
)

var ErrNilAlternate = errors.New("Alternate register set cannot be nil")

// Main holds the register pairs that have an alternate copy. The 16-bit
// pairs are the only storage, the 8-bit views are computed from them.
type Main struct {
	AF uint16
	BC uint16
	DE uint16
	HL uint16
}

func (r *Main) A() byte { return encoding.HighByte(r.AF) }
func (r *Main) F() byte { return encoding.LowByte(r.AF) }
func (r *Main) B() byte { return encoding.HighByte(r.BC) }
func (r *Main) C() byte { return encoding.LowByte(r.BC) }
func (r *Main) D() byte { return encoding.HighByte(r.DE) }
func (r *Main) E() byte { return encoding.LowByte(r.DE) }
func (r *Main) H() byte { return encoding.HighByte(r.HL) }
func (r *Main) L() byte { return encoding.LowByte(r.HL) }

func (r *Main) SetA(v byte) { r.AF = encoding.SetHighByte(r.AF, v) }
func (r *Main) SetF(v byte) { r.AF = encoding.SetLowByte(r.AF, v) }
func (r *Main) SetB(v byte) { r.BC = encoding.SetHighByte(r.BC, v) }
func (r *Main) SetC(v byte) { r.BC = encoding.SetLowByte(r.BC, v) }
func (r *Main) SetD(v byte) { r.DE = encoding.SetHighByte(r.DE, v) }
func (r *Main) SetE(v byte) { r.DE = encoding.SetLowByte(r.DE, v) }
func (r *Main) SetH(v byte) { r.HL = encoding.SetHighByte(r.HL, v) }
func (r *Main) SetL(v byte) { r.HL = encoding.SetLowByte(r.HL, v) }

func (r *Main) Flag(position uint) encoding.Bit {
	return encoding.GetBit(r.F(), position)
}

func (r *Main) SetFlag(position uint, value encoding.Bit) {
	r.SetF(encoding.WithBit(r.F(), position, value))
}

func (r *Main) CF() encoding.Bit { return r.Flag(FlagC) }
func (r *Main) NF() encoding.Bit { return r.Flag(FlagN) }
func (r *Main) PF() encoding.Bit { return r.Flag(FlagPV) }
func (r *Main) Flag3() encoding.Bit { return r.Flag(Flag3) }
func (r *Main) HF() encoding.Bit { return r.Flag(FlagH) }
func (r *Main) Flag5() encoding.Bit { return r.Flag(Flag5) }
func (r *Main) ZF() encoding.Bit { return r.Flag(FlagZ) }
func (r *Main) SF() encoding.Bit { return r.Flag(FlagS) }

func (r *Main) SetCF(v encoding.Bit) { r.SetFlag(FlagC, v) }
func (r *Main) SetNF(v encoding.Bit) { r.SetFlag(FlagN, v) }
func (r *Main) SetPF(v encoding.Bit) { r.SetFlag(FlagPV, v) }
func (r *Main) SetFlag3(v encoding.Bit) { r.SetFlag(Flag3, v) }
func (r *Main) SetHF(v encoding.Bit) { r.SetFlag(FlagH, v) }
func (r *Main) SetFlag5(v encoding.Bit) { r.SetFlag(Flag5, v) }
func (r *Main) SetZF(v encoding.Bit) { r.SetFlag(FlagZ, v) }
func (r *Main) SetSF(v encoding.Bit) { r.SetFlag(FlagS, v) }

// Bank is the full processor-visible register file.
type Bank struct {
	Main

	IX uint16
	IY uint16
	PC uint16
	SP uint16
	IR uint16

	IFF1 encoding.Bit
	IFF2 encoding.Bit

	alternate *Main
}

func New() *Bank {
	return &Bank{alternate: &Main{}}
}

// Alternate returns the shadow register set (AF', BC', DE', HL').
func (r *Bank) Alternate() *Main {
	if r.alternate == nil {
		r.alternate = &Main{}
	}

	return r.alternate
}

func (r *Bank) SetAlternate(alt *Main) error {
	if alt == nil {
		return ErrNilAlternate
	}

	r.alternate = alt
	return nil
}

func (r *Bank) I() byte { return encoding.HighByte(r.IR) }
func (r *Bank) R() byte { return encoding.LowByte(r.IR) }
func (r *Bank) IXH() byte { return encoding.HighByte(r.IX) }
func (r *Bank) IXL() byte { return encoding.LowByte(r.IX) }
func (r *Bank) IYH() byte { return encoding.HighByte(r.IY) }
func (r *Bank) IYL() byte { return encoding.LowByte(r.IY) }

func (r *Bank) SetI(v byte) { r.IR = encoding.SetHighByte(r.IR, v) }
func (r *Bank) SetR(v byte) { r.IR = encoding.SetLowByte(r.IR, v) }
func (r *Bank) SetIXH(v byte) { r.IX = encoding.SetHighByte(r.IX, v) }
func (r *Bank) SetIXL(v byte) { r.IX = encoding.SetLowByte(r.IX, v) }
func (r *Bank) SetIYH(v byte) { r.IY = encoding.SetHighByte(r.IY, v) }
func (r *Bank) SetIYL(v byte) { r.IY = encoding.SetLowByte(r.IY, v) }

// IncR advances the refresh counter after an M1 cycle.
func (r *Bank) IncR() {
	r.SetR(encoding.Inc7Bits(r.R()))
}

// ExchangeAF swaps AF with AF'.
func (r *Bank) ExchangeAF() {
	alt := r.Alternate()
	r.AF, alt.AF = alt.AF, r.AF
}

// ExchangeMain swaps BC, DE and HL with their alternates (EXX).
func (r *Bank) ExchangeMain() {
	alt := r.Alternate()
	r.BC, alt.BC = alt.BC, r.BC
	r.DE, alt.DE = alt.DE, r.DE
	r.HL, alt.HL = alt.HL, r.HL
}
