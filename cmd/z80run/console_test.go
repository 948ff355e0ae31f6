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

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lassandro/goz80/pkg/executor"
	"github.com/lassandro/goz80/pkg/machine"
)

func TestConsole(t *testing.T) {
	program := []byte{
		0xDB, 0x02, // IN A,(2)
		0x47,       // LD B,A
		0xDB, 0x01, // IN A,(1)
		0xD3, 0x01, // OUT (1),A
		0xDB, 0x01, // IN A,(1)
		0x4F,       // LD C,A
		0xF3, 0x76, // DI; HALT
	}

	p, err := machine.New(
		machine.WithExecutor(executor.New()),
		machine.WithClockSynchronizer(nil),
	)
	if err != nil {
		t.Fatal(err)
	}

	if err := p.Memory().Store().SetContents(0, program); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	detach := newConsole(0x01, strings.NewReader("h"), &out).Attach(p)

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}

	detach()

	if have := p.StopReason(); have != machine.DiPlusHalt {
		t.Errorf("Stop reason mismatch\nwant:%v\nhave:%v", machine.DiPlusHalt, have)
	}

	regs := p.Registers()
	if regs.B() != 0x01 || regs.C() != 0x00 {
		t.Errorf("Register mismatch\nwant:B=0x01 C=0x00\nhave:B=%#02x C=%#02x", regs.B(), regs.C())
	}

	if have := out.String(); have != "h" {
		t.Errorf("Output mismatch\nwant:%q\nhave:%q", "h", have)
	}
}
