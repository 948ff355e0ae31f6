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

package script_test

import (
	"errors"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/lassandro/goz80/pkg/executor"
	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/script"
)

func newEngine(t *testing.T, program ...byte) (*machine.Processor, *script.Engine) {
	t.Helper()

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

	engine := script.New(p)
	t.Cleanup(engine.Close)

	return p, engine
}

func run(t *testing.T, p *machine.Processor, engine *script.Engine, source string) {
	t.Helper()

	if err := engine.DoString(source); err != nil {
		t.Fatal(err)
	}

	if err := p.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestPortWriteHook(t *testing.T) {
	// LD A,0x41; OUT (0x01),A; HALT
	p, engine := newEngine(t, 0x3E, 0x41, 0xD3, 0x01, 0x76)

	run(t, p, engine, `
		z80.on_port_write(function(port, value)
			last_port = port
			last_value = value
		end)
	`)

	if have := engine.Global("last_port"); have != lua.LNumber(0x01) {
		t.Errorf("Port mismatch\nwant:1\nhave:%v", have)
	}

	if have := engine.Global("last_value"); have != lua.LNumber(0x41) {
		t.Errorf("Value mismatch\nwant:65\nhave:%v", have)
	}
}

func TestPortReadHook(t *testing.T) {
	// IN A,(0x05); HALT
	p, engine := newEngine(t, 0xDB, 0x05, 0x76)

	run(t, p, engine, `
		z80.on_port_read(function(port, value)
			if port == 5 then
				return 0x42
			end
		end)
	`)

	if have := p.Registers().A(); have != 0x42 {
		t.Errorf("Port read mismatch\nwant:0x42\nhave:%#02x", have)
	}
}

func TestStopFromScript(t *testing.T) {
	p, engine := newEngine(t)

	run(t, p, engine, `
		fetches = 0
		z80.on_fetch(function(pc)
			fetches = fetches + 1
			if pc == 3 then
				z80.stop()
			end
		end)
	`)

	if have := p.StopReason(); have != machine.StopInvoked {
		t.Errorf("Stop reason mismatch\nwant:%v\nhave:%v", machine.StopInvoked, have)
	}

	if have := p.Registers().PC; have != 3 {
		t.Errorf("PC mismatch\nwant:0x0003\nhave:%#04x", have)
	}

	if have := engine.Global("fetches"); have != lua.LNumber(4) {
		t.Errorf("Fetch count mismatch\nwant:4\nhave:%v", have)
	}
}

func TestInstructionHook(t *testing.T) {
	// LD BC,0x1234; HALT
	p, engine := newEngine(t, 0x01, 0x34, 0x12, 0x76)

	run(t, p, engine, `
		total = 0
		z80.on_instruction(function(pc, tstates)
			total = total + tstates
		end)
	`)

	if have := engine.Global("total"); have != lua.LNumber(14) {
		t.Errorf("T-state total mismatch\nwant:14\nhave:%v", have)
	}

	if have := uint64(lua.LVAsNumber(engine.Global("total"))); have != p.TStatesSinceStart() {
		t.Errorf("T-state total disagrees with processor\nwant:%d\nhave:%d", p.TStatesSinceStart(), have)
	}
}

func TestRegistersAndMemory(t *testing.T) {
	p, engine := newEngine(t)

	err := engine.DoString(`
		z80.setreg("hl", 0x1234)
		z80.setreg("a", 0x1FF)
		z80.poke(0x10, 7)
		h = z80.reg("h")
		v = z80.peek(0x10)
	`)
	if err != nil {
		t.Fatal(err)
	}

	regs := p.Registers()
	if regs.HL != 0x1234 || regs.A() != 0xFF {
		t.Errorf("Register write mismatch\nhave:HL=%#04x A=%#02x", regs.HL, regs.A())
	}

	if have := engine.Global("h"); have != lua.LNumber(0x12) {
		t.Errorf("Register read mismatch\nwant:18\nhave:%v", have)
	}

	if have := engine.Global("v"); have != lua.LNumber(7) {
		t.Errorf("Memory read mismatch\nwant:7\nhave:%v", have)
	}

	if err := engine.DoString(`z80.reg("q")`); !errors.Is(err, script.ErrScript) {
		t.Errorf("Unknown register error mismatch\nhave:%v", err)
	}
}

func TestHookError(t *testing.T) {
	p, engine := newEngine(t)

	run(t, p, engine, `
		z80.on_fetch(function(pc)
			error("boom")
		end)
	`)

	if !errors.Is(engine.Err(), script.ErrScript) {
		t.Errorf("Hook error mismatch\nhave:%v", engine.Err())
	}

	if have := p.StopReason(); have != machine.StopInvoked {
		t.Errorf("Stop reason mismatch\nwant:%v\nhave:%v", machine.StopInvoked, have)
	}
}

func TestSyntaxError(t *testing.T) {
	_, engine := newEngine(t)

	if err := engine.DoString("z80.on_fetch("); !errors.Is(err, script.ErrScript) {
		t.Errorf("Syntax error mismatch\nhave:%v", err)
	}
}
