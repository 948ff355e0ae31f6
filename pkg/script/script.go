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

// Package script lets Lua programs observe and drive a processor through
// its hooks. A global table named z80 exposes:
//
//	reg(name), setreg(name, value)     registers by lower-case name
//	peek(addr), poke(addr, value)      memory, bypassing access modes
//	tstates()                          T-states since the last reset
//	stop(), pause()                    request the run loop to exit
//	on_fetch(fn(pc))
//	on_instruction(fn(pc, tstates))
//	on_port_read(fn(port, value) [value])
//	on_port_write(fn(port, value))
//	on_interrupt(fn(kind))
//
// Hooks run on the processor's goroutine and an Engine must not be used
// from any other while the processor runs.
package script

import (
	"errors"
	"fmt"
	"log/slog"

	lua "github.com/yuin/gopher-lua"

	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/registers"
)

var (
	ErrScript          = errors.New("Script error")
	ErrUnknownRegister = errors.New("Unknown register")
)

type Engine struct {
	state  *lua.LState
	p      *machine.Processor
	logger *slog.Logger

	removers []func()
	err      error
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(p *machine.Processor, opts ...Option) *Engine {
	e := &Engine{
		state:  lua.NewState(),
		p:      p,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(e)
	}

	api := e.state.NewTable()
	e.state.SetFuncs(api, map[string]lua.LGFunction{
		"reg":            e.reg,
		"setreg":         e.setreg,
		"peek":           e.peek,
		"poke":           e.poke,
		"tstates":        e.tstates,
		"stop":           e.stop,
		"pause":          e.pause,
		"on_fetch":       e.onFetch,
		"on_instruction": e.onInstruction,
		"on_port_read":   e.onPortRead,
		"on_port_write":  e.onPortWrite,
		"on_interrupt":   e.onInterrupt,
	})
	e.state.SetGlobal("z80", api)

	return e
}

func (e *Engine) DoFile(filename string) error {
	if err := e.state.DoFile(filename); err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}

	return nil
}

func (e *Engine) DoString(source string) error {
	if err := e.state.DoString(source); err != nil {
		return fmt.Errorf("%w: %w", ErrScript, err)
	}

	return nil
}

// Global returns a global variable of the script.
func (e *Engine) Global(name string) lua.LValue {
	return e.state.GetGlobal(name)
}

// Err returns the first error raised by a hook. Such an error also stops
// the processor.
func (e *Engine) Err() error {
	return e.err
}

// Close removes every hook and releases the Lua state.
func (e *Engine) Close() {
	for _, remove := range e.removers {
		remove()
	}

	e.removers = nil
	e.state.Close()
}

func (e *Engine) call(fn *lua.LFunction, nret int, args ...lua.LValue) lua.LValue {
	err := e.state.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...)
	if err != nil {
		e.fail(err)
		return lua.LNil
	}

	if nret == 0 {
		return lua.LNil
	}

	ret := e.state.Get(-1)
	e.state.Pop(1)
	return ret
}

func (e *Engine) fail(err error) {
	e.logger.Error("script hook failed", slog.String("error", err.Error()))

	if e.err == nil {
		e.err = fmt.Errorf("%w: %w", ErrScript, err)
	}

	e.p.RequestStop(false)
}

type accessor struct {
	get func(*registers.Bank) uint16
	set func(*registers.Bank, uint16)
}

func word(field func(*registers.Bank) *uint16) accessor {
	return accessor{
		get: func(r *registers.Bank) uint16 { return *field(r) },
		set: func(r *registers.Bank, v uint16) { *field(r) = v },
	}
}

func half(get func(*registers.Bank) byte, set func(*registers.Bank, byte)) accessor {
	return accessor{
		get: func(r *registers.Bank) uint16 { return uint16(get(r)) },
		set: func(r *registers.Bank, v uint16) { set(r, byte(v)) },
	}
}

var accessors = map[string]accessor{
	"af": word(func(r *registers.Bank) *uint16 { return &r.AF }),
	"bc": word(func(r *registers.Bank) *uint16 { return &r.BC }),
	"de": word(func(r *registers.Bank) *uint16 { return &r.DE }),
	"hl": word(func(r *registers.Bank) *uint16 { return &r.HL }),
	"ix": word(func(r *registers.Bank) *uint16 { return &r.IX }),
	"iy": word(func(r *registers.Bank) *uint16 { return &r.IY }),
	"sp": word(func(r *registers.Bank) *uint16 { return &r.SP }),
	"pc": word(func(r *registers.Bank) *uint16 { return &r.PC }),

	"a": half((*registers.Bank).A, (*registers.Bank).SetA),
	"f": half((*registers.Bank).F, (*registers.Bank).SetF),
	"b": half((*registers.Bank).B, (*registers.Bank).SetB),
	"c": half((*registers.Bank).C, (*registers.Bank).SetC),
	"d": half((*registers.Bank).D, (*registers.Bank).SetD),
	"e": half((*registers.Bank).E, (*registers.Bank).SetE),
	"h": half((*registers.Bank).H, (*registers.Bank).SetH),
	"l": half((*registers.Bank).L, (*registers.Bank).SetL),
	"i": half((*registers.Bank).I, (*registers.Bank).SetI),
	"r": half((*registers.Bank).R, (*registers.Bank).SetR),
}

func (e *Engine) lookup(L *lua.LState) accessor {
	name := L.CheckString(1)

	acc, ok := accessors[name]
	if !ok {
		L.RaiseError("%v: %s", ErrUnknownRegister, name)
	}

	return acc
}

func (e *Engine) reg(L *lua.LState) int {
	acc := e.lookup(L)
	L.Push(lua.LNumber(acc.get(e.p.Registers())))
	return 1
}

func (e *Engine) setreg(L *lua.LState) int {
	acc := e.lookup(L)
	acc.set(e.p.Registers(), uint16(L.CheckInt(2)))
	return 0
}

func (e *Engine) peek(L *lua.LState) int {
	value, err := e.p.Memory().Store().Get(L.CheckInt(1))
	if err != nil {
		L.RaiseError("%v", err)
	}

	L.Push(lua.LNumber(value))
	return 1
}

func (e *Engine) poke(L *lua.LState) int {
	if err := e.p.Memory().Store().Set(L.CheckInt(1), byte(L.CheckInt(2))); err != nil {
		L.RaiseError("%v", err)
	}

	return 0
}

func (e *Engine) tstates(L *lua.LState) int {
	L.Push(lua.LNumber(e.p.TStatesSinceReset()))
	return 1
}

func (e *Engine) stop(L *lua.LState) int {
	e.p.RequestStop(false)
	return 0
}

func (e *Engine) pause(L *lua.LState) int {
	e.p.RequestStop(true)
	return 0
}

func (e *Engine) onFetch(L *lua.LState) int {
	fn := L.CheckFunction(1)

	e.removers = append(e.removers, e.p.OnBeforeFetch(func(*machine.BeforeFetchEvent) {
		e.call(fn, 0, lua.LNumber(e.p.Registers().PC))
	}))

	return 0
}

func (e *Engine) onInstruction(L *lua.LState) int {
	fn := L.CheckFunction(1)

	e.removers = append(e.removers, e.p.OnAfterExecution(func(ev *machine.AfterExecutionEvent) {
		e.call(fn, 0, lua.LNumber(e.p.Registers().PC), lua.LNumber(ev.TStates))
	}))

	return 0
}

func (e *Engine) onPortRead(L *lua.LState) int {
	fn := L.CheckFunction(1)

	e.removers = append(e.removers, e.p.OnAccess(func(ev *machine.AccessEvent) {
		ret := e.call(fn, 1, lua.LNumber(ev.Address), lua.LNumber(ev.Value))
		if value, ok := ret.(lua.LNumber); ok {
			ev.Value = byte(value)
		}
	}, machine.AfterPortRead))

	return 0
}

func (e *Engine) onPortWrite(L *lua.LState) int {
	fn := L.CheckFunction(1)

	e.removers = append(e.removers, e.p.OnAccess(func(ev *machine.AccessEvent) {
		e.call(fn, 0, lua.LNumber(ev.Address), lua.LNumber(ev.Value))
	}, machine.AfterPortWrite))

	return 0
}

func (e *Engine) onInterrupt(L *lua.LState) int {
	fn := L.CheckFunction(1)

	e.removers = append(e.removers, e.p.OnInterruptServicing(func(kind machine.InterruptType) {
		e.call(fn, 0, lua.LString(kind.String()))
	}))

	return 0
}
