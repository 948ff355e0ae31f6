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

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lassandro/goz80/pkg/clock"
	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/memory"
	"github.com/lassandro/goz80/pkg/registers"
)

// Processor runs a Z80 instruction loop over a pluggable executor.
//
// The loop runs on the goroutine that calls Start, Continue or
// ExecuteNextInstruction. Apart from RequestStop, State and StopReason,
// methods must not be called concurrently with a running loop except from
// within hooks.
type Processor struct {
	regs     *registers.Bank
	memory   *memory.Space
	ports    *memory.Space
	executor InstructionExecutor
	sources  []InterruptSource
	clock    ClockSynchronizer
	logger   *slog.Logger

	mhz         float64
	speedFactor float64

	autoStopOnDiPlusHalt        bool
	autoStopOnRetWithStackEmpty bool
	extendedPorts               bool

	state       atomic.Int32
	stopReason  atomic.Int32
	stopRequest atomic.Int32

	ctx    executionContext
	active bool

	halted        bool
	interruptMode byte
	nmiPending    bool
	lastWasEiOrDi bool
	startOfStack  uint16

	tStatesSinceStart uint64
	tStatesSinceReset uint64

	UserState any

	hooks hooks
}

type Option func(*Processor) error

func WithExecutor(executor InstructionExecutor) Option {
	return func(p *Processor) error {
		return p.SetInstructionExecutor(executor)
	}
}

func WithMemory(store memory.Memory) Option {
	return func(p *Processor) error {
		return p.SetMemory(store)
	}
}

func WithPorts(store memory.Memory) Option {
	return func(p *Processor) error {
		return p.SetPorts(store)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		if logger == nil {
			return fmt.Errorf("%w: logger", ErrNilArgument)
		}

		p.logger = logger
		return nil
	}
}

// WithClockSynchronizer replaces the default synchronizer. A nil
// synchronizer runs the processor as fast as the host allows.
func WithClockSynchronizer(sync ClockSynchronizer) Option {
	return func(p *Processor) error {
		p.SetClockSynchronizer(sync)
		return nil
	}
}

func WithClockFrequency(mhz float64) Option {
	return func(p *Processor) error {
		return p.SetClockFrequency(mhz)
	}
}

func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		regs:                 registers.New(),
		logger:               slog.New(slog.DiscardHandler),
		mhz:                  DEFAULT_MHZ,
		speedFactor:          1,
		autoStopOnDiPlusHalt: true,
		startOfStack:         0xFFFF,
	}

	p.clock = clock.NewSynchronizer(p.mhz)
	p.stopReason.Store(int32(NeverRan))

	mem, err := memory.NewPlain(MEMSPACE_SIZE)
	if err != nil {
		return nil, err
	}

	if p.memory, err = memory.NewSpace(mem, MEMSPACE_SIZE); err != nil {
		return nil, err
	}

	// Backed by 64K so the extended port space can be enabled without
	// replacing the store.
	ports, err := memory.NewPlain(PORTSPACE_EXT_SIZE)
	if err != nil {
		return nil, err
	}

	if p.ports, err = memory.NewSpace(ports, PORTSPACE_SIZE); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Processor) State() State {
	return State(p.state.Load())
}

// StopReason is NotApplicable while the processor is running.
func (p *Processor) StopReason() StopReason {
	return StopReason(p.stopReason.Load())
}

func (p *Processor) Registers() *registers.Bank {
	return p.regs
}

func (p *Processor) SetRegisters(regs *registers.Bank) error {
	if regs == nil {
		return fmt.Errorf("%w: registers", ErrNilArgument)
	}

	p.regs = regs
	return nil
}

func (p *Processor) Memory() *memory.Space {
	return p.memory
}

func (p *Processor) SetMemory(store memory.Memory) error {
	if store == nil {
		return fmt.Errorf("%w: memory", ErrNilArgument)
	}

	return p.memory.SetStore(store)
}

func (p *Processor) Ports() *memory.Space {
	return p.ports
}

func (p *Processor) SetPorts(store memory.Memory) error {
	if store == nil {
		return fmt.Errorf("%w: ports", ErrNilArgument)
	}

	return p.ports.SetStore(store)
}

func (p *Processor) InstructionExecutor() InstructionExecutor {
	return p.executor
}

func (p *Processor) SetInstructionExecutor(executor InstructionExecutor) error {
	if executor == nil {
		return fmt.Errorf("%w: instruction executor", ErrNilArgument)
	}

	p.executor = executor
	return nil
}

func (p *Processor) ClockSynchronizer() ClockSynchronizer {
	return p.clock
}

func (p *Processor) SetClockSynchronizer(sync ClockSynchronizer) {
	p.clock = sync

	if sync != nil {
		sync.SetFrequency(p.mhz * p.speedFactor)
	}
}

func (p *Processor) ClockFrequency() float64 {
	return p.mhz
}

func (p *Processor) SetClockFrequency(mhz float64) error {
	if err := p.setEffectiveFrequency(mhz, p.speedFactor); err != nil {
		return err
	}

	p.mhz = mhz
	return nil
}

func (p *Processor) ClockSpeedFactor() float64 {
	return p.speedFactor
}

func (p *Processor) SetClockSpeedFactor(factor float64) error {
	if err := p.setEffectiveFrequency(p.mhz, factor); err != nil {
		return err
	}

	p.speedFactor = factor
	return nil
}

func (p *Processor) setEffectiveFrequency(mhz, factor float64) error {
	effective := mhz * factor

	if effective < MIN_EFFECTIVE_MHZ || effective > MAX_EFFECTIVE_MHZ {
		return fmt.Errorf(
			"%w: %g MHz not in [%g, %g]",
			ErrInvalidClockFrequency,
			effective,
			MIN_EFFECTIVE_MHZ,
			MAX_EFFECTIVE_MHZ,
		)
	}

	if p.clock != nil {
		p.clock.SetFrequency(effective)
	}

	return nil
}

func (p *Processor) AutoStopOnDiPlusHalt() bool {
	return p.autoStopOnDiPlusHalt
}

func (p *Processor) SetAutoStopOnDiPlusHalt(value bool) {
	p.autoStopOnDiPlusHalt = value
}

func (p *Processor) AutoStopOnRetWithStackEmpty() bool {
	return p.autoStopOnRetWithStackEmpty
}

func (p *Processor) SetAutoStopOnRetWithStackEmpty(value bool) {
	p.autoStopOnRetWithStackEmpty = value
}

func (p *Processor) SetMemoryAccessMode(start, length int, mode memory.AccessMode) error {
	return p.memory.SetMode(start, length, mode)
}

func (p *Processor) MemoryAccessMode(addr uint16) memory.AccessMode {
	mode, _ := p.memory.Mode(int(addr))
	return mode
}

func (p *Processor) SetPortAccessMode(start, length int, mode memory.AccessMode) error {
	return p.ports.SetMode(start, length, mode)
}

func (p *Processor) PortAccessMode(port uint16) (memory.AccessMode, error) {
	return p.ports.Mode(int(port))
}

func (p *Processor) SetMemoryWaitStatesForM1(start, length int, count byte) error {
	return p.memory.SetM1WaitStates(start, length, count)
}

func (p *Processor) SetMemoryWaitStatesForNonM1(start, length int, count byte) error {
	return p.memory.SetWaitStates(start, length, count)
}

func (p *Processor) SetPortWaitStates(start, length int, count byte) error {
	return p.ports.SetWaitStates(start, length, count)
}

func (p *Processor) UseExtendedPorts() bool {
	return p.extendedPorts
}

// SetUseExtendedPorts switches between the 256 and 65536 port spaces. The
// settings of ports 0x00 to 0xFF are kept.
func (p *Processor) SetUseExtendedPorts(value bool) error {
	if value == p.extendedPorts {
		return nil
	}

	size := PORTSPACE_SIZE
	if value {
		size = PORTSPACE_EXT_SIZE
	}

	if err := p.ports.Resize(size); err != nil {
		return err
	}

	p.extendedPorts = value
	return nil
}

// RegisterInterruptSource ignores sources that are already registered.
func (p *Processor) RegisterInterruptSource(source InterruptSource) error {
	if source == nil {
		return fmt.Errorf("%w: interrupt source", ErrNilArgument)
	}

	for _, registered := range p.sources {
		if registered == source {
			return nil
		}
	}

	p.sources = append(p.sources, source)
	return nil
}

func (p *Processor) UnregisterInterruptSource(source InterruptSource) {
	for i, registered := range p.sources {
		if registered == source {
			p.sources = append(p.sources[:i:i], p.sources[i+1:]...)
			return
		}
	}
}

func (p *Processor) UnregisterAllInterruptSources() {
	p.sources = nil
}

func (p *Processor) InterruptSources() []InterruptSource {
	return append([]InterruptSource(nil), p.sources...)
}

func (p *Processor) InterruptMode() byte {
	return p.interruptMode
}

func (p *Processor) SetInterruptMode(mode byte) error {
	if mode > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidInterruptMode, mode)
	}

	p.interruptMode = mode
	return nil
}

func (p *Processor) IsHalted() bool {
	return p.halted
}

// StartOfStack is the SP value a RET must find for the stack to be
// considered empty. It is set on reset and by LD SP instructions.
func (p *Processor) StartOfStack() uint16 {
	return p.startOfStack
}

func (p *Processor) SetStartOfStack(sp uint16) {
	p.startOfStack = sp
}

func (p *Processor) TStatesSinceStart() uint64 {
	return p.tStatesSinceStart
}

func (p *Processor) TStatesSinceReset() uint64 {
	return p.tStatesSinceReset
}

// Reset puts the processor in its power-on state. Memory is not cleared.
func (p *Processor) Reset() {
	p.regs.IFF1 = encoding.Off
	p.regs.IFF2 = encoding.Off
	p.regs.PC = 0x0000
	p.regs.AF = 0xFFFF
	p.regs.SP = 0xFFFF

	p.interruptMode = 0
	p.nmiPending = false
	p.halted = false
	p.lastWasEiOrDi = false
	p.ctx.dropPeeked()

	p.tStatesSinceReset = 0
	p.startOfStack = p.regs.SP
}

// RequestStop asks the loop to exit at its next checkpoint. It is safe to
// call from any goroutine.
func (p *Processor) RequestStop(isPause bool) {
	reason := StopInvoked
	if isPause {
		reason = PauseInvoked
	}

	p.stopRequest.Store(int32(reason))
}
