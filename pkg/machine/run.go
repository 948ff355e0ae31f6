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

	"github.com/lassandro/goz80/pkg/encoding"
)

// Start resets the processor and runs instructions until a stop condition
// is met. The returned error is non-nil only when the stop reason is
// ExceptionThrown.
func (p *Processor) Start() error {
	if err := p.enter(Running); err != nil {
		return err
	}

	p.Reset()
	p.tStatesSinceStart = 0

	_, err := p.loop(false)
	return err
}

// Continue resumes execution from the current state without a reset.
func (p *Processor) Continue() error {
	if err := p.enter(Running); err != nil {
		return err
	}

	_, err := p.loop(false)
	return err
}

// ExecuteNextInstruction runs a single loop iteration, which is either one
// instruction or the acceptance of a pending interrupt, and returns the
// T-states it took. Auto-stop conditions are not checked.
func (p *Processor) ExecuteNextInstruction() (int, error) {
	if err := p.enter(ExecutingOneInstruction); err != nil {
		return 0, err
	}

	return p.loop(true)
}

func (p *Processor) enter(state State) error {
	for {
		current := State(p.state.Load())

		if current == Running || current == ExecutingOneInstruction {
			return ErrInvalidState
		}

		if p.executor == nil {
			return fmt.Errorf("%w: instruction executor", ErrNilArgument)
		}

		if p.state.CompareAndSwap(int32(current), int32(state)) {
			p.stopReason.Store(int32(NotApplicable))
			p.stopRequest.Store(int32(NotApplicable))
			p.logger.Debug("processor entered state", slog.String("state", state.String()))
			return nil
		}
	}
}

func (p *Processor) loop(single bool) (tstates int, err error) {
	reason := NotApplicable

	defer func() {
		p.active = false

		if r := recover(); r != nil {
			err = p.fault(r)
			reason = ExceptionThrown
		} else if err != nil {
			reason = ExceptionThrown
		}

		if p.clock != nil {
			p.clock.Stop()
		}

		p.exit(reason, err)
	}()

	if p.clock != nil {
		p.clock.Start()
	}

	p.active = true

	for {
		p.ctx.reset()

		beforeFetch := BeforeFetchEvent{Stopper: stopper{p}}
		p.hooks.beforeFetch.fire(&beforeFetch)

		if reason = p.pendingStop(); reason != NotApplicable {
			return 0, nil
		}

		tstates, err = p.step(beforeFetch.LocalState, single)
		if err != nil {
			return tstates, err
		}

		if single {
			if reason = p.pendingStop(); reason == NotApplicable {
				reason = ExecuteNextInstructionInvoked
			}

			return tstates, nil
		}

		if p.clock != nil {
			p.clock.TryWait(tstates)
		}

		if reason = p.pendingStop(); reason != NotApplicable {
			return tstates, nil
		}
	}
}

// step services a pending interrupt or runs one instruction.
func (p *Processor) step(localState any, single bool) (int, error) {
	base, serviced, err := p.acceptInterrupt()
	if err != nil {
		return 0, err
	}

	if !serviced {
		if base, err = p.executeInstruction(localState, single); err != nil {
			return 0, err
		}
	}

	total := base + p.ctx.waitStates
	p.tStatesSinceStart += uint64(total)
	p.tStatesSinceReset += uint64(total)
	return total, nil
}

func (p *Processor) executeInstruction(localState any, single bool) (int, error) {
	p.ctx.localState = localState

	var opcode byte
	if p.halted {
		opcode = OP_NOP
		p.ctx.opcode = append(p.ctx.opcode, opcode)
	} else {
		opcode = p.fetchOpcode()
	}

	base, err := p.executor.Execute(agent{p}, opcode)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutorFault, err)
	}

	if !p.ctx.fetchComplete {
		return 0, fmt.Errorf(
			"%w: opcode % x at %#04x",
			ErrFetchNotFinished,
			p.ctx.opcode,
			p.regs.PC-uint16(len(p.ctx.opcode)),
		)
	}

	info := p.ctx.info
	if p.ctx.cancelled {
		info = FetchInfo{}
	}

	opcodeBytes := p.ctx.opcodeBytes()

	afterExecution := AfterExecutionEvent{
		Opcode:     opcodeBytes,
		TStates:    base + p.ctx.waitStates,
		Stopper:    stopper{p},
		LocalState: p.ctx.localState,
	}
	p.hooks.afterExecution.fire(&afterExecution)
	p.fireInterruptReturn(opcodeBytes, true)

	if !single {
		if p.autoStopOnDiPlusHalt && info.IsHalt && p.regs.IFF1 == encoding.Off {
			p.ctx.stop(DiPlusHalt)
		}

		if p.autoStopOnRetWithStackEmpty && info.IsRet &&
			p.ctx.spAfterFetch == p.startOfStack {
			p.ctx.stop(RetWithStackEmpty)
		}
	}

	if info.IsLdSp {
		p.startOfStack = p.regs.SP
	}

	if info.IsHalt {
		p.halted = true
	}

	p.lastWasEiOrDi = info.IsEiOrDi
	return base, nil
}

// acceptInterrupt services a pending NMI or maskable interrupt. Nothing is
// accepted right after EI or DI.
func (p *Processor) acceptInterrupt() (int, bool, error) {
	for _, source := range p.sources {
		if source.NMIPulsed() {
			p.nmiPending = true
		}
	}

	if p.lastWasEiOrDi {
		return 0, false, nil
	}

	if p.nmiPending {
		p.nmiPending = false
		p.halted = false
		p.regs.IFF1 = encoding.Off
		p.call(ADDR_NMI)

		p.logger.Debug("accepted NMI", slog.Int("pc", int(p.regs.PC)))
		p.hooks.interrupt.fire(NonMaskable)
		return TSTATES_NMI, true, nil
	}

	if p.regs.IFF1 == encoding.Off {
		return 0, false, nil
	}

	var active InterruptSource
	for _, source := range p.sources {
		if source.IntLineActive() {
			active = source
			break
		}
	}

	if active == nil {
		return 0, false, nil
	}

	p.regs.IFF1 = encoding.Off
	p.regs.IFF2 = encoding.Off
	p.halted = false

	p.logger.Debug(
		"accepted maskable interrupt",
		slog.Int("mode", int(p.interruptMode)),
		slog.Int("pc", int(p.regs.PC)),
	)

	switch p.interruptMode {
	case 0:
		opcode, ok := active.ValueOnDataBus()
		if !ok {
			opcode = OP_RST38
		}

		p.hooks.interrupt.fire(Maskable)

		p.ctx.inInterrupt = true
		p.ctx.opcode = append(p.ctx.opcode, opcode)

		if _, err := p.executor.Execute(agent{p}, opcode); err != nil {
			return 0, false, fmt.Errorf("%w: %w", ErrExecutorFault, err)
		}

		return TSTATES_IM0, true, nil

	case 1:
		p.call(ADDR_RST38)
		p.hooks.interrupt.fire(Maskable)
		return TSTATES_IM1, true, nil

	default:
		vector, ok := active.ValueOnDataBus()
		if !ok {
			return 0, false, ErrNoDataBusValue
		}

		pointer := encoding.MakeWord(vector, p.regs.I())
		target := encoding.MakeWord(
			p.readMemory(pointer),
			p.readMemory(pointer+1),
		)

		p.call(target)
		p.hooks.interrupt.fire(Maskable)
		return TSTATES_IM2, true, nil
	}
}

func (p *Processor) call(addr uint16) {
	sp := p.regs.SP - 1
	p.writeMemory(sp, encoding.HighByte(p.regs.PC))
	sp--
	p.writeMemory(sp, encoding.LowByte(p.regs.PC))

	p.regs.SP = sp
	p.regs.PC = addr
}

func (p *Processor) fireInterruptReturn(opcode []byte, after bool) {
	if len(opcode) < 2 || opcode[0] != OP_PREFIX_ED {
		return
	}

	switch opcode[1] & OP_RET_MIRROR_MASK {
	case OP_RETI:
		p.hooks.interruptReturn.fire(InterruptReturnEvent{Reti, after})
	case OP_RETN:
		p.hooks.interruptReturn.fire(InterruptReturnEvent{Retn, after})
	}
}

func (p *Processor) pendingStop() StopReason {
	if p.ctx.stopReason != NotApplicable {
		return p.ctx.stopReason
	}

	return StopReason(p.stopRequest.Swap(int32(NotApplicable)))
}

func (p *Processor) fault(r any) error {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("%v", r)
	}

	return fmt.Errorf("%w at %#04x", err, p.regs.PC)
}

func (p *Processor) exit(reason StopReason, err error) {
	state := Stopped
	if reason == PauseInvoked {
		state = Paused
	}

	if err != nil {
		p.logger.Error("processor stopped on error", slog.String("error", err.Error()))
	} else {
		p.logger.Debug(
			"processor stopped",
			slog.String("reason", reason.String()),
			slog.Int("pc", int(p.regs.PC)),
		)
	}

	p.stopReason.Store(int32(reason))
	p.state.Store(int32(state))
}
