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
	"errors"
	"fmt"

	"github.com/lassandro/goz80/pkg/registers"
)

var (
	ErrInvalidState          = errors.New("Processor is already running")
	ErrInvalidInterruptMode  = errors.New("Interrupt mode must be 0, 1 or 2")
	ErrInvalidClockFrequency = errors.New("Effective clock frequency out of range")
	ErrNilArgument           = errors.New("Argument cannot be nil")
	ErrFetchNotFinished      = errors.New("Executor did not signal the end of the fetch")
	ErrNoDataBusValue        = errors.New("No value on the data bus in interrupt mode 2")
	ErrAgentMisuse           = errors.New("Invalid agent call")
	ErrExecutorFault         = errors.New("Instruction execution failed")
)

type State int32

const (
	Stopped State = iota
	Paused
	Running
	ExecutingOneInstruction
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Paused:
		return "Paused"
	case Running:
		return "Running"
	case ExecutingOneInstruction:
		return "ExecutingOneInstruction"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type StopReason int32

const (
	NotApplicable StopReason = iota
	NeverRan
	StopInvoked
	PauseInvoked
	ExecuteNextInstructionInvoked
	DiPlusHalt
	RetWithStackEmpty
	ExceptionThrown
)

func (r StopReason) String() string {
	switch r {
	case NotApplicable:
		return "NotApplicable"
	case NeverRan:
		return "NeverRan"
	case StopInvoked:
		return "StopInvoked"
	case PauseInvoked:
		return "PauseInvoked"
	case ExecuteNextInstructionInvoked:
		return "ExecuteNextInstructionInvoked"
	case DiPlusHalt:
		return "DiPlusHalt"
	case RetWithStackEmpty:
		return "RetWithStackEmpty"
	case ExceptionThrown:
		return "ExceptionThrown"
	default:
		return fmt.Sprintf("StopReason(%d)", int32(r))
	}
}

// FetchInfo describes the instruction whose opcode bytes have just been
// fully fetched.
type FetchInfo struct {
	IsRet    bool
	IsLdSp   bool
	IsHalt   bool
	IsEiOrDi bool
}

type Stopper interface {
	Stop(isPause bool)
}

// Agent is the view of the processor handed to an InstructionExecutor for
// the duration of one Execute call. Faults are raised as panics carrying an
// error and are reported by the processor's run loop.
type Agent interface {
	Stopper

	// FetchNextOpcode reads the byte at PC as part of the current opcode
	// and increments PC. Only valid before FetchFinished.
	FetchNextOpcode() byte

	// PeekNextOpcode reads the byte at PC without consuming it.
	PeekNextOpcode() byte

	// FetchFinished must be called once every opcode byte has been
	// fetched. It returns false if the instruction has been cancelled,
	// in which case it must not be executed.
	FetchFinished(info FetchInfo) bool

	ReadMemory(addr uint16) byte
	WriteMemory(addr uint16, value byte)
	ReadPort(port byte) byte
	WritePort(port byte, value byte)

	Registers() *registers.Bank
	SetInterruptMode(mode byte) error
}

// ExtendedPortsAgent exposes 16-bit port addressing. The high byte is
// ignored unless the processor uses an extended port space.
type ExtendedPortsAgent interface {
	Agent

	ReadPortExtended(low, high byte) byte
	WritePortExtended(low, high, value byte)
}

type InstructionExecutor interface {
	// Execute runs the instruction starting with opcode, which has
	// already been fetched, and returns its T-states excluding wait states.
	Execute(agent Agent, opcode byte) (int, error)
}

type InterruptSource interface {
	IntLineActive() bool

	// ValueOnDataBus is consulted in interrupt modes 0 and 2.
	ValueOnDataBus() (byte, bool)

	// NMIPulsed reports a pending NMI edge and clears it.
	NMIPulsed() bool
}

type ClockSynchronizer interface {
	Start()
	Stop()
	TryWait(cycles int)
	SetFrequency(mhz float64)
}
