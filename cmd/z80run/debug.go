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
	"bufio"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lassandro/goz80/pkg/debugger"
	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/registers"
)

var lastcmd []string
var stepping bool

// resolve reads an address as hex, or as a label when a symbol table is
// loaded.
func resolve(dbg *debugger.Debugger, arg string) (uint16, error) {
	if addr, ok := dbg.Symbols.Address(arg); ok {
		return addr, nil
	}

	return encoding.DecodeHex(arg)
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [0x####|label]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		addr, err := resolve(dbg, args[0])
		if err != nil {
			log.Println(err)
			return
		}

		for _, breakpoint := range dbg.Breakpoints {
			if breakpoint.Addr == addr {
				return
			}
		}

		dbg.Breakpoints = append(dbg.Breakpoints, debugger.Breakpoint{Addr: addr})
		fmt.Printf("Breakpoint added [%#04x] %s\n", addr, dbg.Symbols.Symbolize(addr))

	case "l", "ls", "list":
		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(dbg.Breakpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: %%#04x %%s\n", int64(digits)+1)
		}

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(fmtstring, i, breakpoint.Addr, dbg.Symbols.Symbolize(breakpoint.Addr))
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Println(err)
			return
		}

		if i < 0 || i >= int64(len(dbg.Breakpoints)) {
			log.Println("Invalid breakpoint number")
			return
		}

		dbg.Breakpoints = append(dbg.Breakpoints[:i], dbg.Breakpoints[i+1:]...)
		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		log.Printf("break: '%s' is not a valid command\n", cmd)
	}
}

func watchName(wtype debugger.WatchpointType) string {
	switch wtype {
	case debugger.ReadWatch:
		return "read"
	case debugger.WriteWatch:
		return "write"
	default:
		return "readwrite"
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|rm|clear]"

	if len(args) == 0 {
		log.Println(usage)
		return
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [0x####|label] [read|write|readwrite]"

		if len(args) != 2 {
			log.Println(usage)
			return
		}

		addr, err := resolve(dbg, args[0])
		if err != nil {
			log.Println(err)
			return
		}

		var wtype debugger.WatchpointType

		switch args[1] {
		case "r", "read":
			wtype = debugger.ReadWatch
		case "w", "write":
			wtype = debugger.WriteWatch
		case "rw", "readwrite":
			wtype = debugger.ReadWriteWatch
		default:
			log.Println(usage)
			return
		}

		for _, watchpoint := range dbg.Watchpoints {
			if watchpoint.Addr == addr && watchpoint.Type == wtype {
				return
			}
		}

		dbg.Watchpoints = append(
			dbg.Watchpoints,
			debugger.Watchpoint{Addr: addr, Type: wtype},
		)

		fmt.Printf("Watchpoint added [%#04x] (%s)\n", addr, watchName(wtype))

	case "l", "ls", "list":
		var fmtstring string
		{
			digits := math.Floor(math.Log10(float64(len(dbg.Watchpoints) + 1)))
			fmtstring = fmt.Sprintf("#%%0%dd: %%#04x %%s\n", int64(digits)+1)
		}

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(fmtstring, i, watchpoint.Addr, watchName(watchpoint.Type))
		}

	case "r", "rm", "remove":
		const usage = "watch rm [#]"

		if len(args) != 1 {
			log.Println(usage)
			return
		}

		i, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			log.Println(err)
			return
		}

		if i < 0 || i >= int64(len(dbg.Watchpoints)) {
			log.Println("Invalid watchpoint number")
			return
		}

		dbg.Watchpoints = append(dbg.Watchpoints[:i], dbg.Watchpoints[i+1:]...)
		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		log.Printf("watch: '%s' is not a valid command\n", cmd)
	}
}

// setRegister writes a register pair, an 8-bit register or an interrupt
// flip-flop.
func setRegister(regs *registers.Bank, name string, value uint16) bool {
	pairs := map[string]*uint16{
		"AF": &regs.AF,
		"BC": &regs.BC,
		"DE": &regs.DE,
		"HL": &regs.HL,
		"IX": &regs.IX,
		"IY": &regs.IY,
		"SP": &regs.SP,
		"PC": &regs.PC,
	}

	if pair, ok := pairs[name]; ok {
		*pair = value
		return true
	}

	halves := map[string]func(byte){
		"A": regs.SetA,
		"F": regs.SetF,
		"B": regs.SetB,
		"C": regs.SetC,
		"D": regs.SetD,
		"E": regs.SetE,
		"H": regs.SetH,
		"L": regs.SetL,
		"I": regs.SetI,
		"R": regs.SetR,
	}

	if set, ok := halves[name]; ok && value <= 0xFF {
		set(byte(value))
		return true
	}

	iffs := map[string]*encoding.Bit{
		"IFF1": &regs.IFF1,
		"IFF2": &regs.IFF2,
	}

	if iff, ok := iffs[name]; ok && value <= 1 {
		*iff = encoding.BitOf(int(value))
		return true
	}

	return false
}

func debugReg(dbg *debugger.Debugger, p *machine.Processor, args []string) {
	const usage = "register [name 0x####]"

	if len(args) == 0 {
		dbg.PrintRegisters(p)
		return
	}

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	value, err := encoding.DecodeHex(args[1])
	if err != nil {
		log.Println(err)
		return
	}

	name := strings.ToUpper(args[0])

	if !setRegister(p.Registers(), name, value) {
		log.Println("Invalid register")
		return
	}

	fmt.Printf("\033[1m%s:\033[0m %#04x\n", name, value)
}

func debugJump(dbg *debugger.Debugger, p *machine.Processor, args []string) {
	const usage = "jump [0x####|label]"

	if len(args) != 1 {
		fmt.Println(usage)
		return
	}

	addr, err := resolve(dbg, args[0])
	if err != nil {
		fmt.Printf("Unable to find '%s'\n", args[0])
		return
	}

	p.Registers().PC = addr
	fmt.Printf(
		"\033[1mPC:\033[0m %#04x \033[1;30m(%s)\033[0m\n",
		addr,
		dbg.Symbols.Symbolize(addr),
	)
}

func debugMemory(dbg *debugger.Debugger, p *machine.Processor, args []string) {
	const usage = "memory [0x####|label|#count] [#count]"

	if len(args) > 2 {
		log.Println(usage)
		return
	}

	var size uint16 = 1
	var addr uint16 = p.Registers().PC
	var err error

	if len(args) > 0 {
		addr, err = resolve(dbg, args[0])

		if err != nil {
			var value int
			value, err = encoding.DecodeInt(args[0])

			if err != nil {
				log.Println(err)
				return
			}

			addr = p.Registers().PC
			size = uint16(value)
		}
	}

	if len(args) > 1 {
		value, err := encoding.DecodeInt(args[1])

		if err != nil {
			log.Println(err)
			return
		}

		size = uint16(value)
	}

	dbg.PrintMem(p, addr, size)
}

func debugSet(dbg *debugger.Debugger, p *machine.Processor, args []string) {
	const usage = "set [0x####|label] [0x##]"

	if len(args) != 2 {
		log.Println(usage)
		return
	}

	addr, err := resolve(dbg, args[0])
	if err != nil {
		log.Println(err)
		return
	}

	value, err := encoding.DecodeHex(args[1])
	if err != nil {
		log.Println(err)
		return
	}

	if value > 0xFF {
		log.Println(usage)
		return
	}

	if err := p.Memory().Store().Set(int(addr), byte(value)); err != nil {
		log.Println(err)
		return
	}

	dbg.PrintMem(p, addr, 1)
}

func debugREPL(dbg *debugger.Debugger, p *machine.Processor) {
	if err := exitRawTerm(); err != nil {
		log.Println(err)
	}

	defer func() {
		if err := enterRawTerm(); err != nil {
			log.Println(err)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("\033[1;30m(dbg)\033[0m ")

		if !scanner.Scan() {
			fmt.Println()
			shouldexit = true
			p.RequestStop(false)
			return
		}

		args := strings.Fields(scanner.Text())

		if len(args) == 0 {
			if len(lastcmd) == 0 {
				continue
			}
			args = lastcmd
		} else {
			lastcmd = make([]string, len(args))
			copy(lastcmd, args)
		}

		cmd := args[0]
		args = args[1:]

		switch cmd {
		case "b", "bp", "break", "breakpoint":
			debugBreak(dbg, args)

		case "w", "wp", "watch", "watchpoint":
			debugWatch(dbg, args)

		case "r", "reg", "register", "registers":
			debugReg(dbg, p, args)

		case "l", "label", "labels":
			dbg.PrintLabels()

		case "j", "jmp", "jump":
			debugJump(dbg, p, args)

		case "m", "mem", "memory":
			debugMemory(dbg, p, args)

		case "set":
			debugSet(dbg, p, args)

		case "c", "continue":
			return

		case "n", "next":
			stepping = true
			dbg.Break.Store(true)
			return

		case "q", "quit", "exit":
			shouldexit = true
			p.RequestStop(false)
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			shouldreset = true
			stepping = true
			dbg.Break.Store(true)
			p.RequestStop(false)
			return

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func printLocation(dbg *debugger.Debugger, p *machine.Processor) {
	pc := p.Registers().PC
	fmt.Printf("\033[1m[%#04x]\033[0m %s\n", pc, dbg.Symbols.Symbolize(pc))
}

func handleBreak(dbg *debugger.Debugger, p *machine.Processor) {
	if !stepping {
		fmt.Println()
		fmt.Println("Program stopped")
	}

	stepping = false
	printLocation(dbg, p)
	debugREPL(dbg, p)
}

func handleRead(addr uint16, dbg *debugger.Debugger, p *machine.Processor) {
	fmt.Println()
	fmt.Println("Program stopped on read")
	printLocation(dbg, p)
	dbg.PrintMem(p, addr, 1)
	debugREPL(dbg, p)
}

func handleWrite(addr uint16, dbg *debugger.Debugger, p *machine.Processor) {
	fmt.Println()
	fmt.Println("Program stopped on write")
	printLocation(dbg, p)
	dbg.PrintMem(p, addr, 1)
	debugREPL(dbg, p)
}
