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
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/lassandro/goz80/pkg/assembler"
	"github.com/lassandro/goz80/pkg/debugger"
	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/executor"
	"github.com/lassandro/goz80/pkg/machine"
	"github.com/lassandro/goz80/pkg/script"
	"github.com/lassandro/goz80/pkg/snapshot"
)

var helpvar bool
var debugvar bool
var verbosevar bool
var asmvar bool
var turbovar bool
var extportsvar bool
var mhzvar float64
var orgvar string
var entryvar string
var scriptvar string
var snavar string
var consolevar string

var shouldexit bool
var shouldreset bool

const usage = "z80run [-debug] [-asm] [-org 0x####] [-script file.lua] filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(&verbosevar, "verbose", false, "Logs processor state changes to stderr")
	flag.BoolVar(
		&asmvar, "asm", false,
		"Treats the input as Z80 assembly source and assembles it before running",
	)
	flag.BoolVar(&turbovar, "turbo", false, "Runs as fast as possible instead of at -mhz")
	flag.BoolVar(&extportsvar, "extports", false, "Uses 16-bit port addresses")
	flag.Float64Var(&mhzvar, "mhz", machine.DEFAULT_MHZ, "Clock frequency in MHz")
	flag.StringVar(
		&orgvar, "org", fmt.Sprintf("%#04x", assembler.DEFAULT_ORG),
		"Load address of a binary input, which is also where execution starts",
	)
	flag.StringVar(
		&entryvar, "entry", "",
		"Label where execution starts when assembling, defaults to the origin",
	)
	flag.StringVar(&scriptvar, "script", "", "Lua script to load before running")
	flag.StringVar(&snavar, "sna", "", "Writes a .sna snapshot when the machine stops")
	flag.StringVar(
		&consolevar, "console-port", "0x01",
		"Data port of the console device, the status port is the one above",
	)
}

// loadImage returns the 64K memory image, the start address and the
// symbols of the program in filename.
func loadImage(filename string) ([]byte, uint16, *assembler.SymTable, error) {
	if asmvar {
		program, err := assembler.AssembleFile(filename, entryvar)
		if err != nil {
			return nil, 0, nil, err
		}

		return program.RAM, program.Entry, program.Symbols, nil
	}

	org, err := encoding.DecodeHex(orgvar)
	if err != nil {
		return nil, 0, nil, err
	}

	contents, err := os.ReadFile(filename)
	if err != nil {
		return nil, 0, nil, err
	}

	if int(org)+len(contents) > machine.MEMSPACE_SIZE {
		return nil, 0, nil, fmt.Errorf(
			"%s does not fit in memory at %#04x", filename, org,
		)
	}

	image := make([]byte, machine.MEMSPACE_SIZE)
	copy(image[org:], contents)

	var symbols *assembler.SymTable
	if debugvar {
		symbols = loadSymbols(filename)
	}

	return image, org, symbols, nil
}

// loadSymbols reads the table z80asm -debug writes next to a binary. A
// missing or broken table is logged and the debugger runs without labels.
func loadSymbols(filename string) *assembler.SymTable {
	filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".z80db"

	file, err := os.Open(filename)
	if err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil
	}

	defer file.Close()

	var symbols assembler.SymTable
	if err := gob.NewDecoder(file).Decode(&symbols); err != nil {
		log.Println("Error loading symbol file")
		log.Println(err)
		return nil
	}

	return &symbols
}

func z80run() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	image, entry, symbols, err := loadImage(args[0])
	if err != nil {
		log.Println(err)
		return 1
	}

	port, err := encoding.DecodeHex(consolevar)
	if err != nil {
		log.Println(err)
		return 1
	}

	if port > 0xFE {
		log.Printf("Console port %#04x leaves no room for the status port", port)
		return 1
	}

	level := slog.LevelWarn
	if verbosevar {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	p, err := machine.New(
		machine.WithExecutor(executor.New()),
		machine.WithClockFrequency(mhzvar),
		machine.WithLogger(logger),
	)
	if err != nil {
		log.Println(err)
		return 1
	}

	if turbovar {
		p.SetClockSynchronizer(nil)
	}

	if err := p.SetUseExtendedPorts(extportsvar); err != nil {
		log.Println(err)
		return 1
	}

	p.SetAutoStopOnRetWithStackEmpty(true)

	load := func() error {
		if err := p.Memory().Store().SetContents(0, image); err != nil {
			return err
		}

		p.Reset()
		p.Registers().PC = entry
		return nil
	}

	if err := load(); err != nil {
		log.Println(err)
		return 1
	}

	detachConsole := newConsole(byte(port), os.Stdin, os.Stdout).Attach(p)
	defer detachConsole()

	var engine *script.Engine

	if scriptvar != "" {
		engine = script.New(p, script.WithLogger(logger))
		defer engine.Close()

		if err := engine.DoFile(scriptvar); err != nil {
			log.Println(err)
			return 1
		}
	}

	var dbg *debugger.Debugger

	if debugvar {
		dbg = &debugger.Debugger{
			Symbols:     symbols,
			HandleBreak: handleBreak,
			HandleRead:  handleRead,
			HandleWrite: handleWrite,
		}

		detach := dbg.Attach(p)
		defer detach()

		dbg.Break.Store(true)
		stepping = true
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)

	go func() {
		for range c {
			if dbg != nil {
				fmt.Println()
				dbg.Break.Store(true)
			} else {
				p.RequestStop(false)
			}
		}
	}()

	if err := enterRawTerm(); err != nil {
		log.Println(err)
		return 1
	}

	defer exitRawTerm()

	status := 0

	for !shouldexit {
		if err := p.Continue(); err != nil {
			log.Println(err)
			status = 1
			break
		}

		if !shouldreset {
			break
		}

		shouldreset = false

		if err := load(); err != nil {
			log.Println(err)
			return 1
		}
	}

	if engine != nil && engine.Err() != nil {
		status = 1
	}

	logger.Debug(
		"machine stopped",
		slog.String("reason", p.StopReason().String()),
		slog.Uint64("tstates", p.TStatesSinceStart()),
	)

	if snavar != "" {
		if err := snapshot.Save(snavar, p); err != nil {
			log.Println(err)
			status = 1
		}
	}

	return status
}

func main() {
	os.Exit(z80run())
}
