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
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/lassandro/goz80/pkg/assembler"
	"github.com/lassandro/goz80/pkg/encoding"
	"github.com/lassandro/goz80/pkg/snapshot"
)

var helpvar bool
var debugvar bool
var snavar bool
var outvar string
var entryvar string
var fromvar string
var tovar string

const usage = "z80asm [-debug] [-sna] [-out outfile] [-from 0x####] [-to 0x####] filename"

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.z80db'",
	)
	flag.BoolVar(
		&snavar, "sna", false,
		"Writes a ZX Spectrum .sna snapshot instead of a flat binary",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.StringVar(
		&entryvar, "entry", "",
		"Label where a snapshot resumes, defaults to the origin",
	)
	flag.StringVar(
		&fromvar, "from", fmt.Sprintf("%#04x", assembler.DEFAULT_ORG),
		"First address written to a flat binary",
	)
	flag.StringVar(
		&tovar, "to", "",
		"Address after the last one written to a flat binary, "+
			"defaults to just past the last non-zero byte",
	)
}

// binaryRange picks the part of ram written to a flat binary.
func binaryRange(ram []byte) (int, int, error) {
	from, err := encoding.DecodeHex(fromvar)
	if err != nil {
		return 0, 0, err
	}

	to := len(ram)

	if tovar != "" {
		end, err := encoding.DecodeHex(tovar)
		if err != nil {
			return 0, 0, err
		}

		to = int(end)
	} else {
		for to > int(from) && ram[to-1] == 0 {
			to--
		}
	}

	if to < int(from) {
		return 0, 0, fmt.Errorf("Empty output range %#04x-%#04x", from, to)
	}

	return int(from), to, nil
}

func z80asm() int {
	flag.Parse()

	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	ext := ".bin"
	if snavar {
		ext = ".sna"
	}

	var program *assembler.Program

	if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 && len(args) == 0 {
		log.SetPrefix("\033[1m<stdin>:\033[0m ")

		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Println(err)
			return 1
		}

		if program, err = assembler.AssembleSource(string(source), entryvar); err != nil {
			log.Println(err)
			return 1
		}

		if outvar == "" {
			outvar = "out" + ext
		}
	} else {
		if len(args) != 1 {
			log.Println(usage)
			return 1
		}

		filename := filepath.Base(args[0])
		log.SetPrefix(fmt.Sprintf("\033[1m%s:\033[0m ", filename))

		if stat, err := os.Stat(args[0]); err != nil {
			log.Println(err)
			return 1
		} else if stat.IsDir() {
			log.Printf("%s is not a valid Z80 assembly file", filename)
			return 1
		}

		var err error
		if program, err = assembler.AssembleFile(args[0], entryvar); err != nil {
			log.Println(err)
			return 1
		}

		if program.Symbols.Source, err = filepath.Abs(args[0]); err != nil {
			log.Println(err)
			program.Symbols.Source = ""
		}

		if outvar == "" {
			outvar = strings.TrimSuffix(filename, filepath.Ext(filename)) + ext
		}
	}

	if snavar {
		if err := snapshot.SaveProgram(outvar, program); err != nil {
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}
	} else {
		from, to, err := binaryRange(program.RAM)
		if err != nil {
			log.Println(err)
			return 1
		}

		if err := os.WriteFile(outvar, program.RAM[from:to], 0666); err != nil {
			log.Println("Error writing output file")
			log.Println(err)
			return 1
		}
	}

	if debugvar {
		filename := strings.TrimSuffix(outvar, filepath.Ext(outvar)) + ".z80db"

		file, err := os.Create(filename)
		if err != nil {
			log.Println("Error creating symbol table")
			log.Println(err)
			return 1
		}

		defer file.Close()

		if err := gob.NewEncoder(file).Encode(program.Symbols); err != nil {
			log.Println("Error writing symbol table")
			log.Println(err)
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(z80asm())
}
