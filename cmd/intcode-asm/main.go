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
	"encoding/gob"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lassandro/intcode/pkg/assembler"
	"github.com/lassandro/intcode/pkg/encoding"
)

var helpvar bool
var debugvar bool
var outvar string

const usage = "intcode-asm [-debug] [-out outfile] filename"

var underline = color.New(color.FgRed)

func init() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:          os.Stderr,
		NoColor:      !isatty.IsTerminal(os.Stderr.Fd()),
		PartsExclude: []string{zerolog.TimestampFieldName},
	}).With().Str("app", "intcode-asm").Logger().Level(zerolog.InfoLevel)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(
		&debugvar, "debug", false,
		"Specifies whether to generate debugging information as a symbol "+
			"table. The table will use the output filename with extension "+
			"'.icdb'",
	)
	flag.StringVar(
		&outvar, "out", "",
		"Specifies a precise name for the output file, "+
			"overriding the default means of determining it",
	)
	flag.Parse()
}

// Prints an assembler error followed by its source line with the offending
// token underlined
func printError(input io.ReadSeeker, err error) {
	tokenErr, ok := err.(assembler.TokenError)

	if !ok || input == nil {
		log.Error().Msg(err.Error())
		return
	}

	cursor := tokenErr.GetPosition()

	if _, err := input.Seek(cursor.LineByte, io.SeekStart); err != nil {
		log.Error().Msg(err.Error())
		return
	}

	line, _ := bufio.NewReader(input).ReadString('\n')
	line = strings.TrimRight(line, "\r\n")

	size := int(cursor.Size)
	if size < 1 {
		size = 1
	}

	log.Error().Msg(err.Error())
	fmt.Fprintln(os.Stderr, line)
	underline.Fprintf(
		os.Stderr,
		"%s^%s\n",
		strings.Repeat(" ", int(cursor.Byte-cursor.LineByte)),
		strings.Repeat("~", size-1),
	)
}

func intcodeAsm() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	args := flag.Args()

	var infile string
	var input io.ReadSeeker

	if stat, _ := os.Stdin.Stat(); len(args) == 0 && stat.Mode()&os.ModeCharDevice == 0 {
		log.Logger = log.With().Str("file", "<stdin>").Logger()

		if outvar == "" {
			outvar = "out.txt"
		}
	} else {
		if len(args) != 1 {
			log.Error().Msg(usage)
			return 1
		}

		file, err := os.Open(args[0])

		if err != nil {
			log.Error().Err(err).Send()
			return 1
		}

		defer file.Close()

		filename := filepath.Base(file.Name())

		if stat, err := file.Stat(); err != nil {
			log.Error().Err(err).Send()
			return 1
		} else if stat.IsDir() {
			log.Error().Msgf("%s is not a valid Intcode assembly file", filename)
			return 1
		}

		input = file
		infile = file.Name()
		log.Logger = log.With().Str("file", filename).Logger()

		if outvar == "" {
			outvar = strings.TrimSuffix(file.Name(), filepath.Ext(filename)) + ".txt"
		}
	}

	var symtable *assembler.SymTable

	if debugvar {
		symtable = assembler.NewSymTable("")

		if infile != "" {
			if source, err := filepath.Abs(infile); err == nil {
				symtable.Source = source
			} else {
				log.Warn().Err(err).Msg("unable to resolve source path")
			}
		}
	}

	var reader io.Reader = os.Stdin
	if input != nil {
		reader = input
	}

	result, errs := assembler.Assemble(reader, symtable)

	if len(errs) > 0 {
		for _, err := range errs {
			printError(input, err)
		}

		return 1
	}

	text := encoding.FormatProgram(result) + "\n"

	if err := os.WriteFile(outvar, []byte(text), 0666); err != nil {
		log.Error().Err(err).Msg("error writing output file")
		return 1
	}

	log.Debug().Str("out", outvar).Int("words", len(result)).Msg("assembled")

	if debugvar {
		filename := strings.TrimSuffix(outvar, filepath.Ext(outvar)) + ".icdb"

		file, err := os.Create(filename)

		if err != nil {
			log.Error().Err(err).Msg("error creating symbol table")
			return 1
		}

		defer file.Close()

		if err := gob.NewEncoder(file).Encode(symtable); err != nil {
			log.Error().Err(err).Msg("error writing symbol table")
			return 1
		}
	}

	return 0
}

func main() {
	os.Exit(intcodeAsm())
}
