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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lassandro/intcode/pkg/assembler"
	"github.com/lassandro/intcode/pkg/debugger"
	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
	"github.com/lassandro/intcode/pkg/profile"
)

var helpvar bool
var debugvar bool
var asciivar bool
var keysvar bool
var tracevar bool
var decompilevar bool
var dumpvar bool
var limitvar int64
var profilevar string
var inputvar string
var patchvar string

var shouldexit atomic.Bool

var stdin = bufio.NewReader(os.Stdin)

const usage = "intcode [-profile f] [-input 1,2] [-patch 0=2] [-ascii] " +
	"[-keys] [-trace] [-debug] [-decompile] [-dump] [-limit n] program.txt"

func init() {
	exe, _ := os.Executable()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:          os.Stderr,
		NoColor:      !isatty.IsTerminal(os.Stderr.Fd()),
		PartsExclude: []string{zerolog.TimestampFieldName},
	}).With().Str("app", filepath.Base(exe)).Logger().Level(zerolog.InfoLevel)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.BoolVar(&asciivar, "ascii", false, "Reads and writes ASCII characters")
	flag.BoolVar(&keysvar, "keys", false, "Feeds the profile keymap from a raw terminal")
	flag.BoolVar(&tracevar, "trace", false, "Logs every executed instruction")
	flag.BoolVar(&decompilevar, "decompile", false, "Prints a listing instead of running")
	flag.BoolVar(&dumpvar, "dump", false, "Prints the tape after the program halts")
	flag.Int64Var(&limitvar, "limit", 0, "Maximum number of tape cells")
	flag.StringVar(&profilevar, "profile", "", "Loads a TOML run profile")
	flag.StringVar(&inputvar, "input", "", "Comma separated input values fed before stdin")
	flag.StringVar(&patchvar, "patch", "", "Comma separated addr=value tape patches")
	flag.Parse()
}

// Settings after merging the profile with the flags that were set explicitly
type settings struct {
	program string
	input   []int64
	patches []profile.Patch
	ascii   bool
	trace   bool
	limit   int64
	idle    int64
	keymap  map[string]int64
}

func loadSettings() (*settings, error) {
	var s settings

	if profilevar != "" {
		p, err := profile.Load(profilevar)

		if err != nil {
			return nil, err
		}

		s.program = p.Program
		s.input = p.Input
		s.patches = p.Patches()
		s.ascii = p.ASCII
		s.trace = p.Trace
		s.limit = p.Limit
		s.idle = p.Idle
		s.keymap = p.Keymap()
	}

	var err error

	flag.Visit(func(f *flag.Flag) {
		if err != nil {
			return
		}

		switch f.Name {
		case "input":
			s.input, err = encoding.ParseProgram(inputvar)
		case "patch":
			var patches []profile.Patch
			patches, err = profile.ParsePatches(patchvar)
			s.patches = append(s.patches, patches...)
		case "ascii":
			s.ascii = asciivar
		case "trace":
			s.trace = tracevar
		case "limit":
			s.limit = limitvar
		}
	})

	if err != nil {
		return nil, err
	}

	if args := flag.Args(); len(args) == 1 {
		s.program = args[0]
	} else if len(args) > 1 || s.program == "" {
		return nil, errors.New(usage)
	}

	return &s, nil
}

func loadSymbols(dbg *debugger.Debugger, program string) {
	filename := strings.TrimSuffix(program, filepath.Ext(program)) + ".icdb"

	file, err := os.Open(filename)

	if err != nil {
		log.Debug().Err(err).Msg("no symbol file")
		return
	}

	defer file.Close()

	var symtable assembler.SymTable

	if err := gob.NewDecoder(file).Decode(&symtable); err != nil {
		log.Warn().Err(err).Str("file", filename).Msg("error loading symbol file")
		return
	}

	dbg.SymTable = &symtable

	if symtable.Source == "" {
		return
	}

	if data, err := os.ReadFile(symtable.Source); err == nil {
		dbg.Source = strings.NewReader(string(data))
	} else {
		log.Warn().Err(err).Msg("error loading source file")
	}
}

func writeOutput(w *bufio.Writer, value int64, ascii bool) {
	if ascii && value >= 0 && value <= 127 {
		w.WriteByte(byte(value))
	} else {
		fmt.Fprintln(w, value)
	}
}

func intcode() int {
	if helpvar {
		fmt.Println(usage)
		flag.PrintDefaults()
		return 0
	}

	s, err := loadSettings()

	if err != nil {
		log.Error().Err(err).Send()
		return 1
	}

	if s.trace {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
		log.Logger = log.Logger.Level(zerolog.TraceLevel)
	}

	text, err := os.ReadFile(s.program)

	if err != nil {
		log.Error().Err(err).Send()
		return 1
	}

	mc, err := machine.Parse(
		string(text),
		machine.WithLogger(log.Logger.With().Str("program", s.program).Logger()),
		machine.WithLimit(s.limit),
	)

	if err != nil {
		log.Error().Err(err).Str("program", s.program).Msg("invalid program")
		return 1
	}

	if err := profile.Apply(mc, s.patches); err != nil {
		log.Error().Err(err).Send()
		return 1
	}

	if decompilevar {
		if err := mc.Decompile(os.Stdout); err != nil {
			log.Error().Err(err).Send()
			return 1
		}

		return 0
	}

	var source machine.Input
	var stream *streamInput

	if keysvar {
		if len(s.keymap) == 0 {
			log.Warn().Msg("no keys configured, every input reads as idle")
		}

		if err := enterRawTerm(); err != nil {
			log.Error().Err(err).Msg("unable to enter raw terminal mode")
			return 1
		}

		defer exitRawTerm()

		source = &keyboardInput{Keymap: s.keymap, Idle: s.idle}
	} else {
		stream = &streamInput{Reader: stdin, ASCII: s.ascii}
		source = stream
	}

	in := machine.Chain(machine.Values(s.input...), source)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)

	if debugvar {
		dbg := &debugger.Debugger{
			HandleBreak: handleBreak,
			HandleRead:  handleRead,
			HandleWrite: handleWrite,
		}

		loadSymbols(dbg, s.program)
		mc.Debugger = dbg
		program = append([]int64(nil), mc.State.Memory...)

		go func() {
			for range c {
				fmt.Println()
				dbg.Break.Store(true)
			}
		}()

		debugREPL(dbg, mc)
	} else {
		go func() {
			for range c {
				shouldexit.Store(true)
			}
		}()
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for !shouldexit.Load() {
		value, status, err := mc.Step(in)

		switch status {
		case machine.STATUS_OUTPUT:
			writeOutput(out, value, s.ascii)

			if keysvar || debugvar {
				out.Flush()
			}

		case machine.STATUS_BLOCKED:
			out.Flush()

			event := log.Error().Int64("ip", mc.State.Program)

			if stream != nil && stream.Err != nil && stream.Err != io.EOF {
				event = event.Err(stream.Err)
			}

			event.Msg("program blocked on input")

			return 1

		case machine.STATUS_HALTED:
			shouldexit.Store(true)

		case machine.STATUS_FAULTED:
			out.Flush()
			log.Error().
				Err(err).
				Int64("ip", mc.State.Program).
				Int64("rb", mc.State.Base).
				Msg("fault")
			return 1
		}
	}

	if dumpvar {
		fmt.Fprintln(out, encoding.FormatProgram(mc.State.Memory))
	}

	return 0
}

func main() {
	os.Exit(intcode())
}
