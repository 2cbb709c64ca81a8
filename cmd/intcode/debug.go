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
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"github.com/lassandro/intcode/pkg/debugger"
	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
)

var lastcmd []string

// Tape as loaded, restored by the reset command
var program []int64

var (
	prompt = color.New(color.FgHiBlack, color.Bold)
	title  = color.New(color.Bold)
	faint  = color.New(color.FgHiBlack)
)

// Resolves a label, or a decimal or hexadecimal address
func parseAddr(dbg *debugger.Debugger, s string) (int64, error) {
	if dbg.SymTable != nil {
		if addr, ok := dbg.SymTable.Lookup(s); ok {
			return addr, nil
		}
	}

	addr, err := encoding.DecodeWord(s)

	if err != nil {
		return 0, fmt.Errorf("'%s' is not an address or label", s)
	}

	return addr, nil
}

func indexFormat(count int, suffix string) string {
	digits := math.Floor(math.Log10(float64(count + 1)))
	return fmt.Sprintf("#%%0%dd: %s\n", int64(digits)+1, suffix)
}

func debugBreak(dbg *debugger.Debugger, args []string) {
	const usage = "break [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "break add [addr|label]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		addr, err := parseAddr(dbg, args[0])

		if err != nil {
			log.Error().Err(err).Send()
			return
		}

		if dbg.AddBreakpoint(addr) {
			fmt.Printf("Breakpoint added [%d]\n", addr)
		}

	case "l", "ls", "list":
		if len(args) != 0 {
			fmt.Println("break list")
			return
		}

		format := indexFormat(len(dbg.Breakpoints), "%d")

		for i, breakpoint := range dbg.Breakpoints {
			fmt.Printf(format, i, breakpoint.Addr)
		}

	case "r", "rm", "remove":
		const usage = "break remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Error().Err(err).Send()
			return
		}

		if !dbg.RemoveBreakpoint(i) {
			fmt.Println("Invalid breakpoint number")
			return
		}

		fmt.Printf("Breakpoint removed [%d]\n", i)

	case "clear":
		dbg.Breakpoints = nil
		fmt.Println("Breakpoints reset")

	default:
		fmt.Printf("break: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

func debugWatch(dbg *debugger.Debugger, args []string) {
	const usage = "watch [add|list|remove|clear]"

	if len(args) == 0 {
		args = append(args, "l")
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "a", "add":
		const usage = "watch add [addr|label] [read|write|readwrite]"

		if len(args) != 2 {
			fmt.Println(usage)
			return
		}

		addr, err := parseAddr(dbg, args[0])

		if err != nil {
			log.Error().Err(err).Send()
			return
		}

		wtype, ok := debugger.ParseWatchpointType(args[1])

		if !ok {
			fmt.Println(usage)
			return
		}

		if dbg.AddWatchpoint(addr, wtype) {
			fmt.Printf("Watchpoint added [%d] (%s)\n", addr, wtype)
		}

	case "l", "ls", "list":
		if len(args) != 0 {
			fmt.Println("watch list")
			return
		}

		format := indexFormat(len(dbg.Watchpoints), "%d %s")

		for i, watchpoint := range dbg.Watchpoints {
			fmt.Printf(format, i, watchpoint.Addr, watchpoint.Type)
		}

	case "r", "rm", "remove":
		const usage = "watch remove [#]"

		if len(args) != 1 {
			fmt.Println(usage)
			return
		}

		i, err := strconv.Atoi(args[0])

		if err != nil {
			log.Error().Err(err).Send()
			return
		}

		if !dbg.RemoveWatchpoint(i) {
			fmt.Println("Invalid watchpoint number")
			return
		}

		fmt.Printf("Watchpoint removed [%d]\n", i)

	case "clear":
		dbg.Watchpoints = nil
		fmt.Println("Watchpoints reset")

	default:
		fmt.Printf("watch: '%s' is not a valid command\n%s\n", cmd, usage)
	}
}

func debugReg(mc *machine.MachineState, args []string) {
	const usage = "register [ip|rb] [value]"

	if len(args) == 0 {
		title.Print("ip:")
		fmt.Printf(" %d\t", mc.Program)
		title.Print("rb:")
		fmt.Printf(" %d\n", mc.Base)
		return
	}

	if len(args) != 2 {
		fmt.Println(usage)
		return
	}

	value, err := encoding.DecodeWord(args[1])

	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	name := strings.ToLower(args[0])

	switch name {
	case "ip", "pc":
		mc.Program = value
	case "rb", "base":
		mc.Base = value
	default:
		fmt.Println("Invalid register")
		return
	}

	title.Printf("%s:", name)
	fmt.Printf(" %d\n", value)
}

// Parses the optional [addr] [count] arguments shared by the inspection
// commands, defaulting to ip
func parseRange(
	dbg *debugger.Debugger,
	mc *machine.MachineState,
	args []string,
	count int64,
) (int64, int64, bool) {
	addr := mc.Program

	if len(args) > 2 {
		return 0, 0, false
	}

	if len(args) > 0 {
		value, err := parseAddr(dbg, args[0])

		if err != nil {
			log.Error().Err(err).Send()
			return 0, 0, false
		}

		addr = value
	}

	if len(args) > 1 {
		value, err := strconv.ParseInt(args[1], 10, 64)

		if err != nil || value < 0 {
			log.Error().Str("count", args[1]).Msg("invalid count")
			return 0, 0, false
		}

		count = value
	}

	return addr, count, true
}

func debugSource(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	addr, count, ok := parseRange(dbg, mc, args, 8)

	if !ok {
		fmt.Println("source [addr|label] [#]")
		return
	}

	dbg.PrintSource(addr, int(count))
}

func debugList(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	addr, count, ok := parseRange(dbg, &mc.State, args, 8)

	if !ok {
		fmt.Println("list [addr|label] [#]")
		return
	}

	dbg.PrintListing(mc, addr, int(count))
}

func debugMemory(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	addr, count, ok := parseRange(dbg, mc, args, 8)

	if !ok {
		fmt.Println("memory [addr|label] [#]")
		return
	}

	dbg.PrintMem(mc, addr, count)
}

func debugLabels(dbg *debugger.Debugger, args []string) {
	if len(args) > 0 {
		fmt.Println("labels")
		return
	}

	if dbg.SymTable == nil {
		fmt.Println("No symbol table loaded")
		return
	}

	keys := make([]int64, 0, len(dbg.SymTable.Labels))
	for addr := range dbg.SymTable.Labels {
		keys = append(keys, addr)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, addr := range keys {
		title.Printf("[%d]", addr)
		fmt.Printf(" %s\n", dbg.SymTable.Labels[addr])
	}
}

func debugJump(dbg *debugger.Debugger, mc *machine.MachineState, args []string) {
	if len(args) != 1 {
		fmt.Println("jump [addr|label]")
		return
	}

	addr, err := parseAddr(dbg, args[0])

	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	mc.Program = addr

	title.Print("ip:")
	fmt.Printf(" %d\n", addr)
}

func debugSet(dbg *debugger.Debugger, mc *machine.Machine, args []string) {
	if len(args) != 2 {
		fmt.Println("set [addr|label] [value]")
		return
	}

	addr, err := parseAddr(dbg, args[0])

	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	value, err := encoding.DecodeWord(args[1])

	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	if err := mc.Write(addr, value); err != nil {
		log.Error().Err(err).Send()
		return
	}

	dbg.PrintMem(&mc.State, addr, 1)
}

func debugSave(mc *machine.Machine, args []string) {
	if len(args) != 1 {
		fmt.Println("save [file]")
		return
	}

	data, err := mc.Snapshot()

	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	if err := os.WriteFile(args[0], data, 0644); err != nil {
		log.Error().Err(err).Send()
		return
	}

	fmt.Printf("Saved %d cells to %s\n", len(mc.State.Memory), args[0])
}

func debugLoad(mc *machine.Machine, args []string) {
	if len(args) != 1 {
		fmt.Println("load [file]")
		return
	}

	data, err := os.ReadFile(args[0])

	if err != nil {
		log.Error().Err(err).Send()
		return
	}

	if err := mc.Restore(data); err != nil {
		log.Error().Err(err).Str("file", args[0]).Msg("invalid snapshot")
		return
	}

	fmt.Printf("Loaded %d cells from %s\n", len(mc.State.Memory), args[0])
}

func debugREPL(dbg *debugger.Debugger, mc *machine.Machine) {
	if termRestore != nil {
		exitRawTerm()

		defer func() {
			if err := enterRawTerm(); err != nil {
				log.Error().Err(err).Msg("unable to enter raw terminal mode")
			}
		}()
	}

	for {
		prompt.Print("(dbg) ")

		line, err := stdin.ReadString('\n')

		if err != nil && line == "" {
			fmt.Println()
			shouldexit.Store(true)
			return
		}

		args := strings.Fields(line)

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
			debugReg(&mc.State, args)

		case "s", "src", "source":
			debugSource(dbg, &mc.State, args)

		case "l", "ls", "list":
			debugList(dbg, mc, args)

		case "labels":
			debugLabels(dbg, args)

		case "j", "jmp", "jump":
			debugJump(dbg, &mc.State, args)

		case "m", "mem", "memory":
			debugMemory(dbg, &mc.State, args)

		case "set":
			debugSet(dbg, mc, args)

		case "st", "state":
			dbg.PrintState(mc)

		case "save":
			debugSave(mc, args)

		case "load":
			debugLoad(mc, args)

		case "c", "continue":
			dbg.Break.Store(false)
			return

		case "n", "next":
			dbg.Break.Store(true)
			return

		case "q", "quit", "exit":
			shouldexit.Store(true)
			return

		case "clear":
			fmt.Print("\033[H\033[2J")

		case "reset":
			mc.State.Reset(program)
			faint.Println("Machine reset")

		default:
			fmt.Printf("error: '%s' is not a valid command\n", cmd)
		}
	}
}

func handleBreak(dbg *debugger.Debugger, mc *machine.Machine) {
	if shouldexit.Load() {
		return
	}

	if !dbg.Break.Load() {
		fmt.Println()
		fmt.Println("Program stopped")
	}

	if dbg.Source != nil {
		dbg.PrintSource(mc.State.Program, 1)
	} else {
		dbg.PrintListing(mc, mc.State.Program, 1)
	}

	debugREPL(dbg, mc)
}

func handleRead(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
	if shouldexit.Load() {
		return
	}

	fmt.Println()
	fmt.Println("Program stopped (read)")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}

func handleWrite(addr int64, dbg *debugger.Debugger, mc *machine.Machine) {
	if shouldexit.Load() {
		return
	}

	fmt.Println()
	fmt.Println("Program stopped (write)")
	dbg.PrintMem(&mc.State, addr, 1)
	debugREPL(dbg, mc)
}
