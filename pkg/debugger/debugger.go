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

package debugger

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"

	"github.com/lassandro/intcode/pkg/machine"
)

var (
	bold    = color.New(color.Bold)
	dim     = color.New(color.FgHiBlack)
	current = color.New(color.FgGreen, color.Bold)
	plain   = color.New()
)

func (dbg *Debugger) out() io.Writer {
	if dbg.Output == nil {
		return os.Stdout
	}

	return dbg.Output
}

func (dbg *Debugger) Step(mc *machine.Machine) {
	if dbg.HandleBreak == nil {
		return
	}

	if dbg.Break.Load() {
		dbg.HandleBreak(dbg, mc)
		return
	}

	if dbg.HasBreakpoint(mc.State.Program) {
		dbg.HandleBreak(dbg, mc)
	}
}

func (dbg *Debugger) Read(addr int64, mc *machine.Machine) {
	if dbg.HandleRead == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == WriteWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleRead(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) Write(addr int64, mc *machine.Machine) {
	if dbg.HandleWrite == nil {
		return
	}

	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Type == ReadWatch {
			continue
		}

		if addr == watchpoint.Addr {
			dbg.HandleWrite(addr, dbg, mc)
			break
		}
	}
}

func (dbg *Debugger) HasBreakpoint(addr int64) bool {
	for _, breakpoint := range dbg.Breakpoints {
		if breakpoint.Addr == addr {
			return true
		}
	}

	return false
}

// Adds a breakpoint, returning false if one already exists at addr
func (dbg *Debugger) AddBreakpoint(addr int64) bool {
	if dbg.HasBreakpoint(addr) {
		return false
	}

	dbg.Breakpoints = append(dbg.Breakpoints, Breakpoint{addr})
	return true
}

func (dbg *Debugger) RemoveBreakpoint(i int) bool {
	if i < 0 || i >= len(dbg.Breakpoints) {
		return false
	}

	dbg.Breakpoints[i] = dbg.Breakpoints[len(dbg.Breakpoints)-1]
	dbg.Breakpoints = dbg.Breakpoints[:len(dbg.Breakpoints)-1]
	return true
}

// Adds a watchpoint, returning false if an identical one already exists
func (dbg *Debugger) AddWatchpoint(addr int64, wtype WatchpointType) bool {
	for _, watchpoint := range dbg.Watchpoints {
		if watchpoint.Addr == addr && watchpoint.Type == wtype {
			return false
		}
	}

	dbg.Watchpoints = append(dbg.Watchpoints, Watchpoint{addr, wtype})
	return true
}

func (dbg *Debugger) RemoveWatchpoint(i int) bool {
	if i < 0 || i >= len(dbg.Watchpoints) {
		return false
	}

	dbg.Watchpoints[i] = dbg.Watchpoints[len(dbg.Watchpoints)-1]
	dbg.Watchpoints = dbg.Watchpoints[:len(dbg.Watchpoints)-1]
	return true
}

func (dbg *Debugger) PrintSource(addr int64, count int) {
	w := dbg.out()

	if dbg.Source == nil {
		fmt.Fprintln(w, "No source file loaded")
		return
	}

	if dbg.SymTable == nil {
		fmt.Fprintln(w, "No symbol table loaded")
		return
	}

	offset, exists := dbg.SymTable.Symbols[addr]

	if !exists {
		fmt.Fprintf(w, "No instruction found at %d\n", addr)
		return
	}

	lines := make(map[int64]int64, len(dbg.SymTable.Symbols))
	for lineaddr, linebyte := range dbg.SymTable.Symbols {
		lines[linebyte] = lineaddr
	}

	if _, err := dbg.Source.Seek(offset, io.SeekStart); err != nil {
		fmt.Fprintln(w, err)
		return
	}

	scanner := bufio.NewScanner(dbg.Source)
	scanner.Split(bufio.ScanLines)

	for i := 0; i < count; i++ {
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()

		if lineaddr, ok := lines[offset]; ok {
			bold.Fprintf(w, "[%4d]", lineaddr)
		} else {
			dim.Fprint(w, "~~~~~~")
		}

		fmt.Fprintf(w, " %s\n", line)

		offset += int64(len(line) + 1)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintln(w, err)
	}
}

// Prints count tape cells from addr, eight to a row. Cells past the end of
// the tape are shown as the zero they would read as.
func (dbg *Debugger) PrintMem(mc *machine.MachineState, addr, count int64) {
	w := dbg.out()

	if addr < 0 {
		fmt.Fprintf(w, "Invalid address %d\n", addr)
		return
	}

	for i := addr; i < addr+count; i++ {
		if i == addr {
			bold.Fprintf(w, "[%d]", i)
			fmt.Fprint(w, " ")
		} else if (i-addr)%8 == 0 {
			fmt.Fprintln(w)
			bold.Fprintf(w, "[%d]", i)
			fmt.Fprint(w, " ")
		}

		var result int64
		if i < int64(len(mc.Memory)) {
			result = mc.Memory[i]
		}

		if result == 0 {
			dim.Fprintf(w, "%d ", result)
		} else {
			fmt.Fprintf(w, "%d ", result)
		}
	}

	fmt.Fprintln(w)
}

// Prints a disassembly of count instructions starting at addr. The current
// instruction is marked with => and breakpoints with *.
func (dbg *Debugger) PrintListing(mc *machine.Machine, addr int64, count int) {
	w := dbg.out()
	memory := mc.State.Memory

	for i := 0; i < count && addr >= 0 && addr < int64(len(memory)); i++ {
		line := machine.Line{Addr: addr}

		instr, next, err := machine.Decode(memory, addr)

		if err != nil {
			next = addr + 1
		}

		line.Instr = instr
		line.Words = memory[addr:next]
		line.Err = err

		if dbg.SymTable != nil {
			if label, ok := dbg.SymTable.Labels[addr]; ok {
				dim.Fprintf(w, "%s:\n", label)
			}
		}

		var marker, bp string
		style := plain

		if addr == mc.State.Program {
			marker = "=>"
			style = current
		} else if err != nil {
			style = dim
		}

		if dbg.HasBreakpoint(addr) {
			bp = "*"
		}

		style.Fprintf(w, "%2s%1s %4d: %s\n", marker, bp, addr, line)

		addr = next
	}
}

type registers struct {
	Program int64
	Base    int64
	Tape    int
	Limit   int64
	Next    string
}

// Dumps the registers and the decoded instruction at ip
func (dbg *Debugger) PrintState(mc *machine.Machine) {
	state := registers{
		Program: mc.State.Program,
		Base:    mc.State.Base,
		Tape:    len(mc.State.Memory),
		Limit:   mc.Limit,
	}

	if instr, _, err := machine.Decode(mc.State.Memory, mc.State.Program); err != nil {
		state.Next = err.Error()
	} else {
		state.Next = instr.String()
	}

	printer := pp.New()
	printer.SetColoringEnabled(!color.NoColor)
	printer.Fprintln(dbg.out(), state)
}
