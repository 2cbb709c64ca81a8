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
	"io"
	"slices"
	"strconv"
	"strings"
)

// Line is one entry of a disassembly listing. Words that do not decode to an
// instruction are listed individually as data with the decode error attached.
type Line struct {
	Addr  int64
	Instr Instruction
	Words []int64
	Err   error
}

// Instructions whose words carry mode digits that Encode would not reproduce
// are listed as data, with the decoded form as a comment, so that the listing
// assembles back to the same words.
func (line Line) String() string {
	if line.Err != nil {
		return fmt.Sprintf(".fill %d", line.Words[0])
	}

	if !slices.Equal(Encode(line.Instr), line.Words) {
		values := make([]string, len(line.Words))
		for i, word := range line.Words {
			values[i] = strconv.FormatInt(word, 10)
		}

		return fmt.Sprintf(
			".fill %s ; %s", strings.Join(values, ", "), line.Instr,
		)
	}

	return line.Instr.String()
}

// Disassemble statically walks memory from address 0
func Disassemble(memory []int64) []Line {
	var lines []Line

	for addr := int64(0); addr < int64(len(memory)); {
		instr, next, err := Decode(memory, addr)

		if err != nil {
			next = addr + 1
		}

		words := make([]int64, next-addr)
		copy(words, memory[addr:next])

		lines = append(lines, Line{addr, instr, words, err})
		addr = next
	}

	return lines
}

// Decompile writes a listing of the machine's tape without modifying it
func (mc *Machine) Decompile(w io.Writer) error {
	for _, line := range Disassemble(mc.State.Memory) {
		if _, err := fmt.Fprintf(w, "%4d: %s\n", line.Addr, line); err != nil {
			return err
		}
	}

	return nil
}
