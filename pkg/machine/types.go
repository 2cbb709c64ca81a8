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
	"strings"

	"github.com/rs/zerolog"
)

type Mode uint8
type Opcode int64
type Status uint

type Param struct {
	Mode  Mode
	Value int64
}

// Instruction is a decoded instruction. Only the first Op.Arity() parameters
// are meaningful.
type Instruction struct {
	Op     Opcode
	Params [3]Param
}

type MachineState struct {
	Memory  []int64 `cbor:"1,keyasint"`
	Program int64   `cbor:"2,keyasint"`
	Base    int64   `cbor:"3,keyasint"`
}

type MachineDebugger interface {
	Step(mc *Machine)
	Read(addr int64, mc *Machine)
	Write(addr int64, mc *Machine)
}

type Machine struct {
	State    MachineState
	Debugger MachineDebugger
	Logger   zerolog.Logger

	// Tape cells at or beyond Limit are never allocated
	Limit int64
}

func (op Opcode) Arity() int {
	switch op {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		return 3
	case OP_JNZ, OP_JZ:
		return 2
	case OP_IN, OP_OUT, OP_ARB:
		return 1
	case OP_HALT:
		return 0
	}

	return -1
}

// Index of the parameter the instruction writes to, or -1
func (op Opcode) Target() int {
	switch op {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		return 2
	case OP_IN:
		return 0
	}

	return -1
}

func (op Opcode) String() string {
	switch op {
	case OP_ADD:
		return "add"
	case OP_MUL:
		return "mul"
	case OP_IN:
		return "in"
	case OP_OUT:
		return "out"
	case OP_JNZ:
		return "jnz"
	case OP_JZ:
		return "jz"
	case OP_LT:
		return "lt"
	case OP_EQ:
		return "eq"
	case OP_ARB:
		return "arb"
	case OP_HALT:
		return "hlt"
	}

	return fmt.Sprintf("op(%d)", int64(op))
}

func (mode Mode) String() string {
	switch mode {
	case MODE_POSITION:
		return "position"
	case MODE_IMMEDIATE:
		return "immediate"
	case MODE_RELATIVE:
		return "relative"
	}

	return fmt.Sprintf("mode(%d)", uint8(mode))
}

// Renders the parameter in assembler syntax: [4], #3, [rb+4], [rb-1]
func (param Param) String() string {
	switch param.Mode {
	case MODE_IMMEDIATE:
		return fmt.Sprintf("#%d", param.Value)
	case MODE_RELATIVE:
		if param.Value == 0 {
			return "[rb]"
		}
		return fmt.Sprintf("[rb%+d]", param.Value)
	}

	return fmt.Sprintf("[%d]", param.Value)
}

func (instr Instruction) String() string {
	arity := instr.Op.Arity()

	if arity <= 0 {
		return instr.Op.String()
	}

	params := make([]string, 0, arity)
	for _, param := range instr.Params[:arity] {
		params = append(params, param.String())
	}

	return instr.Op.String() + " " + strings.Join(params, ", ")
}

func (status Status) String() string {
	switch status {
	case STATUS_RUNNING:
		return "running"
	case STATUS_OUTPUT:
		return "output"
	case STATUS_BLOCKED:
		return "blocked"
	case STATUS_HALTED:
		return "halted"
	case STATUS_FAULTED:
		return "faulted"
	}

	return "unknown"
}
