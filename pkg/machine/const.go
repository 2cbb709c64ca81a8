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

const (
	OP_ADD  Opcode = 1
	OP_MUL  Opcode = 2
	OP_IN   Opcode = 3
	OP_OUT  Opcode = 4
	OP_JNZ  Opcode = 5
	OP_JZ   Opcode = 6
	OP_LT   Opcode = 7
	OP_EQ   Opcode = 8
	OP_ARB  Opcode = 9
	OP_HALT Opcode = 99
)

const (
	MODE_POSITION  Mode = 0
	MODE_IMMEDIATE Mode = 1
	MODE_RELATIVE  Mode = 2
)

const (
	STATUS_RUNNING Status = iota
	STATUS_OUTPUT
	STATUS_BLOCKED
	STATUS_HALTED
	STATUS_FAULTED
)

// Upper bound (exclusive) on the number of tape cells an unconfigured machine
// may grow to
const DEFAULT_LIMIT int64 = 1 << 24
