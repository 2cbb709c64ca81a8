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
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/lassandro/intcode/pkg/encoding"
)

// New creates a machine whose tape is a copy of program, with ip and base at 0
func New(program []int64, opts ...Option) *Machine {
	mc := &Machine{
		Logger: zerolog.Nop(),
		Limit:  DEFAULT_LIMIT,
	}

	mc.State.Reset(program)

	for _, opt := range opts {
		opt(mc)
	}

	return mc
}

// Parse creates a machine from comma separated program text
func Parse(text string, opts ...Option) (*Machine, error) {
	program, err := encoding.ParseProgram(text)
	if err != nil {
		return nil, err
	}

	return New(program, opts...), nil
}

func (mc *MachineState) Reset(program []int64) {
	mc.Memory = make([]int64, len(program))
	copy(mc.Memory, program)

	mc.Program = 0
	mc.Base = 0
}

// Clone returns an independent copy of the machine's tape, ip and base. The
// logger and limit are shared; the debugger is not.
func (mc *Machine) Clone() *Machine {
	clone := &Machine{
		Logger: mc.Logger,
		Limit:  mc.Limit,
	}

	clone.State.Reset(mc.State.Memory)
	clone.State.Program = mc.State.Program
	clone.State.Base = mc.State.Base

	return clone
}

// Reports whether addr may be accessed without growing past Limit
func (mc *Machine) check(addr int64) error {
	if addr < 0 {
		return &AddrError{addr}
	}

	if addr >= int64(len(mc.State.Memory)) && addr >= mc.Limit {
		return &AddrError{addr}
	}

	return nil
}

// Grows the tape with zeroed cells so that addr is a valid index
func (mc *Machine) ensure(addr int64) error {
	if err := mc.check(addr); err != nil {
		return err
	}

	if size := int64(len(mc.State.Memory)); addr >= size {
		mc.State.Memory = append(mc.State.Memory, make([]int64, addr-size+1)...)
	}

	return nil
}

func (mc *Machine) read(addr int64) (int64, error) {
	if err := mc.ensure(addr); err != nil {
		return 0, err
	}

	if mc.Debugger != nil {
		mc.Debugger.Read(addr, mc)

		// The hook may have replaced the tape with a shorter one
		if err := mc.ensure(addr); err != nil {
			return 0, err
		}
	}

	return mc.State.Memory[addr], nil
}

func (mc *Machine) write(addr int64, value int64) error {
	if err := mc.ensure(addr); err != nil {
		return err
	}

	mc.State.Memory[addr] = value

	if mc.Debugger != nil {
		mc.Debugger.Write(addr, mc)
	}

	return nil
}

// Read returns the tape cell at addr, growing the tape if needed. Debugger
// hooks only observe accesses made by the program, not by callers.
func (mc *Machine) Read(addr int64) (int64, error) {
	if err := mc.ensure(addr); err != nil {
		return 0, err
	}

	return mc.State.Memory[addr], nil
}

// Write stores value at addr, growing the tape if needed
func (mc *Machine) Write(addr int64, value int64) error {
	if err := mc.ensure(addr); err != nil {
		return err
	}

	mc.State.Memory[addr] = value

	return nil
}

// Effective address of base+offset. Sums that overflow saturate so they fault
// rather than wrap around to a valid cell.
func (mc *Machine) relative(offset int64) int64 {
	base := mc.State.Base
	sum := base + offset

	if offset > 0 && sum < base {
		return math.MaxInt64
	} else if offset < 0 && sum > base {
		return math.MinInt64
	}

	return sum
}

func (mc *Machine) load(param Param) (int64, error) {
	switch param.Mode {
	case MODE_IMMEDIATE:
		return param.Value, nil
	case MODE_RELATIVE:
		return mc.read(mc.relative(param.Value))
	}

	return mc.read(param.Value)
}

// Resolves the write target at index of the instruction at addr. The target
// is validated but the tape is not grown.
func (mc *Machine) target(addr int64, index int, param Param) (int64, error) {
	var target int64

	switch param.Mode {
	case MODE_POSITION:
		target = param.Value
	case MODE_RELATIVE:
		target = mc.relative(param.Value)
	default:
		return 0, &ModeError{addr + 1 + int64(index), int64(param.Mode)}
	}

	if err := mc.check(target); err != nil {
		return 0, err
	}

	return target, nil
}

// Writes value to the parameter at index of the instruction at addr
func (mc *Machine) store(addr int64, index int, param Param, value int64) error {
	target, err := mc.target(addr, index, param)
	if err != nil {
		return err
	}

	return mc.write(target, value)
}

func (mc *Machine) fault(addr int64, err error) (int64, Status, error) {
	mc.State.Program = addr

	mc.Logger.Debug().
		Int64("ip", addr).
		Int64("rb", mc.State.Base).
		Err(err).
		Msg("fault")

	return 0, STATUS_FAULTED, err
}

// Step executes exactly one instruction.
//
// The returned status is STATUS_RUNNING after an ordinary instruction, and
// STATUS_OUTPUT with the produced value after an output. Blocking on input,
// halting and faults return ErrNoInput, ErrHalted and the fault respectively,
// and leave ip at the start of the instruction so it is re-executed by the
// next call.
func (mc *Machine) Step(in Input) (int64, Status, error) {
	addr := mc.State.Program

	instr, next, err := Decode(mc.State.Memory, addr)
	if err != nil {
		return mc.fault(addr, err)
	}

	mc.Logger.Trace().
		Int64("ip", addr).
		Int64("rb", mc.State.Base).
		Stringer("instr", instr).
		Msg("step")

	mc.State.Program = next

	var output int64
	var status = STATUS_RUNNING

	switch instr.Op {
	case OP_ADD, OP_MUL, OP_LT, OP_EQ:
		var a, b, result int64

		if a, err = mc.load(instr.Params[0]); err != nil {
			break
		}

		if b, err = mc.load(instr.Params[1]); err != nil {
			break
		}

		switch instr.Op {
		case OP_ADD:
			result = a + b
		case OP_MUL:
			result = a * b
		case OP_LT:
			if a < b {
				result = 1
			}
		case OP_EQ:
			if a == b {
				result = 1
			}
		}

		err = mc.store(addr, 2, instr.Params[2], result)

	case OP_IN:
		var target, value int64
		var ok bool

		// A bad target faults without consuming input
		if target, err = mc.target(addr, 0, instr.Params[0]); err != nil {
			break
		}

		if in != nil {
			value, ok = in.Next()
		}

		if !ok {
			mc.State.Program = addr
			mc.Logger.Debug().Int64("ip", addr).Msg("blocked on input")
			return 0, STATUS_BLOCKED, ErrNoInput
		}

		err = mc.write(target, value)

	case OP_OUT:
		if output, err = mc.load(instr.Params[0]); err == nil {
			status = STATUS_OUTPUT
		}

	case OP_JNZ, OP_JZ:
		var cond, target int64

		if cond, err = mc.load(instr.Params[0]); err != nil {
			break
		}

		if target, err = mc.load(instr.Params[1]); err != nil {
			break
		}

		if (cond != 0) == (instr.Op == OP_JNZ) {
			mc.State.Program = target
		}

	case OP_ARB:
		var offset int64

		if offset, err = mc.load(instr.Params[0]); err == nil {
			mc.State.Base += offset
		}

	case OP_HALT:
		mc.State.Program = addr
		mc.Logger.Debug().Int64("ip", addr).Msg("halted")
		return 0, STATUS_HALTED, ErrHalted
	}

	if err != nil {
		return mc.fault(addr, err)
	}

	if mc.Debugger != nil {
		mc.Debugger.Step(mc)
	}

	return output, status, nil
}

// Run executes instructions until the program produces an output, halts,
// blocks on input or faults. The next call resumes where this one stopped.
func (mc *Machine) Run(in Input) (int64, error) {
	for {
		output, status, err := mc.Step(in)

		if status == STATUS_RUNNING {
			continue
		}

		if status == STATUS_OUTPUT {
			mc.Logger.Debug().
				Int64("ip", mc.State.Program).
				Int64("value", output).
				Msg("output")
		}

		return output, err
	}
}

// RunFunc runs with fn called exactly once for every input instruction
func (mc *Machine) RunFunc(fn func() int64) (int64, error) {
	return mc.Run(InputFunc(func() (int64, bool) {
		return fn(), true
	}))
}

// Drain runs the machine until it halts, returning every output produced. A
// clean halt is not an error.
func (mc *Machine) Drain(in Input) ([]int64, error) {
	var outputs []int64

	for {
		output, err := mc.Run(in)

		if errors.Is(err, ErrHalted) {
			return outputs, nil
		} else if err != nil {
			return outputs, err
		}

		outputs = append(outputs, output)
	}
}
