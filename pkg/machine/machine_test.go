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

package machine_test

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/intcode/pkg/encoding"
	"github.com/lassandro/intcode/pkg/machine"
)

const compareToEight = "3,21,1008,21,8,20,1005,20,22,107,8,21,20,1006,20," +
	"31,1106,0,36,98,0,0,1002,21,125,20,4,20,1105,1,46,104,999,1105,1,46," +
	"1101,1000,1,20,4,20,1105,1,46,98,99"

const quine = "109,1,204,-1,1001,100,1,100,1008,100,16,101,1006,101,0,99"

func parse(t *testing.T, text string, opts ...machine.Option) *machine.Machine {
	t.Helper()

	mc, err := machine.Parse(text, opts...)
	require.NoError(t, err)

	return mc
}

func program(t *testing.T, text string) []int64 {
	t.Helper()

	result, err := encoding.ParseProgram(text)
	require.NoError(t, err)

	return result
}

func TestNew(t *testing.T) {
	source := []int64{1, 0, 0, 0, 99}
	mc := machine.New(source)

	require.Equal(t, source, mc.State.Memory)
	require.Equal(t, int64(0), mc.State.Program)
	require.Equal(t, int64(0), mc.State.Base)
	require.Equal(t, machine.DEFAULT_LIMIT, mc.Limit)

	// The tape does not alias the caller's slice
	source[0] = 2
	require.Equal(t, int64(1), mc.State.Memory[0])
}

func TestParseInvalid(t *testing.T) {
	mc, err := machine.Parse("1,2,x,99")
	require.Nil(t, mc)
	require.ErrorIs(t, err, machine.ErrInvalidData)
}

func TestRunTape(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Output string
	}{
		{"AddMul", "1,9,10,3,2,3,11,0,99,30,40,50", "3500,9,10,70,2,3,11,0,99,30,40,50"},
		{"Add", "1,0,0,0,99", "2,0,0,0,99"},
		{"Mul", "2,3,0,3,99", "2,3,0,6,99"},
		{"MulAfterHalt", "2,4,4,5,99,0", "2,4,4,5,99,9801"},
		{"SelfModifying", "1,1,1,4,99,5,6,0,99", "30,1,1,4,2,5,6,0,99"},
		{"Negative", "1101,100,-1,4,0", "1101,100,-1,4,99"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := parse(t, test.Input)

			outputs, err := mc.Drain(nil)
			require.NoError(t, err)
			require.Empty(t, outputs)
			require.Equal(t, program(t, test.Output), mc.State.Memory)
		})
	}
}

func TestDecode(t *testing.T) {
	memory := []int64{1002, 4, 3, 4, 1101, 100, -1, 4, 0}

	instr, next, err := machine.Decode(memory, 0)
	require.NoError(t, err)
	require.Equal(t, int64(4), next)
	require.Equal(
		t,
		machine.Instruction{
			Op: machine.OP_MUL,
			Params: [3]machine.Param{
				{machine.MODE_POSITION, 4},
				{machine.MODE_IMMEDIATE, 3},
				{machine.MODE_POSITION, 4},
			},
		},
		instr,
	)

	instr, next, err = machine.Decode(memory, next)
	require.NoError(t, err)
	require.Equal(t, int64(8), next)
	require.Equal(
		t,
		machine.Instruction{
			Op: machine.OP_ADD,
			Params: [3]machine.Param{
				{machine.MODE_IMMEDIATE, 100},
				{machine.MODE_IMMEDIATE, -1},
				{machine.MODE_POSITION, 4},
			},
		},
		instr,
	)
}

func TestDecodeVariants(t *testing.T) {
	tests := []struct {
		Name   string
		Memory []int64
		Output machine.Instruction
		Next   int64
	}{
		{
			"HaltLeftoverModes",
			[]int64{11199},
			machine.Instruction{Op: machine.OP_HALT},
			1,
		},
		{
			"ModesBeyondArity",
			[]int64{30104, 7},
			machine.Instruction{
				Op:     machine.OP_OUT,
				Params: [3]machine.Param{{machine.MODE_IMMEDIATE, 7}},
			},
			2,
		},
		{
			"Relative",
			[]int64{2105, 4, -1},
			machine.Instruction{
				Op: machine.OP_JNZ,
				Params: [3]machine.Param{
					{machine.MODE_IMMEDIATE, 4},
					{machine.MODE_RELATIVE, -1},
				},
			},
			3,
		},
		{
			"Input",
			[]int64{203, 5},
			machine.Instruction{
				Op:     machine.OP_IN,
				Params: [3]machine.Param{{machine.MODE_RELATIVE, 5}},
			},
			2,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			instr, next, err := machine.Decode(test.Memory, 0)
			require.NoError(t, err)
			require.Equal(t, test.Output, instr)
			require.Equal(t, test.Next, next)
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		Name   string
		Memory []int64
		Addr   int64
		Error  error
		Typed  error
	}{
		{"EmptyTape", nil, 0, machine.ErrInvalidAddr, &machine.AddrError{0}},
		{"PastEnd", []int64{99}, 1, machine.ErrInvalidAddr, &machine.AddrError{1}},
		{"NegativeAddr", []int64{99}, -1, machine.ErrInvalidAddr, &machine.AddrError{-1}},
		{"TruncatedParams", []int64{1, 0, 0}, 0, machine.ErrInvalidAddr, &machine.AddrError{3}},
		{"BadMode", []int64{303, 0}, 0, machine.ErrInvalidMode, &machine.ModeError{1, 3}},
		{"BadSecondMode", []int64{5105, 1, 2}, 0, machine.ErrInvalidMode, &machine.ModeError{2, 5}},
		{"UnknownOp", []int64{42}, 0, machine.ErrInvalidInstr, &machine.InstrError{0, 42}},
		{"ZeroOp", []int64{0}, 0, machine.ErrInvalidInstr, &machine.InstrError{0, 0}},
		{"NegativeWord", []int64{-1}, 0, machine.ErrInvalidInstr, &machine.InstrError{0, -1}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			_, next, err := machine.Decode(test.Memory, test.Addr)
			require.ErrorIs(t, err, test.Error)
			require.Equal(t, test.Typed, err)
			require.Equal(t, test.Addr, next)
		})
	}
}

func TestEncode(t *testing.T) {
	memory := program(t, compareToEight)

	for addr := int64(0); addr < 19; {
		instr, next, err := machine.Decode(memory, addr)
		require.NoError(t, err)
		require.Equal(t, memory[addr:next], machine.Encode(instr))
		addr = next
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		Name    string
		Program string
		Input   int64
		Output  int64
	}{
		{"Below", compareToEight, 7, 999},
		{"Equal", compareToEight, 8, 1000},
		{"Above", compareToEight, 9, 1001},
		{"PositionEqual", "3,9,8,9,10,9,4,9,99,-1,8", 8, 1},
		{"PositionNotEqual", "3,9,8,9,10,9,4,9,99,-1,8", 5, 0},
		{"PositionLess", "3,9,7,9,10,9,4,9,99,-1,8", 5, 1},
		{"PositionNotLess", "3,9,7,9,10,9,4,9,99,-1,8", 8, 0},
		{"ImmediateEqual", "3,3,1108,-1,8,3,4,3,99", 8, 1},
		{"ImmediateLess", "3,3,1107,-1,8,3,4,3,99", 9, 0},
		{"JumpZero", "3,12,6,12,15,1,13,14,13,4,13,99,-1,0,1,9", 0, 0},
		{"JumpNonZero", "3,3,1105,-1,9,1101,0,0,12,4,12,99,1", 5, 1},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := parse(t, test.Program)

			output, err := mc.Run(machine.Repeat(test.Input))
			require.NoError(t, err)
			require.Equal(t, test.Output, output)
		})
	}
}

func TestRelative(t *testing.T) {
	mc := parse(t, "109,19,99")

	_, err := mc.Run(machine.Repeat(0))
	require.ErrorIs(t, err, machine.ErrHalted)
	require.Equal(t, int64(19), mc.State.Base)

	mc = parse(t, "109,9,2105,4,-1,4,0,99,5")

	output, err := mc.Run(machine.Repeat(0))
	require.NoError(t, err)
	require.Equal(t, int64(109), output)
}

func TestLargeNumbers(t *testing.T) {
	mc := parse(t, "104,1125899906842624,99")

	output, err := mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(1125899906842624), output)

	mc = parse(t, "1102,34915192,34915192,7,4,7,99,0")

	output, err = mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(1219070632396864), output)
}

func TestQuine(t *testing.T) {
	mc := parse(t, quine)

	outputs, err := mc.Drain(nil)
	require.NoError(t, err)
	require.Equal(t, program(t, quine), outputs)
	require.Greater(t, len(mc.State.Memory), 101)
}

func TestSuspendResume(t *testing.T) {
	mc := parse(t, "3,0,4,0,3,0,4,0,99")

	output, err := mc.Run(machine.Values(5))
	require.NoError(t, err)
	require.Equal(t, int64(5), output)
	require.Equal(t, int64(4), mc.State.Program)

	// The input instruction is not consumed until a value is available
	_, err = mc.Run(machine.Empty())
	require.ErrorIs(t, err, machine.ErrNoInput)
	require.Equal(t, int64(4), mc.State.Program)

	_, err = mc.Run(nil)
	require.ErrorIs(t, err, machine.ErrNoInput)
	require.Equal(t, int64(4), mc.State.Program)

	output, err = mc.Run(machine.Values(6))
	require.NoError(t, err)
	require.Equal(t, int64(6), output)

	_, err = mc.Run(nil)
	require.ErrorIs(t, err, machine.ErrHalted)
	require.Equal(t, int64(8), mc.State.Program)
}

func TestRunAfterHalt(t *testing.T) {
	mc := parse(t, "1101,2,3,5,99,0")

	_, err := mc.Run(nil)
	require.ErrorIs(t, err, machine.ErrHalted)

	before := mc.Clone()

	for i := 0; i < 3; i++ {
		_, err = mc.Run(machine.Repeat(1))
		require.ErrorIs(t, err, machine.ErrHalted)
		require.Equal(t, before.State, mc.State)
	}
}

func TestStep(t *testing.T) {
	mc := parse(t, "1101,2,3,9,4,9,3,9,99,0")

	output, status, err := mc.Step(nil)
	require.NoError(t, err)
	require.Equal(t, machine.STATUS_RUNNING, status)
	require.Equal(t, int64(0), output)
	require.Equal(t, int64(4), mc.State.Program)

	output, status, err = mc.Step(nil)
	require.NoError(t, err)
	require.Equal(t, machine.STATUS_OUTPUT, status)
	require.Equal(t, int64(5), output)

	_, status, err = mc.Step(nil)
	require.ErrorIs(t, err, machine.ErrNoInput)
	require.Equal(t, machine.STATUS_BLOCKED, status)
	require.Equal(t, int64(6), mc.State.Program)

	_, status, err = mc.Step(machine.Values(1))
	require.NoError(t, err)
	require.Equal(t, machine.STATUS_RUNNING, status)

	_, status, err = mc.Step(nil)
	require.ErrorIs(t, err, machine.ErrHalted)
	require.Equal(t, machine.STATUS_HALTED, status)

	mc = parse(t, "42")

	_, status, err = mc.Step(nil)
	require.ErrorIs(t, err, machine.ErrInvalidInstr)
	require.Equal(t, machine.STATUS_FAULTED, status)
}

func TestRunFunc(t *testing.T) {
	mc := parse(t, "3,0,3,1,1,0,1,2,4,2,99")

	calls := 0
	next := func() int64 {
		calls++
		return int64(calls * 10)
	}

	output, err := mc.RunFunc(next)
	require.NoError(t, err)
	require.Equal(t, int64(30), output)
	require.Equal(t, 2, calls)

	_, err = mc.RunFunc(next)
	require.ErrorIs(t, err, machine.ErrHalted)
	require.Equal(t, 2, calls)
}

func TestGrowth(t *testing.T) {
	mc := parse(t, "1101,5,6,1000,4,1000,99")

	output, err := mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(11), output)
	require.Equal(t, 1001, len(mc.State.Memory))

	// Values written past the initial tape survive into later calls
	mc = parse(t, "1101,7,8,300,104,0,4,300,99")

	output, err = mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), output)

	output, err = mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(15), output)

	// Growth never disturbs existing cells
	for i, value := range program(t, "1101,7,8,300,104,0,4,300,99") {
		require.Equal(t, value, mc.State.Memory[i])
	}

	for addr := int64(9); addr < 300; addr++ {
		require.Equal(t, int64(0), mc.State.Memory[addr])
	}
}

func TestReadWrite(t *testing.T) {
	mc := parse(t, "4,0,99")

	require.NoError(t, mc.Write(0, 2))
	require.NoError(t, mc.Write(5000, 42))

	value, err := mc.Read(5000)
	require.NoError(t, err)
	require.Equal(t, int64(42), value)

	value, err = mc.Read(4000)
	require.NoError(t, err)
	require.Equal(t, int64(0), value)

	value, err = mc.Read(0)
	require.NoError(t, err)
	require.Equal(t, int64(2), value)

	_, err = mc.Read(-1)
	require.ErrorIs(t, err, machine.ErrInvalidAddr)

	require.ErrorIs(t, mc.Write(machine.DEFAULT_LIMIT, 1), machine.ErrInvalidAddr)

	// Patched cells are visible to the program
	mc = parse(t, "4,3,99,7")
	require.NoError(t, mc.Write(3, 8))

	output, err := mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(8), output)
}

func TestFaults(t *testing.T) {
	tests := []struct {
		Name    string
		Program string
		Limit   int64
		Error   error
		Typed   error
		IP      int64
	}{
		{"NegativeRelative", "109,-5,204,0,99", 0, machine.ErrInvalidAddr, &machine.AddrError{-5}, 2},
		{"NegativeRelativeWrite", "109,-5,203,0,99", 0, machine.ErrInvalidAddr, &machine.AddrError{-5}, 2},
		{"NegativePosition", "4,-1,99", 0, machine.ErrInvalidAddr, &machine.AddrError{-1}, 0},
		{"OverLimit", "1101,1,1,100,99", 16, machine.ErrInvalidAddr, &machine.AddrError{100}, 0},
		{"ImmediateTarget", "11101,1,1,5,99", 0, machine.ErrInvalidMode, &machine.ModeError{3, 1}, 0},
		{"ImmediateInput", "103,5,99", 0, machine.ErrInvalidMode, &machine.ModeError{1, 1}, 0},
		{"RunOffEnd", "1101,1,1,0", 0, machine.ErrInvalidAddr, &machine.AddrError{4}, 4},
		{"NegativeJump", "1105,1,-3", 0, machine.ErrInvalidAddr, &machine.AddrError{-3}, -3},
		{"InvalidInstr", "1101,1,1,5,42,0", 0, machine.ErrInvalidInstr, &machine.InstrError{4, 42}, 4},
		{"InvalidMode", "1101,1,1,5,304,0", 0, machine.ErrInvalidMode, &machine.ModeError{5, 3}, 4},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := parse(t, test.Program, machine.WithLimit(test.Limit))

			_, err := mc.Run(machine.Repeat(1))
			require.ErrorIs(t, err, test.Error)
			require.Equal(t, test.Typed, err)
			require.Equal(t, test.IP, mc.State.Program)

			// Faults are sticky until the caller intervenes
			_, err = mc.Run(machine.Repeat(1))
			require.ErrorIs(t, err, test.Error)
			require.Equal(t, test.IP, mc.State.Program)
		})
	}
}

func TestFaultKeepsInput(t *testing.T) {
	tests := []struct {
		Name    string
		Program string
		Limit   int64
		Error   error
	}{
		{"ImmediateTarget", "103,5,99", 0, machine.ErrInvalidMode},
		{"NegativeRelative", "109,-5,203,0,99", 0, machine.ErrInvalidAddr},
		{"OverLimit", "3,100,99", 16, machine.ErrInvalidAddr},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := parse(t, test.Program, machine.WithLimit(test.Limit))
			in := machine.Values(7, 8)

			_, err := mc.Run(in)
			require.ErrorIs(t, err, test.Error)

			value, ok := in.Next()
			require.True(t, ok)
			require.Equal(t, int64(7), value)
		})
	}
}

func TestRelativeOverflow(t *testing.T) {
	// The base plus offset wraps around to address 0
	const lowest = "-9223372036854775808"

	tests := []struct {
		Name    string
		Program string
	}{
		{"Read", "109," + lowest + ",204," + lowest + ",99"},
		{"Write", "109," + lowest + ",203," + lowest + ",99"},
		{"Target", "109," + lowest + ",21101,1,1," + lowest + ",99"},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			mc := parse(t, test.Program)

			_, err := mc.Run(machine.Repeat(1))
			require.ErrorIs(t, err, machine.ErrInvalidAddr)
			require.Equal(t, &machine.AddrError{math.MinInt64}, err)
			require.Equal(t, int64(2), mc.State.Program)
			require.Equal(t, int64(109), mc.State.Memory[0])
		})
	}

	mc := parse(t, "204,1,99")
	mc.State.Base = math.MaxInt64

	_, err := mc.Run(nil)
	require.Equal(t, &machine.AddrError{math.MaxInt64}, err)
	require.Equal(t, int64(0), mc.State.Program)
}

func TestClone(t *testing.T) {
	mc := parse(t, "3,0,4,0,99")
	clone := mc.Clone()

	output, err := clone.Run(machine.Values(7))
	require.NoError(t, err)
	require.Equal(t, int64(7), output)

	require.Equal(t, int64(3), mc.State.Memory[0])
	require.Equal(t, int64(0), mc.State.Program)
	require.Equal(t, int64(7), clone.State.Memory[0])
	require.Equal(t, int64(4), clone.State.Program)

	// Clones of a suspended machine resume from the same point
	again := clone.Clone()
	_, err = again.Run(nil)
	require.ErrorIs(t, err, machine.ErrHalted)
	require.Equal(t, int64(4), clone.State.Program)
}

func series(t *testing.T, base *machine.Machine, phases []int64) int64 {
	var signal int64

	for _, phase := range phases {
		output, err := base.Clone().Run(machine.Values(phase, signal))
		require.NoError(t, err)
		signal = output
	}

	return signal
}

func feedback(t *testing.T, base *machine.Machine, phases []int64) int64 {
	amps := make([]*machine.Machine, len(phases))
	for i := range amps {
		amps[i] = base.Clone()
	}

	var signal int64

	for round := 0; ; round++ {
		for i, amp := range amps {
			in := machine.Values(signal)
			if round == 0 {
				in = machine.Values(phases[i], signal)
			}

			output, err := amp.Run(in)
			if errors.Is(err, machine.ErrHalted) {
				return signal
			}

			require.NoError(t, err)
			signal = output
		}
	}
}

func TestAmplifiers(t *testing.T) {
	tests := []struct {
		Name     string
		Program  string
		Phases   []int64
		Feedback bool
		Output   int64
	}{
		{
			"Series",
			"3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0",
			[]int64{4, 3, 2, 1, 0}, false, 43210,
		},
		{
			"SeriesNegative",
			"3,23,3,24,1002,24,10,24,1002,23,-1,23,101,5,23,23,1,24,23,23,4,23,99,0,0",
			[]int64{0, 1, 2, 3, 4}, false, 54321,
		},
		{
			"Feedback",
			"3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28," +
				"1005,28,6,99,0,0,5",
			[]int64{9, 8, 7, 6, 5}, true, 139629729,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			base := parse(t, test.Program)

			if test.Feedback {
				require.Equal(t, test.Output, feedback(t, base, test.Phases))
			} else {
				require.Equal(t, test.Output, series(t, base, test.Phases))
			}

			// The template machine is never run
			require.Equal(t, program(t, test.Program), base.State.Memory)
			require.Equal(t, int64(0), base.State.Program)
		})
	}
}

func TestAddMulDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(2019))

	for n := 0; n < 50; n++ {
		count := 1 + rng.Intn(8)
		data := count*4 + 1
		size := data + 4

		words := make([]int64, 0, size)
		for i := 0; i < count; i++ {
			words = append(
				words,
				int64(1+rng.Intn(2)),
				int64(rng.Intn(size)),
				int64(rng.Intn(size)),
				int64(data+rng.Intn(4)),
			)
		}

		words = append(words, 99)
		for len(words) < size {
			words = append(words, int64(rng.Intn(100)))
		}

		text := encoding.FormatProgram(words)

		first := parse(t, text)
		_, err := first.Drain(nil)
		require.NoError(t, err)

		second := parse(t, text)
		_, err = second.Drain(nil)
		require.NoError(t, err)

		require.Equal(t, first.State, second.State, text)
	}
}

func TestInputs(t *testing.T) {
	drain := func(in machine.Input, max int) []int64 {
		var values []int64
		for i := 0; i < max; i++ {
			value, ok := in.Next()
			if !ok {
				break
			}
			values = append(values, value)
		}
		return values
	}

	require.Equal(t, []int64{1, 2, 3}, drain(machine.Values(1, 2, 3), 10))
	require.Empty(t, drain(machine.Values(), 10))
	require.Empty(t, drain(machine.Empty(), 10))
	require.Equal(t, []int64{4, 4, 4}, drain(machine.Repeat(4), 3))
	require.Equal(
		t,
		[]int64{1, 2, 3},
		drain(machine.Chain(machine.Values(1), machine.Values(), machine.Values(2, 3)), 10),
	)
	require.Equal(
		t,
		[]int64{9, 0, 0},
		drain(machine.Chain(machine.Values(9), machine.Repeat(0)), 3),
	)

	// Exhausted sources can be refilled between calls
	queue := []int64{}
	in := machine.InputFunc(func() (int64, bool) {
		if len(queue) == 0 {
			return 0, false
		}
		value := queue[0]
		queue = queue[1:]
		return value, true
	})

	mc := parse(t, "3,0,4,0,1105,1,0")

	_, err := mc.Run(in)
	require.ErrorIs(t, err, machine.ErrNoInput)

	for _, value := range []int64{3, 1, 4} {
		queue = append(queue, value)

		output, err := mc.Run(in)
		require.NoError(t, err)
		require.Equal(t, value, output)
	}
}

func TestSnapshot(t *testing.T) {
	mc := parse(t, quine)

	for i := 0; i < 5; i++ {
		_, err := mc.Run(nil)
		require.NoError(t, err)
	}

	data, err := mc.Snapshot()
	require.NoError(t, err)

	restored := machine.New(nil)
	require.NoError(t, restored.Restore(data))
	require.Equal(t, mc.State, restored.State)

	want, err := mc.Drain(nil)
	require.NoError(t, err)

	have, err := restored.Drain(nil)
	require.NoError(t, err)
	require.Equal(t, want, have)

	// Snapshots are canonical
	again, err := machine.New(program(t, quine)).Snapshot()
	require.NoError(t, err)
	other, err := machine.New(program(t, quine)).Snapshot()
	require.NoError(t, err)
	require.Equal(t, again, other)

	before := restored.State
	require.Error(t, restored.Restore([]byte{0xff, 0x00}))
	require.Equal(t, before, restored.State)
}

func TestDecompile(t *testing.T) {
	mc := parse(t, "1002,4,3,4,1101,100,-1,4,0,109,-2,203,0,99,1")
	before := mc.Clone()

	lines := machine.Disassemble(mc.State.Memory)
	have := make([]string, 0, len(lines))
	for _, line := range lines {
		have = append(have, line.String())
	}

	require.Equal(
		t,
		[]string{
			"mul [4], #3, [4]",
			"add #100, #-1, [4]",
			".fill 0",
			"arb #-2",
			"in [rb]",
			"hlt",
		},
		have[:6],
	)

	// The trailing word is an add missing its parameters
	require.Equal(t, ".fill 1", have[6])
	require.ErrorIs(t, lines[6].Err, machine.ErrInvalidAddr)
	require.ErrorIs(t, lines[2].Err, machine.ErrInvalidInstr)
	require.Equal(t, []int64{1101, 100, -1, 4}, lines[1].Words)

	var buf bytes.Buffer
	require.NoError(t, mc.Decompile(&buf))
	require.True(t, strings.HasPrefix(buf.String(), "   0: mul [4], #3, [4]\n   4: add #100, #-1, [4]\n"))
	require.Equal(t, len(lines), strings.Count(buf.String(), "\n"))

	require.Equal(t, before.State, mc.State)
}

func TestDecompileExtraModeDigits(t *testing.T) {
	// Mode digits beyond an opcode's arity decode but are not re-encoded
	mc := parse(t, "104,7,1099,10004,5")

	lines := machine.Disassemble(mc.State.Memory)
	have := make([]string, 0, len(lines))
	for _, line := range lines {
		have = append(have, line.String())
	}

	require.Equal(
		t,
		[]string{"out #7", ".fill 1099 ; hlt", ".fill 10004, 5 ; out [5]"},
		have,
	)
	require.NoError(t, lines[1].Err)
	require.NoError(t, lines[2].Err)
}

type recorder struct {
	steps  []int64
	reads  []int64
	writes []int64
}

func (r *recorder) Step(mc *machine.Machine) {
	r.steps = append(r.steps, mc.State.Program)
}

func (r *recorder) Read(addr int64, mc *machine.Machine) {
	r.reads = append(r.reads, addr)
}

func (r *recorder) Write(addr int64, mc *machine.Machine) {
	r.writes = append(r.writes, addr)
}

func TestDebuggerHooks(t *testing.T) {
	var rec recorder
	mc := parse(t, "1,0,0,0,204,1,99", machine.WithDebugger(&rec))

	output, err := mc.Run(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), output)

	require.Equal(t, []int64{4, 6}, rec.steps)
	require.Equal(t, []int64{0, 0, 1}, rec.reads)
	require.Equal(t, []int64{0}, rec.writes)

	// Caller access is not observed
	_, err = mc.Read(3)
	require.NoError(t, err)
	require.NoError(t, mc.Write(3, 1))
	require.Len(t, rec.reads, 3)
	require.Len(t, rec.writes, 1)

	// Clones do not inherit the debugger
	require.Nil(t, mc.Clone().Debugger)
}

func TestTraceLogging(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)

	mc := parse(t, "104,7,99", machine.WithLogger(logger))

	_, err := mc.Run(nil)
	require.NoError(t, err)

	_, err = mc.Run(nil)
	require.ErrorIs(t, err, machine.ErrHalted)

	log := buf.String()
	require.Contains(t, log, `"instr":"out #7"`)
	require.Contains(t, log, `"message":"step"`)
	require.Contains(t, log, `"value":7`)
	require.Contains(t, log, `"message":"halted"`)

	// Machines are silent by default
	buf.Reset()
	mc = parse(t, "104,7,99")
	_, err = mc.Run(nil)
	require.NoError(t, err)
	require.Empty(t, buf.String())
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		Instr  machine.Instruction
		Output string
	}{
		{machine.Instruction{Op: machine.OP_HALT}, "hlt"},
		{
			machine.Instruction{
				Op: machine.OP_LT,
				Params: [3]machine.Param{
					{machine.MODE_RELATIVE, 3},
					{machine.MODE_RELATIVE, -3},
					{machine.MODE_RELATIVE, 0},
				},
			},
			"lt [rb+3], [rb-3], [rb]",
		},
		{
			machine.Instruction{
				Op:     machine.OP_JZ,
				Params: [3]machine.Param{{machine.MODE_POSITION, 1}, {machine.MODE_IMMEDIATE, 2}},
			},
			"jz [1], #2",
		},
	}

	for _, test := range tests {
		require.Equal(t, test.Output, test.Instr.String())
	}
}
