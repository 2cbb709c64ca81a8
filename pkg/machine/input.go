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

// Input supplies values to input instructions. Next reports false when no
// value is currently available, which suspends the machine with ErrNoInput.
type Input interface {
	Next() (int64, bool)
}

type InputFunc func() (int64, bool)

func (fn InputFunc) Next() (int64, bool) {
	return fn()
}

type valueInput struct {
	values []int64
}

func (in *valueInput) Next() (int64, bool) {
	if len(in.values) == 0 {
		return 0, false
	}

	value := in.values[0]
	in.values = in.values[1:]

	return value, true
}

// Values yields each of values once, in order
func Values(values ...int64) Input {
	return &valueInput{values}
}

// Repeat yields value forever
func Repeat(value int64) Input {
	return InputFunc(func() (int64, bool) {
		return value, true
	})
}

func Empty() Input {
	return InputFunc(func() (int64, bool) {
		return 0, false
	})
}

type chainInput struct {
	inputs []Input
}

func (in *chainInput) Next() (int64, bool) {
	for len(in.inputs) > 0 {
		if value, ok := in.inputs[0].Next(); ok {
			return value, true
		}

		in.inputs = in.inputs[1:]
	}

	return 0, false
}

// Chain yields from each input in turn, moving on once one is exhausted
func Chain(inputs ...Input) Input {
	return &chainInput{inputs}
}
