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

var modeDivisors = [3]int64{100, 1000, 10000}

func fetch(memory []int64, addr int64) (int64, error) {
	if addr < 0 || addr >= int64(len(memory)) {
		return 0, &AddrError{addr}
	}

	return memory[addr], nil
}

// Decode reads the instruction at addr without modifying memory. It returns
// the instruction and the address of the word following it.
//
// The two low decimal digits of the opcode word select the operation, and the
// hundreds, thousands and ten-thousands digits select the modes of the first,
// second and third parameters.
func Decode(memory []int64, addr int64) (Instruction, int64, error) {
	var instr Instruction

	word, err := fetch(memory, addr)
	if err != nil {
		return instr, addr, err
	}

	instr.Op = Opcode(word % 100)

	arity := instr.Op.Arity()
	if arity < 0 {
		return Instruction{}, addr, &InstrError{addr, word}
	}

	next := addr + 1

	for i := 0; i < arity; i++ {
		value, err := fetch(memory, next)
		if err != nil {
			return Instruction{}, addr, err
		}

		mode := (word / modeDivisors[i]) % 10

		if mode < int64(MODE_POSITION) || mode > int64(MODE_RELATIVE) {
			return Instruction{}, addr, &ModeError{next, mode}
		}

		instr.Params[i] = Param{Mode(mode), value}
		next++
	}

	return instr, next, nil
}

// Encode is the inverse of Decode, producing the canonical words for instr
func Encode(instr Instruction) []int64 {
	arity := instr.Op.Arity()
	if arity < 0 {
		arity = 0
	}

	words := make([]int64, 1, arity+1)
	words[0] = int64(instr.Op)

	for i, param := range instr.Params[:arity] {
		words[0] += int64(param.Mode) * modeDivisors[i]
		words = append(words, param.Value)
	}

	return words
}
