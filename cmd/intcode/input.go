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
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Reads machine input from a text stream, either as whitespace or comma
// separated integers or, in ASCII mode, one value per byte
type streamInput struct {
	Reader *bufio.Reader
	ASCII  bool
	Err    error
}

func (in *streamInput) Next() (int64, bool) {
	if in.Err != nil {
		return 0, false
	}

	if in.ASCII {
		b, err := in.Reader.ReadByte()

		if err != nil {
			in.Err = err
			return 0, false
		}

		return int64(b), true
	}

	var builder strings.Builder

	for {
		char, _, err := in.Reader.ReadRune()

		if err != nil {
			in.Err = err
			break
		}

		if unicode.IsSpace(char) || char == ',' {
			if builder.Len() > 0 {
				break
			}

			continue
		}

		builder.WriteRune(char)
	}

	if builder.Len() == 0 {
		return 0, false
	}

	value, err := strconv.ParseInt(builder.String(), 10, 64)

	if err != nil {
		in.Err = fmt.Errorf("invalid input %q", builder.String())
		return 0, false
	}

	// A value read right before EOF is still delivered
	return value, true
}

// Maps key presses from a raw terminal to machine input. Reads time out so
// an idle keyboard feeds Idle.
type keyboardInput struct {
	Keymap map[string]int64
	Idle   int64

	buffer [8]byte
}

func (in *keyboardInput) Next() (int64, bool) {
	n, err := os.Stdin.Read(in.buffer[:])

	if err != nil || n == 0 {
		return in.Idle, true
	}

	if value, ok := in.Keymap[string(in.buffer[:n])]; ok {
		return value, true
	}

	return in.Idle, true
}
