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

package encoding_test

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/lassandro/intcode/pkg/encoding"
)

func TestParseProgram(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Output []int64
	}{
		{"Simple", "1,0,0,0,99", []int64{1, 0, 0, 0, 99}},
		{"Whitespace", " 1, 9 ,\n10,\t3 ", []int64{1, 9, 10, 3}},
		{"Negative", "1101,100,-1,4,0", []int64{1101, 100, -1, 4, 0}},
		{"TrailingNewline", "104,1125899906842624,99\n", []int64{104, 1125899906842624, 99}},
		{"TrailingComma", "3,0,4,0,99,\n", []int64{3, 0, 4, 0, 99}},
		{"Single", "99", []int64{99}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			program, err := encoding.ParseProgram(test.Input)
			require.NoError(t, err)
			require.Equal(t, test.Output, program)
		})
	}
}

func TestParseProgramInvalid(t *testing.T) {
	tests := []struct {
		Name   string
		Input  string
		Tokens []string
	}{
		{"Empty", "", []string{""}},
		{"Blank", "   \n", []string{""}},
		{"Word", "1,two,3", []string{"two"}},
		{"Several", "1,x,,y", []string{"x", "", "y"}},
		{"Overflow", "99999999999999999999", []string{"99999999999999999999"}},
		{"Float", "1.5,99", []string{"1.5"}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			program, err := encoding.ParseProgram(test.Input)
			require.Nil(t, program)
			require.ErrorIs(t, err, encoding.ErrInvalidData)

			var merr *multierror.Error
			require.True(t, errors.As(err, &merr))
			require.Len(t, merr.Errors, len(test.Tokens))

			for i, want := range test.Tokens {
				var terr *encoding.TokenError
				require.True(t, errors.As(merr.Errors[i], &terr))
				require.Equal(t, want, terr.Token)
			}
		})
	}
}

func TestFormatProgram(t *testing.T) {
	text := "3500,9,10,70,2,3,11,0,99,30,40,-50"

	program, err := encoding.ParseProgram(text)
	require.NoError(t, err)
	require.Equal(t, text, encoding.FormatProgram(program))
	require.Equal(t, "", encoding.FormatProgram(nil))
}

func TestDecodeWord(t *testing.T) {
	tests := []struct {
		Input  string
		Output int64
		Fail   bool
	}{
		{"0x1F", 31, false},
		{"x10", 16, false},
		{"#42", 42, false},
		{"#-7", -7, false},
		{"123", 123, false},
		{"1x2", 0, true},
		{"abc", 0, true},
	}

	for _, test := range tests {
		have, err := encoding.DecodeWord(test.Input)

		if test.Fail {
			require.Error(t, err, test.Input)
			continue
		}

		require.NoError(t, err, test.Input)
		require.Equal(t, test.Output, have, test.Input)
	}
}
