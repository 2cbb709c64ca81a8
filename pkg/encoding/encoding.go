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

package encoding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var ErrInvalidData = errors.New("invalid program data")

type TokenError struct {
	Index int
	Token string
}

func (err *TokenError) Error() string {
	return fmt.Sprintf("token %d: invalid integer %q", err.Index, err.Token)
}

func (err *TokenError) Is(target error) bool {
	return target == ErrInvalidData
}

// Decodes comma separated base-10 integers, i.e. "1,9,10,3,2,3,11,0,99". Every
// malformed token is reported; no partial program is returned.
func ParseProgram(text string) ([]int64, error) {
	tokens := strings.Split(text, ",")

	// A single trailing separator (i.e. "1,2,3,\n") is not a token
	if n := len(tokens); n > 1 && strings.TrimSpace(tokens[n-1]) == "" {
		tokens = tokens[:n-1]
	}

	var errs *multierror.Error
	program := make([]int64, 0, len(tokens))

	for i, token := range tokens {
		value, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)

		if err != nil {
			errs = multierror.Append(errs, &TokenError{i, strings.TrimSpace(token)})
			continue
		}

		program = append(program, value)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return program, nil
}

func FormatProgram(memory []int64) string {
	var builder strings.Builder

	for i, value := range memory {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatInt(value, 10))
	}

	return builder.String()
}

// Decodes a hexidecimal string in the formats: 0xFF, xFF
func DecodeHex(s string) (int64, error) {
	if i := strings.IndexAny(s, "xX"); i == 0 {
		s = "0" + s
	} else if i == -1 || i != 1 {
		return 0, errors.New("Invalid hex string")
	}

	return strconv.ParseInt(s, 0, 64)
}

// Decodes a base-10 string in the formats: #123, 123, #-5, -5
func DecodeInt(s string) (int64, error) {
	if i := strings.Index(s, "#"); i == 0 {
		s = s[1:]
	}

	return strconv.ParseInt(s, 10, 64)
}

// Decodes either a hexidecimal or base-10 string
func DecodeWord(s string) (int64, error) {
	if strings.ContainsAny(s, "xX") {
		return DecodeHex(s)
	}

	return DecodeInt(s)
}
