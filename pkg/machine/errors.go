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
	"fmt"

	"github.com/lassandro/intcode/pkg/encoding"
)

var (
	ErrInvalidData  = encoding.ErrInvalidData
	ErrInvalidAddr  = errors.New("invalid address")
	ErrInvalidMode  = errors.New("invalid parameter mode")
	ErrInvalidInstr = errors.New("invalid instruction")
	ErrNoInput      = errors.New("no input available")
	ErrHalted       = errors.New("machine halted")
)

type AddrError struct {
	Addr int64
}

func (err *AddrError) Error() string {
	return fmt.Sprintf("%d: invalid address", err.Addr)
}

func (err *AddrError) Is(target error) bool {
	return target == ErrInvalidAddr
}

// Addr is the address of the offending parameter word
type ModeError struct {
	Addr int64
	Mode int64
}

func (err *ModeError) Error() string {
	if err.Mode == int64(MODE_IMMEDIATE) {
		return fmt.Sprintf("%d: immediate mode write target", err.Addr)
	}

	return fmt.Sprintf("%d: invalid parameter mode %d", err.Addr, err.Mode)
}

func (err *ModeError) Is(target error) bool {
	return target == ErrInvalidMode
}

type InstrError struct {
	Addr int64
	Word int64
}

func (err *InstrError) Error() string {
	return fmt.Sprintf("%d: invalid instruction %d", err.Addr, err.Word)
}

func (err *InstrError) Is(target error) bool {
	return target == ErrInvalidInstr
}
