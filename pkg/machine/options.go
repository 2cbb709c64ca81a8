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
	"github.com/rs/zerolog"
)

type Option func(*Machine)

// WithLogger traces executed instructions at trace level and suspensions and
// faults at debug level
func WithLogger(logger zerolog.Logger) Option {
	return func(mc *Machine) {
		mc.Logger = logger
	}
}

// WithLimit bounds tape growth; a limit <= 0 keeps DEFAULT_LIMIT
func WithLimit(limit int64) Option {
	return func(mc *Machine) {
		if limit > 0 {
			mc.Limit = limit
		}
	}
}

func WithDebugger(dbg MachineDebugger) Option {
	return func(mc *Machine) {
		mc.Debugger = dbg
	}
}
