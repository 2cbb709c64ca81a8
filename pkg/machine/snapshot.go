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
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("machine: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot serializes the tape, ip and base
func (mc *Machine) Snapshot() ([]byte, error) {
	return snapshotEncMode.Marshal(&mc.State)
}

// Restore replaces the machine state with a previously taken snapshot. The
// machine is left untouched if data cannot be decoded.
func (mc *Machine) Restore(data []byte) error {
	var state MachineState

	if err := cbor.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("machine: restore snapshot: %w", err)
	}

	if state.Memory == nil {
		state.Memory = []int64{}
	}

	mc.State = state

	return nil
}
