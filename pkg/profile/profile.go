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

// Package profile loads TOML run profiles for the intcode runner.
//
//	program = "day13.txt"
//	ascii   = false
//	input   = [1, 2]
//	limit   = 65536
//	idle    = 0
//
//	[patch]
//	0 = 2
//
//	[keys]
//	left  = -1
//	right = 1
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/lassandro/intcode/pkg/machine"
)

type Profile struct {
	Program string           `toml:"program"`
	Input   []int64          `toml:"input"`
	ASCII   bool             `toml:"ascii"`
	Trace   bool             `toml:"trace"`
	Limit   int64            `toml:"limit"`
	Idle    int64            `toml:"idle"`
	Patch   map[string]int64 `toml:"patch"`
	Keys    map[string]int64 `toml:"keys"`

	// Dir is the directory containing the profile (set at load time)
	Dir string `toml:"-"`

	patches []Patch
	keymap  map[string]int64
}

// Patch overwrites a single tape cell before a run
type Patch struct {
	Addr  int64
	Value int64
}

var namedKeys = map[string]string{
	"up":        "\033[A",
	"down":      "\033[B",
	"right":     "\033[C",
	"left":      "\033[D",
	"space":     " ",
	"enter":     "\n",
	"tab":       "\t",
	"esc":       "\033",
	"backspace": "\177",
}

// Load parses the profile at path, resolving the program path against the
// profile's directory and validating the patch and key tables.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	p, err := Parse(string(data), dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return p, nil
}

// Parse decodes profile text. Relative program paths are resolved against dir.
func Parse(text string, dir string) (*Profile, error) {
	var p Profile

	meta, err := toml.Decode(text, &p)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown field %q", undecoded[0].String())
	}

	p.Dir = dir

	// Defaults
	if p.Limit <= 0 {
		p.Limit = machine.DEFAULT_LIMIT
	}

	if p.Program != "" && !filepath.IsAbs(p.Program) {
		p.Program = filepath.Join(dir, p.Program)
	}

	for cell, value := range p.Patch {
		addr, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)

		if err != nil || addr < 0 {
			return nil, fmt.Errorf("invalid patch address %q", cell)
		}

		p.patches = append(p.patches, Patch{addr, value})
	}

	sortPatches(p.patches)

	p.keymap = make(map[string]int64, len(p.Keys))

	for name, value := range p.Keys {
		seq, ok := KeySequence(name)

		if !ok {
			return nil, fmt.Errorf("invalid key name %q", name)
		}

		p.keymap[seq] = value
	}

	return &p, nil
}

// Patches returns the patch table ordered by address
func (p *Profile) Patches() []Patch {
	return p.patches
}

// Keymap maps the terminal byte sequence of each configured key to the value
// it feeds the machine.
func (p *Profile) Keymap() map[string]int64 {
	return p.keymap
}

// KeySequence returns the bytes a terminal sends for a key name. Single
// printable characters stand for themselves.
func KeySequence(name string) (string, bool) {
	if seq, ok := namedKeys[strings.ToLower(name)]; ok {
		return seq, true
	}

	if len(name) == 1 && name[0] > ' ' && name[0] < 0x7f {
		return name, true
	}

	return "", false
}

// ParsePatches decodes the command line form of a patch table: "0=2,1=12"
func ParsePatches(s string) ([]Patch, error) {
	var patches []Patch

	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)

		if field == "" {
			continue
		}

		cell, value, found := strings.Cut(field, "=")

		if !found {
			return nil, fmt.Errorf("invalid patch %q", field)
		}

		addr, err := strconv.ParseInt(strings.TrimSpace(cell), 10, 64)

		if err != nil || addr < 0 {
			return nil, fmt.Errorf("invalid patch address %q", cell)
		}

		v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)

		if err != nil {
			return nil, fmt.Errorf("invalid patch value %q", value)
		}

		patches = append(patches, Patch{addr, v})
	}

	sortPatches(patches)

	return patches, nil
}

// Apply writes every patch to the machine's tape
func Apply(mc *machine.Machine, patches []Patch) error {
	for _, patch := range patches {
		if err := mc.Write(patch.Addr, patch.Value); err != nil {
			return fmt.Errorf("patch %d=%d: %w", patch.Addr, patch.Value, err)
		}
	}

	return nil
}

func sortPatches(patches []Patch) {
	sort.SliceStable(patches, func(i, j int) bool {
		return patches[i].Addr < patches[j].Addr
	})
}
