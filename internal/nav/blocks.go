package nav

import "strings"

// BlockInfo is the world collaborator's answer to a voxel lookup.
// Classification is derived from it fresh on every query; nothing here is
// cached across suspension points because the world mutates externally.
type BlockInfo struct {
	Name     string
	Liquid   bool
	Source   bool // liquid source vs. flowing
	Diggable bool
	Skylight int
}

// Air returns true for empty cells an agent can occupy.
func (b BlockInfo) Air() bool {
	if b.Liquid {
		return false
	}
	switch b.Name {
	case "", "air", "cave_air", "void_air":
		return true
	}
	return false
}

// Passable is Air plus non-solid decorations the agent walks through.
func (b BlockInfo) Passable() bool {
	if b.Air() {
		return true
	}
	if b.Liquid {
		return false
	}
	switch b.Name {
	case "short_grass", "tall_grass", "fern", "snow", "torch", "vine":
		return true
	}
	return false
}

func (b BlockInfo) Solid() bool {
	return !b.Liquid && !b.Passable()
}

func (b BlockInfo) Water() bool {
	return b.Liquid && strings.Contains(b.Name, "water")
}

func (b BlockInfo) Lava() bool {
	return b.Liquid && strings.Contains(b.Name, "lava")
}

// Falls reports gravity-affected blocks that collapse into a dug shaft.
func (b BlockInfo) Falls() bool {
	switch b.Name {
	case "sand", "red_sand", "gravel":
		return true
	}
	return strings.HasSuffix(b.Name, "_concrete_powder")
}

func (b BlockInfo) Bedrock() bool {
	return b.Solid() && !b.Diggable
}

// Hazard cells must never be dug through blindly.
func (b BlockInfo) Hazard() bool {
	return b.Lava() || b.Falls()
}
