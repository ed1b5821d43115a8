package nav

import (
	"context"
	"strings"
)

// Inventory items that are never sacrificed as pillar material: tools, food
// and cosmetic non-structural items.
var nonStructural = map[string]struct{}{
	"bread": {}, "apple": {}, "cooked_beef": {}, "cooked_porkchop": {},
	"cooked_chicken": {}, "baked_potato": {}, "carrot": {}, "melon_slice": {},
	"torch": {}, "flower_pot": {}, "painting": {}, "item_frame": {},
	"ladder": {}, "bucket": {}, "water_bucket": {}, "lava_bucket": {},
	"stick": {}, "bone": {}, "string": {}, "flint": {},
}

var toolSuffixes = []string{
	"_pickaxe", "_axe", "_shovel", "_sword", "_hoe",
	"_helmet", "_chestplate", "_leggings", "_boots",
	"_seeds", "_dye",
}

// placeable reports whether an inventory item can serve as a pillar block.
func placeable(name string) bool {
	if _, skip := nonStructural[name]; skip {
		return false
	}
	for _, suf := range toolSuffixes {
		if strings.HasSuffix(name, suf) {
			return false
		}
	}
	switch name {
	case "shield", "bow", "crossbow", "fishing_rod", "shears",
		"flint_and_steel", "compass", "clock", "map", "book":
		return false
	}
	return true
}

// equipPlaceable equips the first placeable block in the inventory. Returns
// the item name, or ok=false when the agent is out of building material.
func (c *Context) equipPlaceable(ctx context.Context) (string, bool) {
	for _, it := range c.World.Inventory() {
		if it.Count <= 0 || !placeable(it.Name) {
			continue
		}
		if err := c.Act.Equip(ctx, it.Name); err != nil {
			continue
		}
		return it.Name, true
	}
	return "", false
}
