package nav

// Profile bundles the costs and deny-lists the grid search runs under.
// Exactly two canonical profiles exist; both get the Structure Guard's
// protected-cell predicate composed in before any use.
type Profile struct {
	Name       string
	DigCost    float64
	PlaceCost  float64
	LiquidCost float64
	MaxDrop    int
	// DenyBreak lists block names the search must never break.
	DenyBreak map[string]struct{}
	// BreakCost overrides per-block dig costs.
	BreakCost map[string]float64
	// NoBreak is the composed protected-cell predicate. A true return means
	// infinite break cost at that cell.
	NoBreak func(Vec3i) bool
}

// conservativeDeny covers valuable and structural blocks a working agent
// should route around rather than consume.
var conservativeDeny = []string{
	"chest", "trapped_chest", "barrel", "furnace", "blast_furnace", "smoker",
	"crafting_table", "bed", "glass", "glass_pane",
	"diamond_ore", "deepslate_diamond_ore", "emerald_ore", "deepslate_emerald_ore",
	"ancient_debris", "oak_door", "spruce_door", "birch_door", "iron_door",
	"oak_fence", "spruce_fence", "torch",
}

func Conservative() *Profile {
	deny := make(map[string]struct{}, len(conservativeDeny))
	for _, n := range conservativeDeny {
		deny[n] = struct{}{}
	}
	return &Profile{
		Name:       "conservative",
		DigCost:    30,
		PlaceCost:  5,
		LiquidCost: 10,
		MaxDrop:    3,
		DenyBreak:  deny,
		BreakCost:  map[string]float64{"dirt": 2, "sand": 4, "gravel": 6},
	}
}

func Permissive() *Profile {
	return &Profile{
		Name:       "permissive",
		DigCost:    10,
		PlaceCost:  10,
		LiquidCost: 8,
		MaxDrop:    4,
	}
}

// CanBreak reports whether the profile allows breaking the named block at p.
func (pr *Profile) CanBreak(p Vec3i, name string) bool {
	if pr.NoBreak != nil && pr.NoBreak(p) {
		return false
	}
	if pr.DenyBreak != nil {
		if _, deny := pr.DenyBreak[name]; deny {
			return false
		}
	}
	return true
}

// CostToBreak returns the dig cost at p, or (0,false) when breaking is denied.
func (pr *Profile) CostToBreak(p Vec3i, name string) (float64, bool) {
	if !pr.CanBreak(p, name) {
		return 0, false
	}
	if pr.BreakCost != nil {
		if c, ok := pr.BreakCost[name]; ok {
			return c, true
		}
	}
	return pr.DigCost, true
}
