package pricing

import "github.com/shopspring/decimal"

// Material is one consumable used to produce an embroidered patch.
// Sheet-based materials carry their sheet dimensions in inches; materials
// without a sheet width (thread, bobbin) are not costed per area.
type Material struct {
	Name          string
	SheetWidthIn  float64
	SheetHeightIn float64
	UnitCost      decimal.Decimal // cost of one full sheet / spool
	WasteFactor   decimal.Decimal // cutting + hooping loss multiplier
}

const (
	MaterialFabric       = "fabric"
	MaterialPatchAttach  = "patch_attach"
	MaterialThread       = "thread"
	MaterialBobbin       = "bobbin"
	MaterialCutAwayStab  = "cutaway_stabilizer"
	MaterialWashAwayStab = "washaway_stabilizer"
)

// Catalog maps material name -> material. Lookups for names missing from a
// catalog fall back to the built-in defaults.
type Catalog map[string]Material

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic("pricing: bad decimal literal: " + s)
	}
	return d
}

// DefaultCatalog holds the shop's standing consumable prices.
var DefaultCatalog = Catalog{
	MaterialFabric: {
		Name:          MaterialFabric,
		SheetWidthIn:  60,
		SheetHeightIn: 36,
		UnitCost:      dec("12.50"),
		WasteFactor:   dec("1.20"),
	},
	MaterialPatchAttach: {
		Name:          MaterialPatchAttach,
		SheetWidthIn:  12,
		SheetHeightIn: 12,
		UnitCost:      dec("1.50"),
		WasteFactor:   dec("1.10"),
	},
	// Thread and bobbin have no sheet dimensions. The old stitch-count
	// formula was retired; they are carried at zero until a per-stitch
	// price is reinstated.
	MaterialThread: {
		Name:     MaterialThread,
		UnitCost: dec("2.80"),
	},
	MaterialBobbin: {
		Name:     MaterialBobbin,
		UnitCost: dec("1.10"),
	},
	MaterialCutAwayStab: {
		Name:          MaterialCutAwayStab,
		SheetWidthIn:  36,
		SheetHeightIn: 36,
		UnitCost:      dec("8.00"),
		WasteFactor:   dec("1.15"),
	},
	MaterialWashAwayStab: {
		Name:          MaterialWashAwayStab,
		SheetWidthIn:  36,
		SheetHeightIn: 36,
		UnitCost:      dec("9.50"),
		WasteFactor:   dec("1.15"),
	},
}

func (c Catalog) material(name string) Material {
	if c != nil {
		if m, ok := c[name]; ok {
			return m
		}
	}
	return DefaultCatalog[name]
}
