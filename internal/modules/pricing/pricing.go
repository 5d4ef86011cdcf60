package pricing

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

const (
	MinDimensionIn = 0.5
	MaxDimensionIn = 12.0
)

// CostBreakdown lists every consumable cost for one design, each rounded to
// two decimals so totals reproduce from displayed line items.
type CostBreakdown struct {
	Fabric             decimal.Decimal `json:"fabric"`
	PatchAttach        decimal.Decimal `json:"patchAttach"`
	Thread             decimal.Decimal `json:"thread"`
	Bobbin             decimal.Decimal `json:"bobbin"`
	CutAwayStabilizer  decimal.Decimal `json:"cutAwayStabilizer"`
	WashAwayStabilizer decimal.Decimal `json:"washAwayStabilizer"`
	Total              decimal.Decimal `json:"total"`
}

// Quote is the full price computation for one design.
type Quote struct {
	MaterialCosts CostBreakdown   `json:"materialCosts"`
	OptionsPrice  decimal.Decimal `json:"optionsPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Option is a selected style option; Price arrives from stored JSON and may
// be a number or a numeric string.
type Option struct {
	Name  string `json:"name"`
	Price any    `json:"price"`
}

// MaterialCost computes per-material consumable costs for a design of the
// given dimensions against the default catalog.
func MaterialCost(widthIn, heightIn float64) (CostBreakdown, error) {
	return DefaultCatalog.MaterialCost(widthIn, heightIn)
}

// MaterialCost computes per-material consumable costs for a design of the
// given dimensions. Each sub-cost is rounded to two decimals before the
// total is summed.
func (c Catalog) MaterialCost(widthIn, heightIn float64) (CostBreakdown, error) {
	w, h, err := normalizeDimensions(widthIn, heightIn)
	if err != nil {
		return CostBreakdown{}, err
	}

	area := decimal.NewFromFloat(w).Mul(decimal.NewFromFloat(h))

	cost := func(name string) decimal.Decimal {
		m := c.material(name)
		if m.SheetWidthIn <= 0 {
			// non-area material: zero under the current policy
			return decimal.Zero.Round(2)
		}
		sheetArea := decimal.NewFromFloat(m.SheetWidthIn).Mul(decimal.NewFromFloat(m.SheetHeightIn))
		return area.Mul(m.UnitCost).Div(sheetArea).Mul(m.WasteFactor).Round(2)
	}

	b := CostBreakdown{
		Fabric:             cost(MaterialFabric),
		PatchAttach:        cost(MaterialPatchAttach),
		Thread:             cost(MaterialThread),
		Bobbin:             cost(MaterialBobbin),
		CutAwayStabilizer:  cost(MaterialCutAwayStab),
		WashAwayStabilizer: cost(MaterialWashAwayStab),
	}
	b.Total = b.Fabric.
		Add(b.PatchAttach).
		Add(b.Thread).
		Add(b.Bobbin).
		Add(b.CutAwayStabilizer).
		Add(b.WashAwayStabilizer).
		Round(2)
	return b, nil
}

// TotalPrice computes material cost plus the sum of option prices for one
// design against the default catalog.
func TotalPrice(widthIn, heightIn float64, options []Option) (Quote, error) {
	return DefaultCatalog.TotalPrice(widthIn, heightIn, options)
}

func (c Catalog) TotalPrice(widthIn, heightIn float64, options []Option) (Quote, error) {
	mats, err := c.MaterialCost(widthIn, heightIn)
	if err != nil {
		return Quote{}, err
	}

	opts := decimal.Zero
	for _, o := range options {
		opts = opts.Add(OptionPrice(o.Price))
	}
	opts = opts.Round(2)

	return Quote{
		MaterialCosts: mats,
		OptionsPrice:  opts,
		TotalPrice:    mats.Total.Add(opts).Round(2),
	}, nil
}

// DesignInput is one design on a line item for aggregate quoting.
type DesignInput struct {
	WidthIn  float64
	HeightIn float64
	Options  []Option
}

// AggregateQuote sums per-design quotes across all designs on a line item.
// Material cost is computed per design and then summed; areas are never
// merged before costing.
type AggregateQuote struct {
	MaterialTotal decimal.Decimal `json:"materialTotal"`
	OptionsTotal  decimal.Decimal `json:"optionsTotal"`
	Total         decimal.Decimal `json:"total"`
	PerDesign     []Quote         `json:"perDesign"`
}

func (c Catalog) QuoteDesigns(designs []DesignInput) (AggregateQuote, error) {
	agg := AggregateQuote{
		MaterialTotal: decimal.Zero,
		OptionsTotal:  decimal.Zero,
		Total:         decimal.Zero,
	}
	for i, d := range designs {
		q, err := c.TotalPrice(d.WidthIn, d.HeightIn, d.Options)
		if err != nil {
			if ae, ok := apperr.As(err); ok {
				// requalify field keys with the design index
				fields := make(map[string]string, len(ae.Fields))
				for k, v := range ae.Fields {
					fields[fmt.Sprintf("designs[%d].%s", i, k)] = v
				}
				return AggregateQuote{}, apperr.InvalidErr(ae.PublicMsg, fields)
			}
			return AggregateQuote{}, err
		}
		agg.PerDesign = append(agg.PerDesign, q)
		agg.MaterialTotal = agg.MaterialTotal.Add(q.MaterialCosts.Total)
		agg.OptionsTotal = agg.OptionsTotal.Add(q.OptionsPrice)
	}
	agg.MaterialTotal = agg.MaterialTotal.Round(2)
	agg.OptionsTotal = agg.OptionsTotal.Round(2)
	agg.Total = agg.MaterialTotal.Add(agg.OptionsTotal).Round(2)
	return agg, nil
}

// OptionPrice coerces a stored option price (number or numeric string) to a
// decimal. Unparsable values are treated as zero, never an error.
func OptionPrice(v any) decimal.Decimal {
	switch p := v.(type) {
	case nil:
		return decimal.Zero
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(p).Round(2)
	case float32:
		return decimal.NewFromFloat32(p).Round(2)
	case int:
		return decimal.NewFromInt(int64(p))
	case int64:
		return decimal.NewFromInt(p)
	case json.Number:
		d, err := decimal.NewFromString(p.String())
		if err != nil {
			return decimal.Zero
		}
		return d.Round(2)
	case string:
		d, err := decimal.NewFromString(p)
		if err != nil {
			return decimal.Zero
		}
		return d.Round(2)
	case decimal.Decimal:
		return p.Round(2)
	default:
		return decimal.Zero
	}
}

// normalizeDimensions rounds incoming dimensions to two decimals and
// validates the allowed range, naming the offending field.
func normalizeDimensions(widthIn, heightIn float64) (float64, float64, error) {
	w := round2f(widthIn)
	h := round2f(heightIn)

	fields := map[string]string{}
	if msg := dimensionError(w); msg != "" {
		fields["width"] = msg
	}
	if msg := dimensionError(h); msg != "" {
		fields["height"] = msg
	}
	if len(fields) > 0 {
		return 0, 0, apperr.InvalidErr("Invalid design dimensions.", fields)
	}
	return w, h, nil
}

func dimensionError(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "must be a number"
	case v <= 0:
		return "must be greater than zero"
	case v < MinDimensionIn:
		return fmt.Sprintf("must be at least %.1f inches", MinDimensionIn)
	case v > MaxDimensionIn:
		return fmt.Sprintf("must be at most %.0f inches", MaxDimensionIn)
	default:
		return ""
	}
}

func round2f(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.Round(v*100) / 100
}
