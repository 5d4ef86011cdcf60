package shipping

import (
	"strings"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

const (
	MethodStandard = "standard"
	MethodExpress  = "express"
)

// Parcel is one shippable line: quantity of finished patches of a size.
type Parcel struct {
	Quantity int
	WidthIn  float64
	HeightIn float64
}

// Quote is a computed shipping price and delivery estimate.
type Quote struct {
	PriceCents int
	ETADays    int
}

// Rate is a pure function over method, destination country, and parcels.
// Pricing tiers are fixed here; there is no carrier lookup.
func Rate(method, countryCode string, parcels []Parcel) (Quote, error) {
	units := 0
	for _, p := range parcels {
		q := p.Quantity
		if q < 1 {
			q = 1
		}
		units += q
	}

	var q Quote
	switch method {
	case MethodStandard:
		q = Quote{PriceCents: 599 + 50*units, ETADays: 7}
	case MethodExpress:
		q = Quote{PriceCents: 1499 + 75*units, ETADays: 2}
	default:
		return Quote{}, apperr.InvalidErr("Unknown shipping method.", map[string]string{
			"shipping_method": "must be standard or express",
		})
	}

	// international surcharge
	if cc := strings.ToUpper(strings.TrimSpace(countryCode)); cc != "" && cc != "US" {
		q.PriceCents *= 2
		q.ETADays += 7
	}
	return q, nil
}
