package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/shared/apperr"
)

func TestRate_Domestic(t *testing.T) {
	parcels := []Parcel{{Quantity: 2}, {Quantity: 1}}

	std, err := Rate(MethodStandard, "US", parcels)
	require.NoError(t, err)
	assert.Equal(t, 599+50*3, std.PriceCents)
	assert.Equal(t, 7, std.ETADays)

	exp, err := Rate(MethodExpress, "us", parcels)
	require.NoError(t, err)
	assert.Equal(t, 1499+75*3, exp.PriceCents)
	assert.Equal(t, 2, exp.ETADays)
}

func TestRate_InternationalSurcharge(t *testing.T) {
	q, err := Rate(MethodStandard, "DE", []Parcel{{Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, (599+50)*2, q.PriceCents)
	assert.Equal(t, 14, q.ETADays)
}

func TestRate_ZeroQuantityCountsAsOne(t *testing.T) {
	q, err := Rate(MethodStandard, "US", []Parcel{{Quantity: 0}})
	require.NoError(t, err)
	assert.Equal(t, 599+50, q.PriceCents)
}

func TestRate_UnknownMethod(t *testing.T) {
	_, err := Rate("overnight", "US", []Parcel{{Quantity: 1}})
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Invalid, ae.Kind)
	assert.Contains(t, ae.Fields, "shipping_method")
}
