package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	at := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, "MC-20260830-140509-42", Number(42, at))
}

func TestNumber_UsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	local := time.Date(2026, 8, 30, 16, 5, 9, 0, loc)
	utc := time.Date(2026, 8, 30, 14, 5, 9, 0, time.UTC)
	assert.Equal(t, Number(7, utc), Number(7, local))
}
