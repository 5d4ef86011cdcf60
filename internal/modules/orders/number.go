package orders

import (
	"fmt"
	"time"
)

// Number builds a human-readable order number from a timestamp component
// and the review id. The combination is collision-free without a central
// sequence: a review materializes at most one order.
func Number(reviewID uint64, t time.Time) string {
	return fmt.Sprintf("MC-%s-%d", t.UTC().Format("20060102-150405"), reviewID)
}
