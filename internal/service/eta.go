package service

import (
	"fmt"
	"time"
)

const (
	etaBaseDelay   = 30 * time.Minute
	etaPerDelivery = 5 * time.Minute
	etaWindow      = 2 * time.Hour
)

// EstimatedTimeRange renders the arrival window for the delivery at the
// given route position (1-based): the window opens after a base delay plus a
// per-stop increment and spans two hours.
func EstimatedTimeRange(position int, start time.Time) string {
	from := start.Add(etaBaseDelay + time.Duration(position)*etaPerDelivery)
	to := from.Add(etaWindow)
	return fmt.Sprintf("%s-%s", from.Format("15:04"), to.Format("15:04"))
}
