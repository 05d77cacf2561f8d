package hunt

import (
	"time"

	"github.com/lma1216/ketshash/pkg/types"
)

// windowTick is one FILETIME tick (100ns), the event log's timestamp
// resolution. Successive windows are separated by exactly one tick since
// the query interval is closed on both ends.
const windowTick = 100 * time.Nanosecond

// Window is one host's poll interval state. Owned exclusively by that
// host's worker; never shared.
type Window struct {
	Start time.Time
	End   time.Time

	// prev is the last normalized event, kept only for duplicate
	// suppression across overlapping windows.
	prev *types.LogonEvent
}

// Open widens the window backwards by the poll interval and sets its
// right edge, stripping the fractional-second remainder from now. The
// widening is what makes an unreachable stretch lossless: until a query
// succeeds, Start only ever recedes.
func (w *Window) Open(now time.Time, pollInterval time.Duration) {
	w.Start = w.Start.Add(-pollInterval)
	w.End = now.Truncate(time.Second)
}

// Advance moves the left edge past the just-queried interval. Only
// called after a successful query.
func (w *Window) Advance() {
	w.Start = w.End.Add(windowTick)
}
