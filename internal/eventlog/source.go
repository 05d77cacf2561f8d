// Package eventlog retrieves security events from local and remote
// Windows Event Log channels.
package eventlog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lma1216/ketshash/pkg/types"
)

// Channels queried by the detection engine.
const (
	ChannelSecurity = "Security"
	ChannelLSA      = "Microsoft-Windows-LSA/Operational"
)

// Query describes one time-bounded, filtered retrieval from a host's
// event log channel. The interval is closed on both ends; callers that
// need half-open windows advance Start past the previous End themselves.
type Query struct {
	Host     string
	Channel  string
	EventIDs []uint32
	Start    time.Time
	End      time.Time

	// DataFilters are EventData name/value equality constraints rendered
	// into the XPath, e.g. {"LogonType": "3"}.
	DataFilters map[string]string

	// Contains is a client-side substring filter over the rendered event
	// XML, for content the XPath dialect cannot reach (message text).
	Contains string
}

// Source is the event retrieval contract. Events never returns an error:
// an unreachable host or a failed query yields an empty slice, because
// the detection engine treats "no events" and "query failed" identically
// and retries on the next poll cycle.
type Source interface {
	Events(q Query) []types.Record
	Reachable(host string) bool
}

// XPath renders the query's server-side filter.
func (q Query) XPath() string {
	var clauses []string

	if len(q.EventIDs) > 0 {
		var ids []string
		for _, id := range q.EventIDs {
			ids = append(ids, fmt.Sprintf("EventID=%d", id))
		}
		clauses = append(clauses, fmt.Sprintf("(%s)", strings.Join(ids, " or ")))
	}

	if !q.Start.IsZero() || !q.End.IsZero() {
		clauses = append(clauses, fmt.Sprintf("TimeCreated[@SystemTime>='%s' and @SystemTime<='%s']",
			q.Start.UTC().Format(systemTimeLayout),
			q.End.UTC().Format(systemTimeLayout)))
	}

	var parts []string
	if len(clauses) > 0 {
		parts = append(parts, fmt.Sprintf("System[%s]", strings.Join(clauses, " and ")))
	}

	if len(q.DataFilters) > 0 {
		names := make([]string, 0, len(q.DataFilters))
		for name := range q.DataFilters {
			names = append(names, name)
		}
		sort.Strings(names)

		var conds []string
		for _, name := range names {
			conds = append(conds, fmt.Sprintf("Data[@Name='%s']='%s'", name, q.DataFilters[name]))
		}
		parts = append(parts, fmt.Sprintf("EventData[%s]", strings.Join(conds, " and ")))
	}

	if len(parts) == 0 {
		return "*"
	}
	return fmt.Sprintf("*[%s]", strings.Join(parts, " and "))
}

// systemTimeLayout matches the @SystemTime attribute format.
const systemTimeLayout = "2006-01-02T15:04:05.000Z"
