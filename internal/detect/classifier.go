package detect

import (
	"strings"
	"time"

	"github.com/lma1216/ketshash/internal/directory"
	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/pkg/types"
)

// NTLMQuery builds the raw query for candidate NTLM network logons on a
// host: 4624, logon type Network, NTLM package, anonymous subject.
func NTLMQuery(host string, start, end time.Time) eventlog.Query {
	return eventlog.Query{
		Host:     host,
		Channel:  eventlog.ChannelSecurity,
		EventIDs: []uint32{EventLogon},
		Start:    start,
		End:      end,
		DataFilters: map[string]string{
			"LogonType":                 LogonTypeNetwork,
			"AuthenticationPackageName": "NTLM",
			"SubjectUserSid":            NullSID,
		},
	}
}

// Classifier normalizes raw NTLM logon records into LogonEvents and
// applies the rejection rules. Drops are silent: no verdict is emitted
// for rejected events.
type Classifier struct {
	resolver     directory.Resolver
	pollInterval time.Duration
}

// NewClassifier builds a Classifier.
func NewClassifier(resolver directory.Resolver, pollInterval time.Duration) *Classifier {
	return &Classifier{resolver: resolver, pollInterval: pollInterval}
}

// Normalize builds a LogonEvent from a raw 4624 record. The second
// return is false when the event is rejected. prev is the last event the
// caller processed, used only for duplicate suppression across
// overlapping poll windows.
func (c *Classifier) Normalize(rec *types.Record, prev *types.LogonEvent) (*types.LogonEvent, bool) {
	sid := rec.Field("TargetUserSid")

	// Unknown accounts first: an unresolvable identity is dropped with a
	// warning, before the well-known table is even consulted.
	if _, ok := c.resolver.AccountName(sid); !ok {
		logger.Warn("classifier: dropping logon with unresolvable SID %q on %s", sid, rec.Host)
		return nil, false
	}

	if name, wellKnown := WellKnownSIDs[sid]; sid == "" || wellKnown {
		logger.Debug("classifier: ignoring well-known identity %s (%s)", sid, name)
		return nil, false
	}

	workstation := rec.Field("WorkstationName")
	if workstation == "" {
		logger.Debug("classifier: dropping logon for %s with empty source workstation", sid)
		return nil, false
	}

	if prev != nil &&
		prev.TargetUserSID == sid &&
		strings.EqualFold(prev.SourceWorkstation, workstation) &&
		rec.Time.Sub(prev.Time) < c.pollInterval {
		logger.Debug("classifier: suppressing duplicate logon for %s from %s", sid, workstation)
		return nil, false
	}

	sourceIP := directory.FirstAddr(c.resolver, workstation)
	if sourceIP == "" {
		// The record's own address field is the fallback when the
		// workstation name does not resolve.
		sourceIP = rec.Field("IpAddress")
	}

	return &types.LogonEvent{
		TargetUserSID:     sid,
		TargetUserName:    rec.Field("TargetUserName"),
		TargetDomainName:  rec.Field("TargetDomainName"),
		TargetLogonID:     rec.Field("TargetLogonId"),
		SourceWorkstation: workstation,
		SourceIP:          sourceIP,
		DestWorkstation:   rec.Host,
		DestIP:            directory.FirstAddr(c.resolver, rec.Host),
		Time:              rec.Time,
	}, true
}
