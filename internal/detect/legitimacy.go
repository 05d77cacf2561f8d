package detect

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lma1216/ketshash/internal/config"
	"github.com/lma1216/ketshash/internal/directory"
	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/internal/ipcmp"
	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/pkg/types"
)

const (
	// newCredentialsLookBack bounds the runas-style logon search on the
	// source host.
	newCredentialsLookBack = 60 * time.Minute

	// lsassAccessWindow bounds the credential-dump corroboration search
	// around a NewCredentials logon.
	lsassAccessWindow = 5 * time.Second

	// explicitCredWindow bounds the 4648 search around the NTLM logon.
	explicitCredWindow = 5 * time.Second

	// processVMWrite is the memory-write access right in 4663 masks.
	processVMWrite = 0x20
)

// Legitimacy runs the heuristic evidence chain over a privileged NTLM
// logon and produces a verdict. The chain short-circuits:
//
//  1. unknown source computer        -> suspicious, stop
//  2. new-credentials usage          -> suspicious, stop (never overturned)
//  3. prior logon (technique-bound)  -> legitimate
//  4. explicit credentials           -> legitimate
//  5. otherwise                      -> suspicious
type Legitimacy struct {
	src eventlog.Source
	res directory.Resolver
	cfg config.Config
}

// NewLegitimacy builds the classifier. cfg is read-only.
func NewLegitimacy(src eventlog.Source, res directory.Resolver, cfg config.Config) *Legitimacy {
	return &Legitimacy{src: src, res: res, cfg: cfg}
}

// Classify produces the verdict and its ordered evidence trail.
func (l *Legitimacy) Classify(ev *types.LogonEvent) types.Verdict {
	verdict := types.Verdict{
		ID:    uuid.New().String(),
		Event: *ev,
	}

	source, known := l.res.Computer(ev.SourceWorkstation)
	if !known {
		verdict.Evidence = append(verdict.Evidence,
			fmt.Sprintf("remote login from unidentified computer %q", ev.SourceWorkstation))
		return verdict
	}

	if l.cfg.CheckNewCredentials {
		if evidence := l.newCredentials(ev, source); len(evidence) > 0 {
			// New-credential usage settles the verdict. Prior-logon or
			// explicit-credential evidence is not consulted even when it
			// would otherwise qualify.
			verdict.Evidence = append(verdict.Evidence, evidence...)
			return verdict
		}
	}

	var priorEvidence string
	var found bool
	if l.cfg.Technique == config.ByKerberos {
		priorEvidence, found = l.priorKerberosTicket(ev)
	} else {
		priorEvidence, found = l.priorInteractiveLogon(ev)
	}
	if found {
		verdict.Legitimate = true
		verdict.Evidence = append(verdict.Evidence, priorEvidence)
		return verdict
	}

	if l.explicitCredentials(ev) {
		verdict.Legitimate = true
		verdict.Evidence = append(verdict.Evidence, "explicit credentials used")
		return verdict
	}

	return verdict
}

// newCredentials searches the source host for runas-style logons
// (4624 type 9 via Negotiate) attributable to the target account. Any
// match is treated as inherently suspicious. On legacy hosts the outbound
// identity fields are absent, so a CredSSP event in the LSA operational
// log stands in for the identity match.
func (l *Legitimacy) newCredentials(ev *types.LogonEvent, source directory.Computer) []string {
	records := l.src.Events(eventlog.Query{
		Host:     ev.SourceWorkstation,
		Channel:  eventlog.ChannelSecurity,
		EventIDs: []uint32{EventLogon},
		Start:    ev.Time.Add(-newCredentialsLookBack),
		End:      ev.Time,
		DataFilters: map[string]string{
			"LogonType":                 LogonTypeNewCredentials,
			"AuthenticationPackageName": "Negotiate",
		},
	})

	for i := range records {
		rec := &records[i]

		if !l.newCredentialsMatch(ev, source, rec) {
			continue
		}

		evidence := []string{fmt.Sprintf(
			"new credentials (runas-style) logon for %s on %s at %s",
			ev.Account(), ev.SourceWorkstation, rec.Time.Format(time.DateTime))}

		if line, dumped := l.lsassMemoryWrite(ev.SourceWorkstation, rec); dumped {
			evidence = append(evidence, line)
		}
		return evidence
	}
	return nil
}

func (l *Legitimacy) newCredentialsMatch(ev *types.LogonEvent, source directory.Computer, rec *types.Record) bool {
	if source.Legacy() {
		// No TargetOutbound* fields before NT 6.2; fall back to CredSSP
		// activity in the LSA operational log over the same window.
		lsa := l.src.Events(eventlog.Query{
			Host:     ev.SourceWorkstation,
			Channel:  eventlog.ChannelLSA,
			Start:    ev.Time.Add(-newCredentialsLookBack),
			End:      ev.Time,
			Contains: "CredSSP",
		})
		return len(lsa) > 0
	}

	sid, ok := l.res.AccountSID(rec.Field("TargetOutboundDomainName"), rec.Field("TargetOutboundUserName"))
	if !ok {
		return false
	}
	return sid == ev.TargetUserSID
}

// lsassMemoryWrite looks for an object-access event on the LSA process
// with a memory-write right and the new-credentials logon session, the
// signature of credential-dumping tooling.
func (l *Legitimacy) lsassMemoryWrite(host string, newCred *types.Record) (string, bool) {
	records := l.src.Events(eventlog.Query{
		Host:     host,
		Channel:  eventlog.ChannelSecurity,
		EventIDs: []uint32{EventObjectAccess},
		Start:    newCred.Time.Add(-lsassAccessWindow),
		End:      newCred.Time.Add(lsassAccessWindow),
		Contains: "lsass.exe",
	})

	for i := range records {
		rec := &records[i]
		if !strings.EqualFold(rec.Field("SubjectLogonId"), newCred.Field("TargetLogonId")) {
			continue
		}
		if !hasAccessRight(rec.Field("AccessMask"), processVMWrite) {
			continue
		}
		return fmt.Sprintf("LSASS memory write access (mask %s) by logon session %s at %s",
			rec.Field("AccessMask"), rec.Field("SubjectLogonId"),
			rec.Time.Format(time.DateTime)), true
	}
	return "", false
}

// priorInteractiveLogon implements BY_SOURCE: an interactive-style logon
// by the same account on the source host inside the look-back window.
func (l *Legitimacy) priorInteractiveLogon(ev *types.LogonEvent) (string, bool) {
	records := l.src.Events(eventlog.Query{
		Host:     ev.SourceWorkstation,
		Channel:  eventlog.ChannelSecurity,
		EventIDs: []uint32{EventLogon},
		Start:    ev.Time.Add(l.cfg.LookBack),
		End:      ev.Time,
	})

	for i := range records {
		rec := &records[i]
		logonType := rec.Field("LogonType")
		if !InteractiveLogonTypes[logonType] {
			continue
		}
		if rec.Field("TargetUserSid") != ev.TargetUserSID {
			continue
		}
		return fmt.Sprintf("prior %s logon on %s at %s",
			LogonTypeNames[logonType], ev.SourceWorkstation,
			rec.Time.Format(time.DateTime)), true
	}
	return "", false
}

// priorKerberosTicket implements BY_KERBEROS: a TGT or TGS issued to the
// same account from the same source address, on any domain controller.
func (l *Legitimacy) priorKerberosTicket(ev *types.LogonEvent) (string, bool) {
	dcs := l.res.DomainControllers(l.cfg.Domain)
	if len(dcs) == 0 {
		logger.Warn("legitimacy: no domain controllers found for %q", l.cfg.Domain)
		return "", false
	}

	for _, dc := range dcs {
		records := l.src.Events(eventlog.Query{
			Host:     dc,
			Channel:  eventlog.ChannelSecurity,
			EventIDs: []uint32{EventKerberosTGT, EventKerberosTGS},
			Start:    ev.Time.Add(l.cfg.LookBack),
			End:      ev.Time,
		})

		for i := range records {
			rec := &records[i]

			sid, ok := l.res.AccountSID(rec.Field("TargetDomainName"), ticketUserName(rec))
			if !ok || sid != ev.TargetUserSID {
				continue
			}
			if !ipcmp.Equal(rec.Field("IpAddress"), ev.SourceIP) {
				continue
			}

			kind := "TGT"
			if rec.EventID == EventKerberosTGS {
				kind = "TGS"
			}
			return fmt.Sprintf("Kerberos %s issued by %s at %s",
				kind, rec.Host, rec.Time.Format(time.DateTime)), true
		}
	}
	return "", false
}

// ticketUserName extracts the bare account name from a ticket event;
// TGS events carry user@REALM.
func ticketUserName(rec *types.Record) string {
	name, _, _ := strings.Cut(rec.Field("TargetUserName"), "@")
	return name
}

// explicitCredentials looks for a 4648 on the source host around the
// logon time: credentials supplied directly, aimed at the destination.
func (l *Legitimacy) explicitCredentials(ev *types.LogonEvent) bool {
	records := l.src.Events(eventlog.Query{
		Host:     ev.SourceWorkstation,
		Channel:  eventlog.ChannelSecurity,
		EventIDs: []uint32{EventExplicitCredLogon},
		Start:    ev.Time.Add(-explicitCredWindow),
		End:      ev.Time.Add(explicitCredWindow),
	})

	for i := range records {
		rec := &records[i]

		if rec.Field("ProcessId") == SystemProcessID {
			continue
		}

		sid, ok := l.res.AccountSID(rec.Field("TargetDomainName"), rec.Field("TargetUserName"))
		if !ok || sid != ev.TargetUserSID {
			continue
		}

		if l.serverIsDestination(rec.Field("TargetServerName"), ev.DestIP) {
			return true
		}
	}
	return false
}

func (l *Legitimacy) serverIsDestination(server, destIP string) bool {
	if strings.EqualFold(server, "localhost") {
		return true
	}
	for _, addr := range l.res.Addrs(server) {
		if ipcmp.Equal(addr, destIP) {
			return true
		}
	}
	return false
}

// hasAccessRight parses a 4663 access mask like "0x1410" and tests a bit.
func hasAccessRight(mask string, right uint64) bool {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mask)), "0x")
	value, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return false
	}
	return value&right != 0
}
