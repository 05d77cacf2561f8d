package detect

import (
	"strings"
	"time"

	"github.com/lma1216/ketshash/internal/directory"
	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/pkg/types"
)

// fakeSource serves fixture records, applying the same filtering the
// real adapter would, and records every query it sees.
type fakeSource struct {
	records     []types.Record
	queries     []eventlog.Query
	unreachable map[string]bool
}

func (f *fakeSource) Reachable(host string) bool {
	return !f.unreachable[strings.ToUpper(host)]
}

func (f *fakeSource) Events(q eventlog.Query) []types.Record {
	f.queries = append(f.queries, q)
	if f.unreachable[strings.ToUpper(q.Host)] {
		return nil
	}

	var out []types.Record
	for _, r := range f.records {
		if !strings.EqualFold(r.Host, q.Host) {
			continue
		}
		if q.Channel != "" && r.Channel != q.Channel {
			continue
		}
		if len(q.EventIDs) > 0 && !containsID(q.EventIDs, r.EventID) {
			continue
		}
		if !q.Start.IsZero() && r.Time.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && r.Time.After(q.End) {
			continue
		}
		if !fieldsMatch(&r, q.DataFilters) {
			continue
		}
		if q.Contains != "" && !anyFieldContains(&r, q.Contains) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsID(ids []uint32, id uint32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func fieldsMatch(r *types.Record, filters map[string]string) bool {
	for name, want := range filters {
		if r.Fields[name] != want {
			return false
		}
	}
	return true
}

func anyFieldContains(r *types.Record, substr string) bool {
	for _, v := range r.Fields {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}

// fakeResolver resolves from fixture tables.
type fakeResolver struct {
	names     map[string]string             // SID -> DOMAIN\name
	sids      map[string]string             // DOMAIN\user (upper) -> SID
	computers map[string]directory.Computer // upper name -> computer
	addrs     map[string][]string           // upper host -> IPs
	dcs       []string
	skew      time.Duration
	skewErr   error
}

func (f *fakeResolver) AccountName(sid string) (string, bool) {
	name, ok := f.names[sid]
	return name, ok
}

func (f *fakeResolver) AccountSID(domain, user string) (string, bool) {
	key := strings.ToUpper(domain + "\\" + user)
	sid, ok := f.sids[key]
	return sid, ok
}

func (f *fakeResolver) Computer(name string) (directory.Computer, bool) {
	c, ok := f.computers[strings.ToUpper(name)]
	return c, ok
}

func (f *fakeResolver) Addrs(host string) []string {
	return f.addrs[strings.ToUpper(host)]
}

func (f *fakeResolver) DomainControllers(domain string) []string {
	return f.dcs
}

func (f *fakeResolver) ClockSkew(host string) (time.Duration, error) {
	return f.skew, f.skewErr
}

// Fixture shorthand used across the detect tests.

const (
	testSID     = "S-1-5-21-1111111111-2222222222-3333333333-1001"
	testUser    = "jdoe"
	testDomain  = "CORP"
	testSource  = "WKS01"
	testDest    = "SRV01"
	testLogonID = "0x3e7f21"
)

var testTime = time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)

func testResolver() *fakeResolver {
	return &fakeResolver{
		names: map[string]string{testSID: testDomain + "\\" + testUser},
		sids:  map[string]string{testDomain + "\\" + strings.ToUpper(testUser): testSID},
		computers: map[string]directory.Computer{
			testSource: {Name: testSource, OSVersion: "10.0 (19045)"},
			testDest:   {Name: testDest, OSVersion: "10.0 (20348)"},
		},
		addrs: map[string][]string{
			testSource: {"10.0.0.5"},
			testDest:   {"10.0.0.9"},
		},
	}
}

func testLogonEvent() *types.LogonEvent {
	return &types.LogonEvent{
		TargetUserSID:     testSID,
		TargetUserName:    testUser,
		TargetDomainName:  testDomain,
		TargetLogonID:     testLogonID,
		SourceWorkstation: testSource,
		SourceIP:          "10.0.0.5",
		DestWorkstation:   testDest,
		DestIP:            "10.0.0.9",
		Time:              testTime,
	}
}

func ntlmRecord(t time.Time) types.Record {
	return types.Record{
		Host:    testDest,
		Channel: eventlog.ChannelSecurity,
		EventID: EventLogon,
		Time:    t,
		Fields: map[string]string{
			"SubjectUserSid":            NullSID,
			"TargetUserSid":             testSID,
			"TargetUserName":            testUser,
			"TargetDomainName":          testDomain,
			"TargetLogonId":             testLogonID,
			"LogonType":                 LogonTypeNetwork,
			"AuthenticationPackageName": "NTLM",
			"WorkstationName":           testSource,
			"IpAddress":                 "10.0.0.5",
		},
	}
}

func logonRecord(host, logonType string, t time.Time) types.Record {
	return types.Record{
		Host:    host,
		Channel: eventlog.ChannelSecurity,
		EventID: EventLogon,
		Time:    t,
		Fields: map[string]string{
			"TargetUserSid": testSID,
			"LogonType":     logonType,
		},
	}
}

func privilegeRecord(t time.Time, logonID string) types.Record {
	return types.Record{
		Host:    testDest,
		Channel: eventlog.ChannelSecurity,
		EventID: EventSpecialPrivileges,
		Time:    t,
		Fields: map[string]string{
			"SubjectUserSid": testSID,
			"SubjectLogonId": logonID,
		},
	}
}
