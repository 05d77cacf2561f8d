// Package directory resolves identities against the local security
// authority, Active Directory and DNS.
package directory

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/lma1216/ketshash/internal/logger"
)

// Computer is a directory-registered machine account.
type Computer struct {
	Name      string
	OSVersion string
}

// Legacy reports whether the host predates Windows 8 / Server 2012
// (NT version < 6.2). Legacy hosts do not stamp outbound identity
// fields on NewCredentials logons.
func (c Computer) Legacy() bool {
	major, minor, ok := parseNTVersion(c.OSVersion)
	if !ok {
		return false
	}
	return major < 6 || (major == 6 && minor < 2)
}

// Resolver is the identity lookup contract the detection engine depends
// on. Lookups report ok=false instead of errors; an unresolvable identity
// drops the event at the caller with a warning.
type Resolver interface {
	// AccountName resolves a SID string to DOMAIN\name form.
	AccountName(sid string) (string, bool)

	// AccountSID resolves an account to its SID string.
	AccountSID(domain, user string) (string, bool)

	// Computer looks up a machine by name in the directory.
	Computer(name string) (Computer, bool)

	// Addrs resolves a hostname to its IP address strings.
	Addrs(host string) []string

	// DomainControllers lists the DCs serving the domain.
	DomainControllers(domain string) []string

	// ClockSkew measures the offset between the host's clock and ours.
	ClockSkew(host string) (time.Duration, error)
}

// FirstAddr returns the host's first resolved address via r, or "".
func FirstAddr(r Resolver, host string) string {
	addrs := r.Addrs(host)
	if len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}

// LookupAddrs resolves through the default DNS resolver.
func LookupAddrs(host string) []string {
	addrs, err := net.LookupHost(host)
	if err != nil {
		logger.Warn("directory: DNS lookup for %q failed: %v", host, err)
		return nil
	}
	return addrs
}

// LookupDCs discovers domain controllers through the standard
// _ldap._tcp.dc._msdcs SRV records.
func LookupDCs(domain string) []string {
	_, srvs, err := net.LookupSRV("ldap", "tcp", "dc._msdcs."+domain)
	if err != nil {
		logger.Warn("directory: DC discovery for %q failed: %v", domain, err)
		return nil
	}
	var dcs []string
	for _, srv := range srvs {
		dcs = append(dcs, strings.TrimSuffix(srv.Target, "."))
	}
	return dcs
}

// machineName strips the trailing '$' of a machine account and any DNS
// suffix, leaving the bare directory name.
func machineName(name string) string {
	name = strings.TrimSuffix(name, "$")
	short, _, _ := strings.Cut(name, ".")
	return short
}

// parseCIMDatetime parses WMI's CIM_DATETIME format,
// yyyymmddHHMMSS.mmmmmm±UUU, where UUU is the UTC offset in minutes.
func parseCIMDatetime(s string) (time.Time, error) {
	if len(s) != 25 || (s[21] != '+' && s[21] != '-') {
		return time.Time{}, fmt.Errorf("bad CIM datetime %q", s)
	}

	base, err := time.Parse("20060102150405.000000", s[:21])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad CIM datetime %q: %w", s, err)
	}

	offMin, err := strconv.Atoi(s[22:])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad CIM offset in %q: %w", s, err)
	}
	if s[21] == '-' {
		offMin = -offMin
	}

	loc := time.FixedZone("", offMin*60)
	return time.Date(base.Year(), base.Month(), base.Day(),
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), loc), nil
}

func parseNTVersion(v string) (major, minor int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 3)
	if len(parts) < 2 {
		return 0, 0, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	// The build suffix after the second dot is irrelevant here.
	minorStr, _, _ := strings.Cut(parts[1], " ")
	minor, err = strconv.Atoi(minorStr)
	if err != nil {
		return 0, 0, false
	}
	return major, minor, true
}
