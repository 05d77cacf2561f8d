//go:build windows

package directory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lma1216/ketshash/internal/logger"
	"golang.org/x/sys/windows"
)

// ADResolver resolves identities through the local security authority
// (SID lookups), the directory's LDAP WMI provider (machine accounts)
// and DNS. Lookup results are cached; monitored environments repeat the
// same identities on nearly every event.
type ADResolver struct {
	// dc is the preferred server for directory WMI queries. Empty means
	// the local machine's provider (fine on any domain-joined host).
	dc string

	mu        sync.Mutex
	names     map[string]lookupResult[string]
	sids      map[string]lookupResult[string]
	computers map[string]lookupResult[Computer]
	addrs     map[string][]string
}

type lookupResult[T any] struct {
	value T
	ok    bool
}

// NewADResolver builds a resolver. dc may be empty.
func NewADResolver(dc string) *ADResolver {
	return &ADResolver{
		dc:        dc,
		names:     make(map[string]lookupResult[string]),
		sids:      make(map[string]lookupResult[string]),
		computers: make(map[string]lookupResult[Computer]),
		addrs:     make(map[string][]string),
	}
}

// AccountName resolves a SID string to DOMAIN\name form.
func (r *ADResolver) AccountName(sidStr string) (string, bool) {
	r.mu.Lock()
	if cached, ok := r.names[sidStr]; ok {
		r.mu.Unlock()
		return cached.value, cached.ok
	}
	r.mu.Unlock()

	name, ok := lookupAccountName(sidStr)

	r.mu.Lock()
	r.names[sidStr] = lookupResult[string]{name, ok}
	r.mu.Unlock()
	return name, ok
}

// AccountSID resolves an account to its SID string.
func (r *ADResolver) AccountSID(domain, user string) (string, bool) {
	account := user
	if domain != "" {
		account = domain + "\\" + user
	}

	r.mu.Lock()
	if cached, ok := r.sids[strings.ToUpper(account)]; ok {
		r.mu.Unlock()
		return cached.value, cached.ok
	}
	r.mu.Unlock()

	sidStr, ok := lookupAccountSID(account)

	r.mu.Lock()
	r.sids[strings.ToUpper(account)] = lookupResult[string]{sidStr, ok}
	r.mu.Unlock()
	return sidStr, ok
}

// Computer looks up a machine account in the directory through the
// root\directory\LDAP WMI provider and returns its OS version.
func (r *ADResolver) Computer(name string) (Computer, bool) {
	key := strings.ToUpper(machineName(name))

	r.mu.Lock()
	if cached, ok := r.computers[key]; ok {
		r.mu.Unlock()
		return cached.value, cached.ok
	}
	r.mu.Unlock()

	comp, ok := r.queryComputer(machineName(name))

	r.mu.Lock()
	r.computers[key] = lookupResult[Computer]{comp, ok}
	r.mu.Unlock()
	return comp, ok
}

func (r *ADResolver) queryComputer(name string) (Computer, bool) {
	if strings.ContainsAny(name, "'\"") {
		logger.Warn("directory: refusing computer lookup for %q", name)
		return Computer{}, false
	}

	query := fmt.Sprintf(
		"SELECT DS_name, DS_operatingSystemVersion FROM DS_computer WHERE DS_name='%s'", name)
	rows, err := wmiQueryFields(r.dc, `root\directory\LDAP`, query,
		[]string{"DS_name", "DS_operatingSystemVersion"})
	if err != nil {
		logger.Warn("directory: computer lookup for %q failed: %v", name, err)
		return Computer{}, false
	}
	if len(rows) == 0 {
		return Computer{}, false
	}

	return Computer{
		Name:      rows[0]["DS_name"],
		OSVersion: rows[0]["DS_operatingSystemVersion"],
	}, true
}

// Addrs resolves a hostname through DNS, cached.
func (r *ADResolver) Addrs(host string) []string {
	key := strings.ToUpper(host)

	r.mu.Lock()
	if cached, ok := r.addrs[key]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	addrs := LookupAddrs(host)

	r.mu.Lock()
	r.addrs[key] = addrs
	r.mu.Unlock()
	return addrs
}

// DomainControllers lists the DCs serving the domain via SRV discovery.
func (r *ADResolver) DomainControllers(domain string) []string {
	return LookupDCs(domain)
}

// ClockSkew reads the host's local time over WMI and returns the offset
// from our clock. Positive means the host's clock is ahead.
func (r *ADResolver) ClockSkew(host string) (time.Duration, error) {
	rows, err := wmiQueryFields(host, `root\cimv2`,
		"SELECT LocalDateTime FROM Win32_OperatingSystem", []string{"LocalDateTime"})
	if err != nil {
		return 0, fmt.Errorf("remote clock query: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("remote clock query: no Win32_OperatingSystem row")
	}

	remote, err := parseCIMDatetime(rows[0]["LocalDateTime"])
	if err != nil {
		return 0, err
	}
	return remote.Sub(time.Now()), nil
}

func lookupAccountName(sidStr string) (string, bool) {
	sid, err := windows.StringToSid(sidStr)
	if err != nil {
		logger.Warn("directory: bad SID %q: %v", sidStr, err)
		return "", false
	}
	account, domain, _, err := sid.LookupAccount("")
	if err != nil {
		logger.Debug("directory: no account for SID %s: %v", sidStr, err)
		return "", false
	}
	if domain == "" {
		return account, true
	}
	return domain + "\\" + account, true
}

func lookupAccountSID(account string) (string, bool) {
	sid, _, _, err := windows.LookupSID("", account)
	if err != nil {
		logger.Debug("directory: no SID for account %q: %v", account, err)
		return "", false
	}
	return sid.String(), true
}
