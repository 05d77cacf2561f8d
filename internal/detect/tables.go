// Package detect classifies NTLM network logons: normalization and
// filtering of raw events, privilege correlation, and the legitimacy
// heuristic chain.
package detect

// Security event IDs the engine correlates.
const (
	EventLogon             = 4624
	EventExplicitCredLogon = 4648
	EventObjectAccess      = 4663
	EventSpecialPrivileges = 4672
	EventKerberosTGT       = 4768
	EventKerberosTGS       = 4769
)

// 4624 logon type codes.
const (
	LogonTypeInteractive       = "2"
	LogonTypeNetwork           = "3"
	LogonTypeUnlock            = "7"
	LogonTypeNewCredentials    = "9"
	LogonTypeRemoteInteractive = "10"
	LogonTypeCachedInteractive = "11"
)

// LogonTypeNames maps 4624 logon type codes to display names.
var LogonTypeNames = map[string]string{
	"2":  "Interactive",
	"3":  "Network",
	"4":  "Batch",
	"5":  "Service",
	"7":  "Unlock",
	"8":  "NetworkCleartext",
	"9":  "NewCredentials",
	"10": "RemoteInteractive",
	"11": "CachedInteractive",
}

// InteractiveLogonTypes are the logon types accepted as prior-logon
// evidence by the BY_SOURCE technique.
var InteractiveLogonTypes = map[string]bool{
	LogonTypeInteractive:       true,
	LogonTypeUnlock:            true,
	LogonTypeRemoteInteractive: true,
	LogonTypeCachedInteractive: true,
}

// WellKnownSIDs are built-in identities that are never attack targets of
// interest; events for them are dropped before classification.
var WellKnownSIDs = map[string]string{
	"S-1-0-0":      "Nobody",
	"S-1-1-0":      "Everyone",
	"S-1-2-0":      "Local",
	"S-1-2-1":      "Console Logon",
	"S-1-3-0":      "Creator Owner",
	"S-1-5-1":      "Dialup",
	"S-1-5-2":      "Network",
	"S-1-5-3":      "Batch",
	"S-1-5-4":      "Interactive",
	"S-1-5-6":      "Service",
	"S-1-5-7":      "Anonymous Logon",
	"S-1-5-9":      "Enterprise Domain Controllers",
	"S-1-5-11":     "Authenticated Users",
	"S-1-5-12":     "Restricted Code",
	"S-1-5-18":     "Local System",
	"S-1-5-19":     "Local Service",
	"S-1-5-20":     "Network Service",
	"S-1-5-32-544": "Administrators",
	"S-1-5-32-545": "Users",
	"S-1-5-32-546": "Guests",
}

// NullSID marks the anonymous subject on NTLM network logons; it is part
// of the raw 4624 pre-filter.
const NullSID = "S-1-0-0"

// SystemProcessID is the kernel process in 4648 events.
const SystemProcessID = "0x4"
