// Package ipcmp compares address strings as they appear in security events.
//
// Domain controllers report Kerberos client addresses in IPv4-mapped IPv6
// form ("::ffff:10.0.0.5") while 4624 events carry the bare IPv4 string, so
// a plain string compare misses obvious matches.
package ipcmp

import (
	"net"
	"strings"

	"github.com/lma1216/ketshash/internal/logger"
)

// Equal reports whether a and b name the same address. A bare IPv4 address
// is promoted to its IPv4-in-IPv6 mapped form before comparing, so
// "10.0.0.5" equals "::ffff:10.0.0.5". Malformed input is never an error
// past this boundary: it logs a warning and reports false.
func Equal(a, b string) bool {
	ipA := parse(a)
	ipB := parse(b)
	if ipA == nil || ipB == nil {
		return false
	}
	return ipA.To16().Equal(ipB.To16())
}

func parse(s string) net.IP {
	trimmed := strings.TrimSpace(s)
	ip := net.ParseIP(trimmed)
	if ip == nil {
		logger.Warn("ipcmp: malformed address %q", s)
	}
	return ip
}
