// Package types defines the core data structures for ketshash
package types

import (
	"time"
)

// Record is one raw event retrieved from a security event log channel.
// Fields holds the EventData name/value pairs exactly as rendered.
type Record struct {
	Host     string            `json:"host"`
	Channel  string            `json:"channel"`
	Provider string            `json:"provider"`
	EventID  uint32            `json:"event_id"`
	Time     time.Time         `json:"time"`
	Fields   map[string]string `json:"fields"`
}

// Field returns the named EventData field, or "" if absent.
func (r *Record) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// LogonEvent is one observed NTLM network logon, normalized from a raw
// 4624 record. Immutable once built.
type LogonEvent struct {
	TargetUserSID     string    `json:"target_user_sid"`
	TargetUserName    string    `json:"target_user_name"`
	TargetDomainName  string    `json:"target_domain_name"`
	TargetLogonID     string    `json:"target_logon_id"`
	SourceWorkstation string    `json:"source_workstation"`
	SourceIP          string    `json:"source_ip"`
	DestWorkstation   string    `json:"dest_workstation"`
	DestIP            string    `json:"dest_ip"`
	Time              time.Time `json:"time"`
}

// Account returns the DOMAIN\user form of the target account.
func (e *LogonEvent) Account() string {
	if e.TargetDomainName == "" {
		return e.TargetUserName
	}
	return e.TargetDomainName + "\\" + e.TargetUserName
}

// Verdict is the outcome of the legitimacy chain for one logon event.
// Evidence lines are ordered as the chain produced them.
type Verdict struct {
	ID         string     `json:"id"`
	Legitimate bool       `json:"legitimate"`
	Evidence   []string   `json:"evidence"`
	Event      LogonEvent `json:"event"`
}
