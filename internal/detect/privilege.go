package detect

import (
	"strings"
	"time"

	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/pkg/types"
)

// The 4672 correlate lands within a few seconds of its 4624 on the same
// host; the asymmetric window absorbs ordering jitter between the two.
const (
	privilegeWindowBefore = 3 * time.Second
	privilegeWindowAfter  = 2 * time.Second
)

// PrivilegeFilter confirms a logon carries elevated rights via the
// "special privileges assigned" correlate on the destination host.
// Non-privileged logons are dropped, which bounds the engine's attention
// to accounts that matter for lateral-movement risk.
type PrivilegeFilter struct {
	src eventlog.Source
}

// NewPrivilegeFilter builds a PrivilegeFilter over the event source.
func NewPrivilegeFilter(src eventlog.Source) *PrivilegeFilter {
	return &PrivilegeFilter{src: src}
}

// IsPrivileged reports whether a 4672 event with the logon's session
// token exists on the destination host around the logon time.
func (f *PrivilegeFilter) IsPrivileged(ev *types.LogonEvent) bool {
	records := f.src.Events(eventlog.Query{
		Host:     ev.DestWorkstation,
		Channel:  eventlog.ChannelSecurity,
		EventIDs: []uint32{EventSpecialPrivileges},
		Start:    ev.Time.Add(-privilegeWindowBefore),
		End:      ev.Time.Add(privilegeWindowAfter),
	})

	for i := range records {
		if strings.EqualFold(records[i].Field("SubjectLogonId"), ev.TargetLogonID) {
			return true
		}
	}

	logger.Debug("privilege: no 4672 correlate for logon %s on %s, dropping",
		ev.TargetLogonID, ev.DestWorkstation)
	return false
}
