// Package report renders verdicts to the console and the log sink.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/pkg/types"
)

const rule = "────────────────────────────────────────────────────────────"

// Console writes verdict reports. Console output is serialized across
// workers by the reporter's own mutex; the file sink additionally goes
// through the logger's bounded-wait acquire, and a contended sink drops
// the file copy only.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// New returns a reporter writing to stdout.
func New() *Console {
	return &Console{out: os.Stdout}
}

// NewWriter returns a reporter writing to w.
func NewWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Report renders the verdict to the console and the file sink.
func (c *Console) Report(v types.Verdict) {
	lines := Lines(v)

	c.mu.Lock()
	c.render(v, lines)
	c.mu.Unlock()

	if logger.GetLogPath() == "" {
		return
	}
	if !logger.Report(lines) {
		c.mu.Lock()
		fmt.Fprintln(c.out, WarnStyle.Render("  ! log sink busy; report kept on console only"))
		c.mu.Unlock()
	}
}

func (c *Console) render(v types.Verdict, lines []string) {
	headerStyle := SuspiciousStyle
	if v.Legitimate {
		headerStyle = LegitimateStyle
	}

	fmt.Fprintln(c.out, RuleStyle.Render(rule))
	fmt.Fprintln(c.out, headerStyle.Render(lines[0]))
	for _, line := range lines[1:] {
		fmt.Fprintln(c.out, EvidenceStyle.Render(line))
	}
	fmt.Fprintln(c.out, RuleStyle.Render(rule))
}

// Lines builds the fixed multi-line report, uncolored. The same lines go
// to the file sink.
func Lines(v types.Verdict) []string {
	header := "SUSPICIOUS NTLM CONNECTION"
	if v.Legitimate {
		header = "Legitimate NTLM connection"
	}

	ev := v.Event
	lines := []string{
		header,
		fmt.Sprintf("  Account:      %s (%s)", ev.Account(), ev.TargetUserSID),
		fmt.Sprintf("  Source:       %s (%s)", ev.SourceWorkstation, orDash(ev.SourceIP)),
		fmt.Sprintf("  Destination:  %s (%s)", ev.DestWorkstation, orDash(ev.DestIP)),
		fmt.Sprintf("  Logon ID:     %s", ev.TargetLogonID),
		fmt.Sprintf("  Time:         %s", ev.Time.Format(time.DateTime)),
	}

	if len(v.Evidence) > 0 {
		lines = append(lines, "  Evidence:")
		for _, e := range v.Evidence {
			lines = append(lines, "    - "+e)
		}
	}

	return append(lines, fmt.Sprintf("  Report ID:    %s", v.ID))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
