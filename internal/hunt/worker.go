package hunt

import (
	"context"
	"time"

	"github.com/lma1216/ketshash/internal/config"
	"github.com/lma1216/ketshash/internal/detect"
	"github.com/lma1216/ketshash/internal/directory"
	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/pkg/types"
)

// clockSkewWarn is the host/engine clock offset that triggers a warning.
// Detection proceeds regardless; correlation accuracy may degrade.
const clockSkewWarn = 3 * time.Second

// Reporter consumes verdicts. Implementations serialize their own sinks.
type Reporter interface {
	Report(v types.Verdict)
}

// Worker drives one host's poll loop: retrieve the window's NTLM logons,
// run each through classification, privilege filtering and the
// legitimacy chain, and forward verdicts to the reporter. All mutable
// state is owned by the worker; cross-worker coupling is limited to the
// read-only configuration and the reporter.
type Worker struct {
	host string
	cfg  config.Config
	src  eventlog.Source
	res  directory.Resolver
	rep  Reporter

	classifier *detect.Classifier
	privilege  *detect.PrivilegeFilter
	legitimacy *detect.Legitimacy

	win          Window
	unreachable  bool
	outageCycles int
}

// NewWorker builds a worker for one target host.
func NewWorker(host string, cfg config.Config, src eventlog.Source, res directory.Resolver, rep Reporter) *Worker {
	return &Worker{
		host:       host,
		cfg:        cfg,
		src:        src,
		res:        res,
		rep:        rep,
		classifier: detect.NewClassifier(res, cfg.PollInterval),
		privilege:  detect.NewPrivilegeFilter(src),
		legitimacy: detect.NewLegitimacy(src, res, cfg),
		win:        Window{Start: cfg.StartTime},
	}
}

// Run polls until the context is cancelled. Cancellation is cooperative:
// it is observed between cycles, never mid-query, so there are no
// partial writes to unwind.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info("worker %s: starting, window from %s", w.host, w.win.Start.Format(time.DateTime))
	w.warnOnClockSkew()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker %s: stopped", w.host)
			return nil
		case <-time.After(w.cfg.PollInterval):
		}

		w.cycle(time.Now())
	}
}

// cycle runs one poll iteration against the host.
func (w *Worker) cycle(now time.Time) {
	w.win.Open(now, w.cfg.PollInterval)

	if !w.src.Reachable(w.host) {
		if !w.unreachable {
			logger.Warn("worker %s: unreachable, widening window until connectivity resumes", w.host)
			w.unreachable = true
		}
		w.outageCycles++
		return
	}

	if w.unreachable {
		logger.Info("worker %s: reachable again, window widened across %d missed cycles",
			w.host, w.outageCycles)
		w.unreachable = false
		w.outageCycles = 0
	}

	records := w.src.Events(detect.NTLMQuery(w.host, w.win.Start, w.win.End))
	for i := range records {
		w.process(&records[i])
	}

	w.win.Advance()
}

func (w *Worker) process(rec *types.Record) {
	ev, ok := w.classifier.Normalize(rec, w.win.prev)
	if !ok {
		return
	}
	w.win.prev = ev

	if !w.privilege.IsPrivileged(ev) {
		return
	}

	verdict := w.legitimacy.Classify(ev)
	w.rep.Report(verdict)
}

func (w *Worker) warnOnClockSkew() {
	skew, err := w.res.ClockSkew(w.host)
	if err != nil {
		logger.Debug("worker %s: clock probe failed: %v", w.host, err)
		return
	}
	if skew < 0 {
		skew = -skew
	}
	if skew >= clockSkewWarn {
		logger.Warn("worker %s: clock skew of %v against this machine; correlation windows may misalign", w.host, skew)
	}
}
