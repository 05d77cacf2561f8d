// Package hunt runs the per-host detection workers.
package hunt

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/lma1216/ketshash/internal/config"
	"github.com/lma1216/ketshash/internal/directory"
	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/internal/logger"
)

// maxConcurrentWorkers bounds the supervised group. Large enough that a
// realistic target list never queues, finite so a runaway host file
// cannot exhaust the process.
const maxConcurrentWorkers = 512

// Hunt supervises one worker per target host under a shared cancellation
// context. It runs until the context is cancelled.
type Hunt struct {
	cfg config.Config
	src eventlog.Source
	res directory.Resolver
	rep Reporter
}

// New builds the orchestrator.
func New(cfg config.Config, src eventlog.Source, res directory.Resolver, rep Reporter) *Hunt {
	return &Hunt{cfg: cfg, src: src, res: res, rep: rep}
}

// Run spawns the workers and blocks until all have stopped. Workers stop
// only on cancellation; a persistently failing host keeps cycling inside
// its own worker and never takes the others down.
func (h *Hunt) Run(ctx context.Context) error {
	logger.Section("hunt")
	logger.Info("starting %d host workers (technique %s, new-credentials check %v)",
		len(h.cfg.Targets), h.cfg.Technique, h.cfg.CheckNewCredentials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWorkers)

	for _, host := range h.cfg.Targets {
		host := host
		g.Go(func() error {
			return NewWorker(host, h.cfg, h.src, h.res, h.rep).Run(ctx)
		})
	}

	err := g.Wait()
	logger.Info("all host workers stopped")
	return err
}
