package hunt

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lma1216/ketshash/internal/config"
)

func TestHuntRunsOneWorkerPerTarget(t *testing.T) {
	cfg := config.Default()
	cfg.Targets = []string{"SRV01", "SRV02", "SRV03"}
	cfg.StartTime = time.Now()
	cfg.PollInterval = 10 * time.Millisecond

	src := &fakeSource{reachable: true}
	h := New(cfg, src, &fakeResolver{}, &fakeReporter{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	// Let every worker complete at least one poll cycle.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not stop on cancellation")
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	queried := map[string]bool{}
	for _, q := range src.queries {
		queried[strings.ToUpper(q.Host)] = true
	}
	for _, target := range cfg.Targets {
		assert.True(t, queried[strings.ToUpper(target)], "no queries observed for %s", target)
	}
}

func TestHuntStopsPromptly(t *testing.T) {
	cfg := config.Default()
	cfg.Targets = []string{"SRV01"}
	cfg.StartTime = time.Now()

	h := New(cfg, &fakeSource{reachable: true}, &fakeResolver{}, &fakeReporter{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("orchestrator did not observe pre-cancelled context")
	}
}
