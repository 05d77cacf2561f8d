// Package config holds the process-wide detection configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// Technique selects the evidence source for the prior-logon check.
type Technique string

const (
	// BySource searches interactive-style logons on the source host.
	BySource Technique = "BY_SOURCE"
	// ByKerberos searches ticket issuance on the domain controllers.
	ByKerberos Technique = "BY_KERBEROS"
)

// DefaultPollInterval is the fixed sleep between poll cycles.
const DefaultPollInterval = 2 * time.Second

// DefaultLookBackHours bounds the prior-logon evidence search.
const DefaultLookBackHours = 2

// Config is read-only after startup. Each host worker receives it by
// value at construction; there is no ambient global configuration.
type Config struct {
	// Targets are the monitored hosts. Populated either directly or
	// from TargetsFile (newline-delimited, '#' comments allowed).
	Targets     []string
	TargetsFile string

	// Domain is the AD DNS domain used for DC discovery (BY_KERBEROS).
	Domain string

	// StartTime is the left edge of the first poll window.
	// Zero means "process start".
	StartTime time.Time

	Technique           Technique
	CheckNewCredentials bool

	// LogPath enables the append-only file sink when non-empty.
	LogPath string

	// LookBack is the prior-logon search offset. Always negative.
	LookBack time.Duration

	PollInterval time.Duration
}

// Default returns a Config with the standard knobs set.
func Default() Config {
	return Config{
		Technique:    BySource,
		LookBack:     -time.Duration(DefaultLookBackHours) * time.Hour,
		PollInterval: DefaultPollInterval,
	}
}

// Normalize fills derived fields and validates the configuration.
// Configuration mistakes surface here, once, instead of hiding behind
// the transient query-failure path at runtime.
func (c *Config) Normalize() error {
	if c.TargetsFile != "" {
		hosts, err := readTargetsFile(c.TargetsFile)
		if err != nil {
			return err
		}
		c.Targets = append(c.Targets, hosts...)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("no target hosts configured")
	}

	seen := make(map[string]bool, len(c.Targets))
	deduped := c.Targets[:0]
	for _, t := range c.Targets {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToUpper(t)] {
			continue
		}
		seen[strings.ToUpper(t)] = true
		deduped = append(deduped, t)
	}
	c.Targets = deduped

	switch c.Technique {
	case BySource, ByKerberos:
	case "":
		c.Technique = BySource
	default:
		return fmt.Errorf("unknown technique %q (want %s or %s)", c.Technique, BySource, ByKerberos)
	}

	if c.Technique == ByKerberos && c.Domain == "" {
		return fmt.Errorf("technique %s requires a domain for DC discovery", ByKerberos)
	}

	if c.LookBack == 0 {
		c.LookBack = -time.Duration(DefaultLookBackHours) * time.Hour
	}
	// Stored as a negative offset applied to the NTLM event time.
	if c.LookBack > 0 {
		c.LookBack = -c.LookBack
	}

	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.StartTime.IsZero() {
		c.StartTime = time.Now()
	}

	return nil
}

func readTargetsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()

	var hosts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}
	return hosts, nil
}
