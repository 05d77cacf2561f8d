//go:build windows

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/lma1216/ketshash/internal/config"
	"github.com/lma1216/ketshash/internal/directory"
	"github.com/lma1216/ketshash/internal/eventlog"
	"github.com/lma1216/ketshash/internal/hunt"
	"github.com/lma1216/ketshash/internal/logger"
	"github.com/lma1216/ketshash/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		targets     = flag.String("targets", "", "comma-separated monitored hosts")
		targetsFile = flag.String("targets-file", "", "path to a newline-delimited host list")
		domain      = flag.String("domain", "", "AD DNS domain, used for DC discovery")
		start       = flag.String("start", "", "detection start time (RFC3339); default is now")
		kerberos    = flag.Bool("kerberos", false, "use Kerberos ticket evidence instead of source-host logons")
		newCreds    = flag.Bool("check-new-credentials", false, "also hunt runas-style new-credential logons")
		logPath     = flag.String("log", "", "append-only log file (optional)")
		lookBack    = flag.Int("lookback", config.DefaultLookBackHours, "max look-back hours for prior-logon evidence")
	)
	flag.Parse()

	cfg := config.Default()
	if *targets != "" {
		cfg.Targets = strings.Split(*targets, ",")
	}
	cfg.TargetsFile = *targetsFile
	cfg.Domain = *domain
	cfg.CheckNewCredentials = *newCreds
	cfg.LogPath = *logPath
	cfg.LookBack = -time.Duration(*lookBack) * time.Hour
	if *kerberos {
		cfg.Technique = config.ByKerberos
	}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: bad -start value: %v\n", err)
			os.Exit(2)
		}
		cfg.StartTime = t
	}

	if err := cfg.Normalize(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := logger.Init(cfg.LogPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer logger.Close()

	printBanner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	go confirmShutdown(ctx, cancel)

	var dc string
	if cfg.Domain != "" {
		if dcs := directory.LookupDCs(cfg.Domain); len(dcs) > 0 {
			dc = dcs[0]
		}
	}

	engine := hunt.New(cfg, eventlog.NewRemoteLog(), directory.NewADResolver(dc), report.New())
	if err := engine.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Stopped.")
}

func printBanner(cfg config.Config) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════════════╗")
	fmt.Printf("║  ketshash v%s - Pass-the-Hash hunting over NTLM logons            ║\n", version)
	fmt.Printf("║  Targets:   %-57s║\n", strings.Join(cfg.Targets, ", "))
	fmt.Printf("║  Technique: %-57s║\n", string(cfg.Technique))
	fmt.Printf("║  Since:     %-57s║\n", cfg.StartTime.Format(time.DateTime))
	fmt.Println("╚══════════════════════════════════════════════════════════════════════╝")
	fmt.Println("Press Enter to stop.")
	fmt.Println()
}

// confirmShutdown turns an operator keypress plus confirmation into the
// engine's cancellation signal.
func confirmShutdown(ctx context.Context, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fmt.Print("Stop hunting? [y/N]: ")
		if !scanner.Scan() {
			return
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer == "y" || answer == "yes" {
			cancel()
			return
		}
		fmt.Println("Resuming.")
	}
}
