package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/softveil/softveil/internal/compositor"
	"github.com/softveil/softveil/internal/config"
	"github.com/softveil/softveil/internal/ipc"
)

func main() {
	if len(os.Args) < 2 {
		os.Exit(runCompositor())
	}

	switch os.Args[1] {
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: softveil [command]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run with no arguments to start compositing $DISPLAY (foreground).")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status              Show compositor status")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print effective configuration")
	fmt.Fprintln(w, "  help                Show this help")
}

// newLogger builds the slog logger the whole process shares. "auto"
// picks text for an interactive stderr and JSON otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	format := cfg.LogFormat
	if format == "auto" {
		if term.IsTerminal(int(os.Stderr.Fd())) {
			format = "text"
		} else {
			format = "json"
		}
	}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func runCompositor() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger := newLogger(cfg)

	comp, err := compositor.New(cfg.Display, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer comp.Shutdown()

	if err := comp.Bootstrap(); err != nil {
		logger.Error("bootstrap failed", "error", err)
		return 1
	}

	if cfg.IPC.Enabled {
		ipcServer, err := ipc.NewServer(func() ipc.StatusData {
			s := comp.Snapshot()
			return ipc.StatusData{
				UptimeSeconds: s.UptimeSeconds,
				WindowCount:   s.WindowCount,
				VisibleCount:  s.VisibleCount,
				DamageEvents:  s.DamageEvents,
				PaintCount:    s.PaintCount,
				Stacking:      s.Stacking,
			}
		}, logger)
		if err != nil {
			logger.Error("IPC setup failed", "error", err)
			return 1
		}
		if err := ipcServer.Start(); err != nil {
			logger.Error("IPC start failed", "error", err)
			return 1
		}
		defer ipcServer.Stop()
	}

	// SIGINT/SIGTERM unblock the event loop; cleanup then runs on
	// the still-open request connection.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", "signal", sig.String())
		comp.Stop()
	}()

	if err := comp.Run(); err != nil {
		logger.Error("compositor exited", "error", err)
		return 1
	}
	return 0
}

func runStatus(args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(os.Stderr, "status takes no arguments")
		return 2
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("running:        %v\n", status.Running)
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Printf("window_count:   %d\n", status.WindowCount)
	fmt.Printf("visible_count:  %d\n", status.VisibleCount)
	fmt.Printf("damage_events:  %d\n", status.DamageEvents)
	fmt.Printf("paint_count:    %d\n", status.PaintCount)
	fmt.Printf("stacking:      ")
	for _, w := range status.Stacking {
		fmt.Printf(" 0x%x", w)
	}
	fmt.Println()
	return 0
}

func runConfig(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: softveil config <validate|print>")
		return 2
	}

	switch args[0] {
	case "validate":
		if _, err := config.Load(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("configuration valid")
		return 0
	case "print":
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if err := cfg.Print(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}
