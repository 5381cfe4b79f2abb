// ABOUTME: Entry point for the slotstream player
// ABOUTME: Parses CLI flags over environment defaults and plays a source through a stream
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/Resonate-Protocol/slotstream/internal/app"
	"github.com/Resonate-Protocol/slotstream/internal/ui"
	"github.com/Resonate-Protocol/slotstream/internal/version"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/output"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/source"
)

func main() {
	ctx := logger.WithContext(context.Background())
	if err := doMain(ctx); err != nil {
		logger.Ef(ctx, "run err %+v", err)
		os.Exit(1)
	}
}

func doMain(ctx context.Context) error {
	envFile := ".env"
	if v := os.Getenv("SLOTSTREAM_ENV_FILE"); v != "" {
		envFile = v
	}
	if err := app.LoadEnv(envFile); err != nil {
		return err
	}
	defaults, err := app.ConfigFromEnv()
	if err != nil {
		return err
	}

	var (
		file        = flag.String("file", "", "Audio file to play (.wav, .mp3, .ogg); empty plays a test tone")
		toneHz      = flag.Float64("tone", source.DefaultToneFrequency, "Test tone frequency in Hz")
		backend     = flag.String("backend", defaults.Backend, "Output backend: "+strings.Join(output.Backends(), ", "))
		record      = flag.String("record", "", "Record rendered output to this WAV file instead of playing it")
		latencyMs   = flag.Int("latency-ms", defaults.LatencyMs, "Target buffering latency in milliseconds")
		sampleRate  = flag.Int("rate", defaults.SampleRate, "Requested device sample rate")
		nonblocking = flag.Bool("nonblocking", defaults.Nonblocking, "Use non-blocking writes")
		duration    = flag.Duration("duration", 0, "Stop after this much audio (0 plays to the end)")
		recal       = flag.Duration("recalibrate", defaults.RecalibrateEvery, "Clock recalibration interval")
		logFile     = flag.String("log-file", "slotstream.log", "Log file path")
		noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
		showVersion = flag.Bool("version", false, "Print version and quit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", version.Product, version.Version)
		return nil
	}

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return errors.Wrapf(err, "open log file")
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		logger.Switch(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		logger.Switch(io.MultiWriter(os.Stdout, f))
	}

	logger.Tf(ctx, "Starting %s %s", version.Product, version.Version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	player := app.New(app.Config{
		Source:           *file,
		ToneHz:           *toneHz,
		Backend:          *backend,
		Record:           *record,
		LatencyMs:        *latencyMs,
		SampleRate:       *sampleRate,
		Nonblocking:      *nonblocking,
		Duration:         *duration,
		RecalibrateEvery: *recal,
	})
	if err := player.Open(); err != nil {
		return err
	}
	defer player.Stop()

	// TUI setup
	var tuiProg *tea.Program
	var control *ui.Control

	if useTUI {
		control = ui.NewControl()
		tuiProg, err = ui.Run(control)
		if err != nil {
			return errors.Wrapf(err, "start TUI")
		}
		go tuiProg.Run()
		defer tuiProg.Quit()

		player.OnStatus(func(s app.Status) {
			stats := s.Stream
			nb := s.Nonblocking
			tuiProg.Send(ui.StatusMsg{
				Source:      s.Source,
				Backend:     s.Backend,
				State:       s.State,
				LatencyMs:   s.LatencyMs,
				Nonblocking: &nb,
				Stream:      &stats,
			})
		})
		go handleControl(ctx, player, control)
		go runtimeStatsLoop(ctx, tuiProg)
	}

	done := make(chan error, 1)
	go func() { done <- player.Run() }()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var quit chan ui.QuitMsg
	if control != nil {
		quit = control.Quit
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		logger.Tf(ctx, "Playback finished")
	case <-quit:
		logger.Tf(ctx, "Received quit signal from TUI")
	case s := <-sigChan:
		logger.Tf(ctx, "Got signal %v", s)
	}

	if err := player.Stop(); err != nil {
		logger.Wf(ctx, "Error closing player: %v", err)
	}

	logger.Tf(ctx, "Player stopped")
	return nil
}

// handleControl applies keyboard commands from the TUI
func handleControl(ctx context.Context, player *app.Player, control *ui.Control) {
	for cmd := range control.Commands {
		switch cmd {
		case ui.CommandTogglePause:
			if err := player.TogglePause(); err != nil {
				logger.Wf(ctx, "Pause failed: %v", err)
			}
		case ui.CommandToggleMode:
			player.ToggleNonblocking()
		case ui.CommandRecalibrate:
			drift := player.Recalibrate()
			logger.Tf(ctx, "Manual recalibration: drift=%v", drift)
		}
	}
}

// runtimeStatsLoop periodically sends runtime stats to the TUI
func runtimeStatsLoop(ctx context.Context, tuiProg *tea.Program) {
	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			tuiProg.Send(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
				MemSys:     m.Sys,
			})
		case <-ctx.Done():
			return
		}
	}
}
