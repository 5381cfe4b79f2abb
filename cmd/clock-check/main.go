// ABOUTME: Diagnostic app to verify playback clock reconciliation
// ABOUTME: Calibrates against a device clock and reports drift at each recalibration
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"

	"github.com/Resonate-Protocol/slotstream/internal/app"
	"github.com/Resonate-Protocol/slotstream/pkg/audio/output"
	"github.com/Resonate-Protocol/slotstream/pkg/clock"
)

func main() {
	ctx := logger.WithContext(context.Background())
	if err := doMain(ctx); err != nil {
		logger.Ef(ctx, "run err %+v", err)
		os.Exit(1)
	}
}

func doMain(ctx context.Context) error {
	if err := app.LoadEnv(".env"); err != nil {
		return err
	}
	defaults, err := app.ConfigFromEnv()
	if err != nil {
		return err
	}

	var (
		backend  = flag.String("backend", defaults.Backend, "Output backend: "+strings.Join(output.Backends(), ", "))
		rate     = flag.Int("rate", defaults.SampleRate, "Requested device sample rate")
		interval = flag.Duration("interval", defaults.RecalibrateEvery, "Recalibration interval")
		count    = flag.Int("count", 10, "Number of recalibrations (0 runs until interrupted)")
	)
	flag.Parse()

	fmt.Println("=== Playback Clock Check ===")
	fmt.Println("This check will:")
	fmt.Println("1. Open the output device and wait for its clock to start")
	fmt.Println("2. Map wall-clock time onto the device clock")
	fmt.Println("3. Recalibrate periodically and report how far the mapping drifted")
	fmt.Println()

	dev, err := output.Open(*backend, *rate)
	if err != nil {
		return errors.Wrapf(err, "open %v", *backend)
	}
	defer dev.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	pc := clock.New(clock.SystemClock{}, dev)
	calibrateStart := time.Now()
	if err := pc.Calibrate(ctx); err != nil {
		return errors.Wrapf(err, "calibrate")
	}
	fmt.Printf("Device %s at %dHz calibrated in %v\n", *backend, dev.SampleRate(), time.Since(calibrateStart))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var maxDrift time.Duration
	for i := 1; *count == 0 || i <= *count; i++ {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}

		drift, ok := pc.Recalibrate()
		if !ok {
			fmt.Printf("#%d: device clock not advancing\n", i)
			continue
		}
		if abs(drift) > maxDrift {
			maxDrift = abs(drift)
		}

		st := pc.Stats()
		fmt.Printf("#%d: elapsed=%.3fs drift=%+v rate=%+.2fppm quality=%v\n",
			i, pc.Elapsed(), drift, st.DriftRate*1e6, st.Quality)
	}

	st := pc.Stats()
	fmt.Println()
	fmt.Printf("Max drift: %v, smoothed rate: %+.2fppm, final quality: %v\n", maxDrift, st.DriftRate*1e6, st.Quality)
	return nil
}

func abs(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
