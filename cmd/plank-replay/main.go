// Command plank-replay runs a recorded JSONL or pcap frame capture through a
// tracking session and prints each transition and the final summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/plank.report/internal/config"
	"github.com/banshee-data/plank.report/internal/fsutil"
	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/replay"
	"github.com/banshee-data/plank.report/internal/session"
	"github.com/banshee-data/plank.report/internal/timeutil"
)

var (
	configPath    = flag.String("config", "", "Tuning config file (.json, .yaml); empty uses built-in defaults")
	framesPerTick = flag.Int("frames-per-tick", 30, "Frames per tracker tick, normally the capture frame rate")
	udpPort       = flag.Int("udp-port", 9555, "UDP port to extract from pcap captures; 0 accepts any")
	outDir        = flag.String("out", "", "Write the session summary JSON into this directory")
	devMode       = flag.Bool("dev", false, "Development logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <capture.jsonl|capture.pcap>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := monitoring.Init(*devMode); err != nil {
		log.Fatalf("failed to initialise logging: %v", err)
	}
	defer monitoring.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		ConfigPath:    *configPath,
		FramesPerTick: *framesPerTick,
		UDPPort:       *udpPort,
		OutDir:        *outDir,
	}
	if err := run(ctx, fsutil.OSFileSystem{}, flag.Arg(0), opts, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	ConfigPath    string
	FramesPerTick int
	UDPPort       int
	OutDir        string
}

// run replays path and writes transitions then the summary JSON to out.
func run(ctx context.Context, fsys fsutil.FileSystem, path string, opts options, out io.Writer) error {
	tuning := config.DefaultTuningConfig()
	if opts.ConfigPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(opts.ConfigPath); err != nil {
			return err
		}
	}
	detectors, err := tuning.Detectors()
	if err != nil {
		return err
	}
	// The replay clock never advances; session timestamps mark the start.
	sess, err := session.New(session.Config{
		Hold:      tuning.HoldConfig(),
		Detectors: detectors,
		Clock:     timeutil.NewMockClock(timeutil.RealClock{}.Now()),
	})
	if err != nil {
		return err
	}

	r := replay.New(sess, opts.FramesPerTick, out)
	st, err := replay.ReadFile(ctx, fsys, path, opts.UDPPort, r.Handle, func(err error) {
		monitoring.Logf("skipping frame: %v", err)
	})
	if err != nil {
		return fmt.Errorf("replay %s: %w", path, err)
	}
	r.Flush()
	monitoring.Logf("replayed %s: %d packets, %d frames, %d dropped, %d ticks",
		path, st.Packets, st.Frames, st.Dropped, r.Ticks())

	sum := sess.Stop(ctx)
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))

	if opts.OutDir != "" {
		name, err := replay.WriteSummary(fsys, opts.OutDir, sum)
		if err != nil {
			return err
		}
		monitoring.Logf("summary written to %s", name)
	}
	return nil
}
