// Command plankctl controls a running plank server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/banshee-data/plank.report/internal/api"
	"github.com/banshee-data/plank.report/internal/client"
	"github.com/banshee-data/plank.report/internal/version"
)

func main() {
	flag.Usage = func() { printUsage(os.Stdout) }
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, flag.Arg(0), flag.Args()[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "plankctl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `plankctl - control a running plank server

Usage: plankctl <command> [options]

Commands:
  status              Show the hold state and accumulated time
  reset               Zero the accumulated hold time
  push <file.jsonl>   Submit recorded frames one by one
  watch               Stream hold transitions over gRPC
  version             Show plankctl version
  help                Show this help message

Common Flags:
  --server <url>      HTTP API base URL (default: http://localhost:8080)
  --grpc <addr>       gRPC address for watch (default: localhost:50051)`)
}

var errUsage = errors.New("usage error")

func dispatch(ctx context.Context, command string, args []string, out io.Writer) error {
	switch command {
	case "status":
		return handleStatus(ctx, args, out)
	case "reset":
		return handleReset(ctx, args, out)
	case "push":
		return handlePush(ctx, args, out)
	case "watch":
		return handleWatch(ctx, args, out)
	case "version":
		fmt.Fprintln(out, version.String("plankctl"))
		return nil
	case "help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func httpFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	server := fs.String("server", "http://localhost:8080", "HTTP API base URL")
	return fs, server
}

func printStatus(out io.Writer, st client.Status) {
	fmt.Fprintf(out, "session %s: %s, held %s over %d frames", st.SessionID, st.State, st.Duration, st.FramesSeen)
	if st.Stopped {
		fmt.Fprint(out, " (stopped)")
	}
	fmt.Fprintln(out)
	if p := st.LastPose; p != nil {
		fmt.Fprintf(out, "last frame: %s confidence %.2f", p.Posture, p.Confidence)
		for _, pair := range p.Pairs {
			mark := "x"
			if pair.MeetsCriterion {
				mark = "ok"
			}
			fmt.Fprintf(out, " %s=%d°(%s)", pair.Kind, pair.Angle, mark)
		}
		fmt.Fprintln(out)
	}
}

func handleStatus(ctx context.Context, args []string, out io.Writer) error {
	fs, server := httpFlags("status")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	st, err := client.New(*server).Status(ctx)
	if err != nil {
		return err
	}
	printStatus(out, st)
	return nil
}

func handleReset(ctx context.Context, args []string, out io.Writer) error {
	fs, server := httpFlags("reset")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	st, err := client.New(*server).Reset(ctx)
	if err != nil {
		return err
	}
	printStatus(out, st)
	return nil
}

func handlePush(ctx context.Context, args []string, out io.Writer) error {
	fs, server := httpFlags("push")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: push needs exactly one file", errUsage)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	meeting, skipped := 0, 0
	sent, err := client.New(*server).PushFrames(ctx, f, func(line int, p *client.Pose, err error) {
		switch {
		case err != nil:
			skipped++
			fmt.Fprintf(out, "line %d: skipped: %v\n", line, err)
		case p != nil && p.MeetsPosture:
			meeting++
		}
	})
	fmt.Fprintf(out, "sent %d frames, %d in posture, %d skipped\n", sent, meeting, skipped)
	return err
}

func handleWatch(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("grpc", "localhost:50051", "gRPC address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()
	return watch(ctx, api.NewHoldServiceClient(conn), out)
}

// watch prints one line per streamed message until the server ends the
// stream or ctx is cancelled.
func watch(ctx context.Context, hc api.HoldServiceClient, out io.Writer) error {
	stream, err := hc.Watch(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		f := msg.GetFields()
		fmt.Fprintf(out, "%s: %s total %s\n",
			f["transition"].GetStringValue(), f["state"].GetStringValue(), f["duration"].GetStringValue())
	}
}
