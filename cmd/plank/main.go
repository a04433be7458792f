// Command plank serves a live plank tracking session. Frames arrive over
// UDP, HTTP, WebSocket or a serial bridge; transitions are cued over serial,
// the log and optionally a Telegram chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/banshee-data/plank.report/internal/api"
	"github.com/banshee-data/plank.report/internal/cue"
	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/monitoring"
	"github.com/banshee-data/plank.report/internal/serialmux"
	"github.com/banshee-data/plank.report/internal/session"
	"github.com/banshee-data/plank.report/internal/version"
)

var (
	configPath  = flag.String("config", "", "Tuning config file (.json, .yaml); empty uses built-in defaults")
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	grpcListen  = flag.String("grpc-listen", ":50051", "gRPC listen address; empty disables")
	udpListen   = flag.String("udp-listen", ":9555", "UDP frame listen address; empty disables")
	udpRcvBuf   = flag.Int("udp-rcvbuf", 4<<20, "UDP receive buffer size in bytes")
	serialPort  = flag.String("serial-port", "", "Serial bridge device; empty disables")
	serialBaud  = flag.Int("serial-baud", serialmux.DefaultBaudRate, "Serial baud rate")
	devMode     = flag.Bool("dev", false, "Development logging")
	devFrames   = flag.String("dev-frames", "", "Replay this JSONL file through a simulated serial bridge")
	summaryOnly = flag.Bool("telegram-summary-only", false, "Only post session summaries to Telegram")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("plank"))
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if err := monitoring.Init(*devMode); err != nil {
		log.Fatalf("failed to initialise logging: %v", err)
	}
	defer monitoring.Sync()

	tuning, err := loadTuning(*configPath)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	detectors, err := tuning.Detectors()
	if err != nil {
		log.Fatalf("invalid postures: %v", err)
	}

	var port serialmux.SerialMuxInterface
	switch {
	case *devFrames != "":
		lines, err := loadDevLines(*devFrames)
		if err != nil {
			log.Fatal(err)
		}
		port = serialmux.NewMockSerialMux(lines, 100*time.Millisecond)
	default:
		port, err = serialmux.Open(nil, *serialPort, serialmux.PortOptions{BaudRate: *serialBaud})
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", *serialPort, err)
		}
	}
	defer port.Close()

	opts := sinkOptions{SummaryOnly: *summaryOnly}
	if *serialPort != "" || *devFrames != "" {
		opts.Serial = port
	}
	token, chatID, ok, err := telegramFromEnv(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	if ok {
		tg, err := cue.NewTelegramSink(token, chatID)
		if err != nil {
			monitoring.Logf("telegram disabled: %v", err)
		} else {
			opts.Telegram = tg
		}
	}

	sess, err := session.New(session.Config{
		Hold:       tuning.HoldConfig(),
		Detectors:  detectors,
		Dispatcher: cue.NewDispatcher(buildSinks(tuning, opts)...),
	})
	if err != nil {
		log.Fatalf("failed to start session: %v", err)
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// tick loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("session loop failed: %v", err)
		}
		monitoring.Logf("session routine terminated")
	}()

	// serial IO and frame forwarding
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := port.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			monitoring.Logf("failed to monitor serial port: %v", err)
		}
		monitoring.Logf("monitor routine terminated")
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = serialmux.ForwardFrames(ctx, port, func(f frames.Frame) { sess.HandleWireFrame(f) })
		monitoring.Logf("serial frame routine terminated")
	}()

	if *udpListen != "" {
		listener := frames.NewUDPListener(frames.UDPListenerConfig{
			Address: *udpListen,
			RcvBuf:  *udpRcvBuf,
			Handler: func(f frames.Frame) { sess.HandleWireFrame(f) },
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				monitoring.Logf("UDP listener failed: %v", err)
			}
			st := listener.Stats()
			monitoring.Logf("UDP routine terminated: %d packets, %d frames, %d dropped", st.Packets, st.Frames, st.Dropped)
		}()
	}

	if *grpcListen != "" {
		lis, err := net.Listen("tcp", *grpcListen)
		if err != nil {
			log.Fatalf("failed to listen on %s: %v", *grpcListen, err)
		}
		gs := grpc.NewServer()
		api.RegisterHoldServiceServer(gs, api.NewGRPCService(sess))

		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				monitoring.Logf("gRPC server listening on %s", lis.Addr())
				if err := gs.Serve(lis); err != nil {
					monitoring.Logf("gRPC server stopped: %v", err)
				}
			}()

			<-ctx.Done()
			// Watch streams end once the session stops.
			sess.Stop(context.Background())
			stopped := make(chan struct{})
			go func() {
				gs.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-time.After(time.Second):
				gs.Stop()
			}
			monitoring.Logf("gRPC server routine stopped")
		}()
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		port.AttachAdminRoutes(mux)
		mux.Handle("/", api.NewServer(sess).Router())

		server := &http.Server{
			Addr:              *listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			monitoring.Logf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		monitoring.Logf("shutting down HTTP server...")

		// Event streams end once the session stops.
		sess.Stop(context.Background())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			monitoring.Logf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				monitoring.Logf("HTTP server force close error: %v", err)
			}
		}

		monitoring.Logf("HTTP server routine stopped")
	}()

	wg.Wait()
	sum := sess.Stop(context.Background())
	monitoring.Logf("Graceful shutdown complete: held %s over %d frames", sum.Formatted, sum.FramesSeen)
}
