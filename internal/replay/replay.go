// Package replay feeds recorded frames through a session without a clock:
// the tracker ticks once every N frames, so a capture recorded at a known
// frame rate replays in tick time.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/fsutil"
	"github.com/banshee-data/plank.report/internal/hold"
	"github.com/banshee-data/plank.report/internal/security"
	"github.com/banshee-data/plank.report/internal/session"
	"github.com/banshee-data/plank.report/internal/units"
)

// Replayer ticks a session every FramesPerTick frames and writes one line
// per transition to Out.
type Replayer struct {
	sess          *session.Session
	framesPerTick int
	out           io.Writer

	frames   int
	ticks    int
	tickedAt int
}

// New returns a Replayer. framesPerTick below one is treated as one.
func New(sess *session.Session, framesPerTick int, out io.Writer) *Replayer {
	if framesPerTick < 1 {
		framesPerTick = 1
	}
	if out == nil {
		out = io.Discard
	}
	return &Replayer{sess: sess, framesPerTick: framesPerTick, out: out}
}

// Handle is a frames.Handler.
func (r *Replayer) Handle(f frames.Frame) {
	r.sess.HandleWireFrame(f)
	r.frames++
	if r.frames-r.tickedAt == r.framesPerTick {
		r.tick()
	}
}

// Flush ticks once more if frames arrived since the last tick.
func (r *Replayer) Flush() {
	if r.frames != r.tickedAt {
		r.tick()
	}
}

func (r *Replayer) tick() {
	res := r.sess.Tick()
	r.ticks++
	r.tickedAt = r.frames
	if res.Transition == hold.None {
		return
	}
	line := fmt.Sprintf("tick %d frame %d: %s (%s) total %s",
		r.ticks, r.frames, res.Transition, res.State, units.FormatDuration(res.Duration))
	if res.Pose != nil {
		line += fmt.Sprintf(" confidence %.2f", res.Pose.Confidence)
	}
	fmt.Fprintln(r.out, line)
}

// Frames returns the number of frames handled.
func (r *Replayer) Frames() int { return r.frames }

// Ticks returns the number of ticks driven.
func (r *Replayer) Ticks() int { return r.ticks }

// ReadJSONL hands every frame of a newline-delimited file to h. Malformed
// lines are counted as dropped and reported through warn.
func ReadJSONL(ctx context.Context, rd io.Reader, h frames.Handler, warn func(error)) (frames.Stats, error) {
	var st frames.Stats
	fr := frames.NewReader(rd)
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		var lineErr *frames.LineError
		if errors.As(err, &lineErr) {
			st.Packets++
			st.Dropped++
			if warn != nil {
				warn(lineErr)
			}
			continue
		}
		if err != nil {
			return st, err
		}
		st.Packets++
		st.Frames++
		h(f)
	}
}

// IsPCAP reports whether path names a pcap capture.
func IsPCAP(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".pcap" || ext == ".cap"
}

// ReadFile replays path, choosing the pcap reader by extension and the JSONL
// reader otherwise. udpPort filters pcap traffic; zero accepts any port.
func ReadFile(ctx context.Context, fsys fsutil.FileSystem, path string, udpPort int, h frames.Handler, warn func(error)) (frames.Stats, error) {
	rc, err := fsys.Open(path)
	if err != nil {
		return frames.Stats{}, err
	}
	defer rc.Close()

	if IsPCAP(path) {
		return frames.ReadPCAP(ctx, rc, udpPort, h)
	}
	return ReadJSONL(ctx, rc, h, warn)
}

// WriteSummary writes sum as indented JSON to dir/<session id>.json and
// returns the file name. dir must lie under the working or temp directory.
func WriteSummary(fsys fsutil.FileSystem, dir string, sum session.Summary) (string, error) {
	name := filepath.Join(dir, security.SanitizeFilename(sum.ID)+".json")
	if err := security.ValidateExportPath(name); err != nil {
		return "", err
	}
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", err
	}
	if err := fsys.WriteFile(name, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return name, nil
}
