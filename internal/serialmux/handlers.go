package serialmux

import (
	"context"

	"github.com/banshee-data/plank.report/internal/frames"
	"github.com/banshee-data/plank.report/internal/monitoring"
)

// ForwardFrames subscribes to m and hands every decodable frame line to h
// until ctx is cancelled or the subscription closes. Acknowledgements and
// comments are logged; malformed frames are logged and skipped.
func ForwardFrames(ctx context.Context, m SerialMuxInterface, h frames.Handler) error {
	id, lines := m.Subscribe()
	defer m.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			HandleLine(line, h)
		}
	}
}

// HandleLine dispatches a single serial line.
func HandleLine(line string, h frames.Handler) {
	switch ClassifyLine(line) {
	case LineFrame:
		f, err := frames.Decode([]byte(line))
		if err != nil {
			monitoring.Logf("serial: dropping malformed frame: %v", err)
			return
		}
		if h != nil {
			h(f)
		}
	case LineAck:
		monitoring.Logf("serial: device ack: %s", line)
	case LineComment:
		monitoring.Logf("serial: %s", line)
	default:
		monitoring.Logf("serial: unknown line: %q", line)
	}
}
