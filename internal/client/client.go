// Package client talks to a running plank server over its HTTP API.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/banshee-data/plank.report/internal/frames"
)

// ErrServer is wrapped by every error caused by a non-2xx response.
var ErrServer = errors.New("server error")

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// Pair is a limb segment verdict as reported by the server.
type Pair struct {
	Kind           string `json:"kind"`
	Angle          int    `json:"angle"`
	MeetsCriterion bool   `json:"meets_criterion"`
}

// Pose is a classified frame as reported by the server.
type Pose struct {
	Posture      string  `json:"posture"`
	Confidence   float64 `json:"confidence"`
	MeetsPosture bool    `json:"meets_posture"`
	Pairs        []Pair  `json:"pairs"`
}

// Status is the body of GET /api/status.
type Status struct {
	SessionID       string `json:"session_id"`
	State           string `json:"state"`
	DurationSeconds int64  `json:"duration_seconds"`
	Duration        string `json:"duration"`
	FramesSeen      int    `json:"frames_seen"`
	Stopped         bool   `json:"stopped"`
	Pose            *Pose  `json:"pose"`
	LastPose        *Pose  `json:"last_pose"`
}

type poseReply struct {
	Pose *Pose `json:"pose"`
}

type apiError struct {
	Error string `json:"error"`
}

// Option configures a Client.
type Option func(*resty.Client)

// WithTransport routes requests through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *resty.Client) { c.SetTransport(rt) }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// Client is an API client for one server.
type Client struct {
	http *resty.Client
}

// New returns a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	msg := resp.String()
	if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
		msg = e.Error
	}
	return fmt.Errorf("%w: %s: %s", ErrServer, resp.Status(), msg)
}

// Ping returns the server version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/api/ping")
	if err := check(resp, err); err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}
	return out.Version, nil
}

// Status fetches the session status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/api/status")
	if err := check(resp, err); err != nil {
		return Status{}, fmt.Errorf("status: %w", err)
	}
	return out, nil
}

// Reset zeroes the accumulated hold duration and returns the new status.
func (c *Client) Reset(ctx context.Context) (Status, error) {
	var out Status
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/reset")
	if err := check(resp, err); err != nil {
		return Status{}, fmt.Errorf("reset: %w", err)
	}
	return out, nil
}

// PushFrame submits one encoded frame and returns its classification, nil
// when nothing was detected.
func (c *Client) PushFrame(ctx context.Context, frame []byte) (*Pose, error) {
	var out poseReply
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(frame).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/api/frames")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("push frame: %w", err)
	}
	return out.Pose, nil
}

// PushFrames submits every frame read from r in order, calling fn with each
// result. Malformed lines are reported through fn with a nil pose and the
// decode error, and do not stop the upload. It returns the number of frames
// accepted by the server.
func (c *Client) PushFrames(ctx context.Context, r io.Reader, fn func(line int, p *Pose, err error)) (int, error) {
	fr := frames.NewReader(r)
	sent := 0
	for {
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return sent, nil
		}
		var lineErr *frames.LineError
		if errors.As(err, &lineErr) {
			if fn != nil {
				fn(lineErr.Line, nil, lineErr.Err)
			}
			continue
		}
		if err != nil {
			return sent, err
		}
		body, err := f.Encode()
		if err != nil {
			return sent, err
		}
		p, err := c.PushFrame(ctx, body)
		if err != nil {
			return sent, fmt.Errorf("line %d: %w", fr.Line(), err)
		}
		sent++
		if fn != nil {
			fn(fr.Line(), p, nil)
		}
	}
}
