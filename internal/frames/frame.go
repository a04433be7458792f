package frames

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/plank.report/internal/geometry"
	"github.com/banshee-data/plank.report/internal/pose"
)

var (
	ErrEmptyFrame   = errors.New("frame has no keypoints")
	ErrUnknownJoint = errors.New("unknown joint")
)

// Keypoint is the wire form of one named landmark.
type Keypoint struct {
	Joint      pose.JointName `json:"joint"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Confidence float64        `json:"confidence"`
}

// Frame is one decoded estimator output. Exactly one of Points or COCO is
// populated after a successful Decode.
type Frame struct {
	// TS is the capture time in Unix milliseconds; zero when absent.
	TS     int64       `json:"ts,omitempty"`
	Points []Keypoint  `json:"keypoints,omitempty"`
	COCO   []COCOPoint `json:"coco,omitempty"`
}

// Decode parses and validates a single JSON frame. A bare JSON array is
// accepted as a COCO skeleton without timestamp.
func Decode(data []byte) (Frame, error) {
	data = bytes.TrimSpace(data)
	var f Frame
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &f.COCO); err != nil {
			return Frame{}, fmt.Errorf("decode coco frame: %w", err)
		}
	} else if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks that the frame carries keypoints in exactly one form and
// that every named joint is known.
func (f Frame) Validate() error {
	switch {
	case len(f.Points) == 0 && len(f.COCO) == 0:
		return ErrEmptyFrame
	case len(f.Points) > 0 && len(f.COCO) > 0:
		return errors.New("frame has both keypoints and coco")
	case len(f.COCO) > 0 && len(f.COCO) != COCOKeypointCount:
		return fmt.Errorf("coco frame has %d points, want %d", len(f.COCO), COCOKeypointCount)
	}
	for _, kp := range f.Points {
		if !kp.Joint.Valid() {
			return fmt.Errorf("%w %q", ErrUnknownJoint, kp.Joint)
		}
	}
	return nil
}

// Time returns the capture time, or the zero time when TS is unset.
func (f Frame) Time() time.Time {
	if f.TS == 0 {
		return time.Time{}
	}
	return time.UnixMilli(f.TS)
}

// Keypoints converts the frame into the classifier's input. A joint listed
// twice keeps its last occurrence.
func (f Frame) Keypoints() pose.Keypoints {
	if len(f.COCO) > 0 {
		return FromCOCO17(f.COCO)
	}
	out := make(pose.Keypoints, len(f.Points))
	for _, kp := range f.Points {
		out[kp.Joint] = pose.Keypoint{
			Position:   geometry.Point{X: kp.X, Y: kp.Y},
			Confidence: kp.Confidence,
		}
	}
	return out
}

// FromKeypoints builds a named-keypoint frame, sorted by joint name.
func FromKeypoints(ts time.Time, kps pose.Keypoints) Frame {
	f := Frame{Points: make([]Keypoint, 0, len(kps))}
	if !ts.IsZero() {
		f.TS = ts.UnixMilli()
	}
	for name, kp := range kps {
		f.Points = append(f.Points, Keypoint{
			Joint:      name,
			X:          kp.Position.X,
			Y:          kp.Position.Y,
			Confidence: kp.Confidence,
		})
	}
	sortPoints(f.Points)
	return f
}

// Encode renders the frame as a single line of JSON.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}
